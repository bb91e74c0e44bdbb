// Package server implements the UDP listener loop (§4.H, §2 component
// H): bind one socket, receive a datagram and its source address,
// spawn an independent goroutine that runs the query pipeline and
// writes the reply, and exit on shutdown without waiting for in-flight
// work to drain (§5 "does not wait on in-flight upstream queries").
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/jroosing/dnsforward/internal/dnswire"
	"github.com/jroosing/dnsforward/internal/pool"
)

const maxDatagramSize = 4096

// Pipeline is the capability the server loop drives per datagram.
type Pipeline interface {
	Run(ctx context.Context, q dnswire.Query) (dnswire.Answer, error)
}

// Server is the UDP listener (§4.H).
type Server struct {
	conn     *net.UDPConn
	pipeline Pipeline
	logger   *slog.Logger
	bufPool  *pool.Pool[[]byte]
}

// Options configures Server construction (§6 server.* settings).
type Options struct {
	Host      string
	Port      int
	Reuseport bool
	Pipeline  Pipeline
	Logger    *slog.Logger
}

// New binds a UDP socket on opts.Host:opts.Port. This forwarder binds
// exactly one socket regardless of Reuseport; the option is kept as a
// deploy-time knob (adapted down from the teacher's SO_REUSEPORT
// multi-socket/worker-pool model to §4.H's simpler one-socket,
// spawn-per-datagram design, §11 DOMAIN STACK golang.org/x/sys/unix
// home) so an operator running several forwarder processes behind one
// port can still enable kernel-level load spreading.
func New(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	conn, err := listenUDP(addr, opts.Reuseport)
	if err != nil {
		return nil, fmt.Errorf("server: listen %s: %w", addr, err)
	}

	return &Server{
		conn:     conn,
		pipeline: opts.Pipeline,
		logger:   logger,
		bufPool: pool.New(func() []byte {
			return make([]byte, maxDatagramSize)
		}),
	}, nil
}

func listenUDP(addr string, reuseport bool) (*net.UDPConn, error) {
	if !reuseport || runtime.GOOS != "linux" {
		udpAddr, err := net.ResolveUDPAddr("udp", addr)
		if err != nil {
			return nil, err
		}
		return net.ListenUDP("udp", udpAddr)
	}

	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockoptErr error
			if err := c.Control(func(fd uintptr) {
				sockoptErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			}); err != nil {
				return err
			}
			return sockoptErr
		},
	}
	pc, err := lc.ListenPacket(context.Background(), "udp", addr)
	if err != nil {
		return nil, err
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("server: unexpected packet conn type %T", pc)
	}
	return conn, nil
}

// Close releases the underlying socket.
func (s *Server) Close() error {
	return s.conn.Close()
}

// Addr reports the bound listen address.
func (s *Server) Addr() string {
	return s.conn.LocalAddr().String()
}

// Run loops receiving datagrams and spawning per-query work until ctx
// is cancelled.
func (s *Server) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		buf := s.bufPool.Get()
		n, peer, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			s.bufPool.Put(buf)
			if ctx.Err() != nil {
				return
			}
			continue
		}

		msg := make([]byte, n)
		copy(msg, buf[:n])
		s.bufPool.Put(buf)

		go s.handle(ctx, msg, peer)
	}
}

func (s *Server) handle(ctx context.Context, msg []byte, peer *net.UDPAddr) {
	q, err := dnswire.ParseQuery(msg)
	if err != nil {
		s.logger.Debug("server: dropping malformed query", "peer", peer, "err", err)
		return
	}

	answer, err := s.pipeline.Run(ctx, q)
	if err != nil {
		s.logger.Warn("server: pipeline error", "peer", peer, "err", err)
		return
	}

	wire, err := answer.Marshal()
	if err != nil {
		s.logger.Warn("server: failed to marshal answer", "peer", peer, "err", err)
		return
	}
	if _, err := s.conn.WriteToUDP(wire, peer); err != nil {
		s.logger.Warn("server: failed to send reply", "peer", peer, "err", err)
	}
}
