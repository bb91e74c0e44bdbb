// Package probe implements the IP-selection prober: given a set of
// candidate IPv4 addresses, race ICMP echo requests against all of
// them and report whichever answers first (§2 component K, §4.G.4
// IPSelect).
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// ErrProbe is the sentinel for ICMP probe errors.
var ErrProbe = errors.New("probe error")

// Timeout bounds how long a single probe round waits for the slowest
// address before giving up on it.
const Timeout = 1 * time.Second

// ICMPProber probes addresses with ICMP echo requests sent over an
// unprivileged ICMP datagram socket ("udp4"). Construction does no I/O;
// where the platform refuses that socket, each probe fails and Probe
// returns an error.
type ICMPProber struct {
	logger *slog.Logger
}

// NewICMPProber builds a prober. logger may be nil.
func NewICMPProber(logger *slog.Logger) *ICMPProber {
	if logger == nil {
		logger = slog.Default()
	}
	return &ICMPProber{logger: logger}
}

// Probe races an ICMP echo against every address in addrs and returns
// the index of the first responder. If none respond within Timeout,
// it returns an error and the pipeline's IPSelect stage falls back to
// index 0.
func (p *ICMPProber) Probe(ctx context.Context, addrs [][4]byte) (int, error) {
	if len(addrs) == 0 {
		return 0, fmt.Errorf("%w: no addresses to probe", ErrProbe)
	}

	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	type result struct {
		index int
		err   error
	}
	results := make(chan result, len(addrs))

	for i, addr := range addrs {
		i, addr := i, addr
		go func() {
			err := pingOnce(ctx, net.IP(addr[:]))
			results <- result{index: i, err: err}
		}()
	}

	for range addrs {
		select {
		case r := <-results:
			if r.err == nil {
				return r.index, nil
			}
			p.logger.Debug("probe: address failed to respond", "index", r.index, "err", r.err)
		case <-ctx.Done():
			return 0, fmt.Errorf("%w: %v", ErrProbe, ctx.Err())
		}
	}
	return 0, fmt.Errorf("%w: no address responded within %s", ErrProbe, Timeout)
}

// pingOnce sends a single ICMP echo request to dst and waits for its
// reply or for ctx to expire.
func pingOnce(ctx context.Context, dst net.IP) error {
	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		return fmt.Errorf("%w: listen: %v", ErrProbe, err)
	}
	defer conn.Close()

	id := os.Getpid() & 0xffff
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   id,
			Seq:  1,
			Data: []byte("dnsforward-probe"),
		},
	}
	wire, err := msg.Marshal(nil)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrProbe, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.WriteTo(wire, &net.UDPAddr{IP: dst}); err != nil {
		return fmt.Errorf("%w: write: %v", ErrProbe, err)
	}

	reply := make([]byte, 512)
	n, _, err := conn.ReadFrom(reply)
	if err != nil {
		return fmt.Errorf("%w: read: %v", ErrProbe, err)
	}

	parsed, err := icmp.ParseMessage(1, reply[:n])
	if err != nil {
		return fmt.Errorf("%w: parse reply: %v", ErrProbe, err)
	}
	if parsed.Type != ipv4.ICMPTypeEchoReply {
		return fmt.Errorf("%w: unexpected reply type %v", ErrProbe, parsed.Type)
	}
	return nil
}
