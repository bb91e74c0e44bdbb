package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/jroosing/dnsforward/internal/dnswire"
)

// SendTimeout is the per-request deadline enforced at the awaiter
// (§4.F step 4, §5 "Cancellation and timeouts").
const SendTimeout = 3 * time.Second

// maxDatagramSize is large enough for any reply this codec parses; the
// forwarder never negotiates EDNS(0) (explicit Non-goal).
const maxDatagramSize = 4096

// Strategy selects how Dispatcher.Send picks among the configured
// upstream servers (§4.F "Sender strategies").
type Strategy int

const (
	StrategyFastestSticky Strategy = iota
	StrategyRace
	StrategyCombine
)

// Dispatcher owns one client UDP socket shared across many concurrent
// requests, a reply-reader background task, an id allocator, a
// registry of in-flight requests, and the server set (§4.F).
type Dispatcher struct {
	conn     *net.UDPConn
	ids      *IDAllocator
	registry *Registry
	Servers  *ServerSet
	Strategy Strategy
	Logger   *slog.Logger
}

// NewDispatcher binds an ephemeral UDP socket and returns a Dispatcher
// ready to have its reply reader started via Run.
func NewDispatcher(servers []string, strategy Strategy, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("%w: bind client socket: %v", ErrUpstream, err)
	}
	return &Dispatcher{
		conn:     conn,
		ids:      NewIDAllocator(),
		registry: NewRegistry(),
		Servers:  NewServerSet(servers),
		Strategy: strategy,
		Logger:   logger,
	}, nil
}

// Close releases the underlying socket.
func (d *Dispatcher) Close() error {
	return d.conn.Close()
}

// Run drives the reply-reader background task until ctx is cancelled
// or the socket is closed (§4.I, §4.F "Reply reader").
func (d *Dispatcher) Run(ctx context.Context) {
	buf := make([]byte, maxDatagramSize)
	for {
		if ctx.Err() != nil {
			return
		}
		n, _, err := d.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		answer, err := dnswire.ParseAnswer(buf[:n])
		if err != nil {
			d.Logger.Debug("dropping malformed upstream reply", "err", err)
			continue
		}
		d.registry.Deliver(answer.ID, answer)
	}
}

// sendAndAwait implements §4.F's single-upstream, single-query round
// trip: allocate an id, register a slot, rewrite and send the query,
// wait up to SendTimeout, and return the reply (or, on timeout, a Failure
// answer) under the caller's id. Send, resolve and context errors return
// an error instead. The slot is removed on every path.
func (d *Dispatcher) sendAndAwait(ctx context.Context, q dnswire.Query, server string) (dnswire.Answer, error) {
	internalID := d.ids.Next()
	slot := d.registry.Insert(internalID)
	defer d.registry.Remove(internalID)

	wire, err := q.Marshal(internalID)
	if err != nil {
		return dnswire.Answer{}, fmt.Errorf("%w: marshal query: %v", ErrUpstream, err)
	}

	addr, err := net.ResolveUDPAddr("udp", server)
	if err != nil {
		return dnswire.Answer{}, fmt.Errorf("%w: resolve %q: %v", ErrUpstream, server, err)
	}
	if _, err := d.conn.WriteToUDP(wire, addr); err != nil {
		return dnswire.Answer{}, fmt.Errorf("%w: send to %q: %v", ErrUpstream, server, err)
	}

	timer := time.NewTimer(SendTimeout)
	defer timer.Stop()

	select {
	case answer := <-slot:
		return answer.WithID(q.ID), nil
	case <-timer.C:
		return dnswire.NewFailureAnswer(q.ID, q.Question), nil
	case <-ctx.Done():
		return dnswire.Answer{}, ctx.Err()
	}
}

// Send forwards q according to the dispatcher's configured strategy
// (§4.F "Sender strategies").
func (d *Dispatcher) Send(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
	switch d.Strategy {
	case StrategyRace:
		return d.sendRace(ctx, q)
	case StrategyCombine:
		return d.sendCombine(ctx, q)
	default:
		return d.sendAndAwait(ctx, q, d.Servers.Fastest())
	}
}

// sendRace fans out to all servers and returns the first successful
// answer; the remaining in-flight requests are abandoned and their
// eventual replies find empty slots once they time out (§4.F "race",
// §5 "Cancellation and timeouts").
func (d *Dispatcher) sendRace(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
	servers := d.Servers.All()
	results := make(chan result, len(servers))
	for _, server := range servers {
		server := server
		go func() {
			answer, err := d.sendAndAwait(ctx, q, server)
			results <- result{answer: answer, err: err}
		}()
	}

	var lastErr error
	for range servers {
		r := <-results
		if r.err != nil {
			lastErr = r.err
			continue
		}
		if r.answer.Kind == dnswire.KindFailure {
			continue
		}
		return r.answer, nil
	}
	if lastErr != nil {
		return dnswire.Answer{}, lastErr
	}
	return dnswire.NewFailureAnswer(q.ID, q.Question), nil
}

type result struct {
	answer dnswire.Answer
	err    error
}

// sendCombine fans out to all servers and unions their A records into
// a single IPv4 answer, deduplicating by address and preserving
// first-seen order; if every upstream errors, it returns Failure
// (§4.F "combine").
func (d *Dispatcher) sendCombine(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
	servers := d.Servers.All()
	results := make(chan result, len(servers))
	for _, server := range servers {
		server := server
		go func() {
			answer, err := d.sendAndAwait(ctx, q, server)
			results <- result{answer: answer, err: err}
		}()
	}

	var records []dnswire.IPv4Answer
	seen := make(map[[4]byte]struct{})
	successes := 0
	for range servers {
		r := <-results
		if r.err != nil {
			d.Logger.Debug("combine: upstream error", "err", r.err)
			continue
		}
		if r.answer.Kind != dnswire.KindIPv4 {
			continue
		}
		successes++
		for _, rec := range r.answer.IPv4 {
			if _, dup := seen[rec.Addr]; dup {
				continue
			}
			seen[rec.Addr] = struct{}{}
			records = append(records, rec)
		}
	}

	if successes == 0 {
		return dnswire.NewFailureAnswer(q.ID, q.Question), nil
	}
	return dnswire.NewIPv4Answer(q.ID, q.Question, records), nil
}
