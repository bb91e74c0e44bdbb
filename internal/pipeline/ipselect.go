package pipeline

import (
	"context"

	"github.com/jroosing/dnsforward/internal/dnswire"
)

// IPSelect calls next, and if the result is an IPv4 answer carrying
// more than one address, probes all of them concurrently with the
// ICMP capability and keeps only the address whose probe completes
// first (§4.G.4, present iff a Prober is configured).
type IPSelect struct {
	Prober Prober
}

// Handle implements Stage.
func (s IPSelect) Handle(ctx context.Context, q dnswire.Query, next Continuation) (dnswire.Answer, error) {
	answer, err := next(ctx, q)
	if err != nil {
		return dnswire.Answer{}, err
	}
	if answer.Kind != dnswire.KindIPv4 || len(answer.IPv4) <= 1 {
		return answer, nil
	}

	addrs := make([][4]byte, len(answer.IPv4))
	for i, rr := range answer.IPv4 {
		addrs[i] = rr.Addr
	}

	winner, err := s.Prober.Probe(ctx, addrs)
	if err != nil || winner < 0 || winner >= len(answer.IPv4) {
		winner = 0
	}
	answer.IPv4 = answer.IPv4[winner : winner+1]
	return answer, nil
}

// IPFirst is the reduced form of IP selection used when no ICMP
// prober is available: it simply keeps the first address (§4.G.4).
type IPFirst struct{}

// Handle implements Stage.
func (s IPFirst) Handle(ctx context.Context, q dnswire.Query, next Continuation) (dnswire.Answer, error) {
	answer, err := next(ctx, q)
	if err != nil {
		return dnswire.Answer{}, err
	}
	if answer.Kind == dnswire.KindIPv4 && len(answer.IPv4) > 1 {
		answer.IPv4 = answer.IPv4[:1]
	}
	return answer, nil
}
