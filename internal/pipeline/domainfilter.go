package pipeline

import (
	"context"

	"github.com/jroosing/dnsforward/internal/dnswire"
)

// DomainFilter synthesizes a default-SOA answer for blocked names and
// returns without calling the rest of the chain (§4.G.1).
type DomainFilter struct {
	Blocklist Blocklist
}

// Handle implements Stage.
func (s DomainFilter) Handle(ctx context.Context, q dnswire.Query, next Continuation) (dnswire.Answer, error) {
	if s.Blocklist != nil && s.Blocklist.Contains(q.Question.Name) {
		soa := dnswire.NewDefaultSOA(q.Question.Name, dnswire.DefaultTTL)
		return dnswire.NewSOAAnswer(q.ID, q.Question, soa), nil
	}
	return next(ctx, q)
}
