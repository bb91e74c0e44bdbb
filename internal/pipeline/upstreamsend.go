package pipeline

import (
	"context"

	"github.com/jroosing/dnsforward/internal/dnswire"
)

// Sender is the capability UpstreamSend and LegalityCheck's bypass
// path both rely on: hand a query to the upstream dispatcher and get
// an answer back (§4.F).
type Sender interface {
	Send(ctx context.Context, q dnswire.Query) (dnswire.Answer, error)
}

// SenderFunc adapts a plain function to Sender.
type SenderFunc func(ctx context.Context, q dnswire.Query) (dnswire.Answer, error)

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
	return f(ctx, q)
}

// UpstreamSend is the chain's terminal stage: it ignores next and
// calls the dispatcher directly (§4.G.5).
type UpstreamSend struct {
	Dispatcher Sender
}

// Handle implements Stage.
func (s UpstreamSend) Handle(ctx context.Context, q dnswire.Query, next Continuation) (dnswire.Answer, error) {
	return s.Dispatcher.Send(ctx, q)
}
