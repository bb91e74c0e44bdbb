package pipeline

import (
	"context"

	"github.com/jroosing/dnsforward/internal/dnswire"
)

// LegalityCheck bypasses cache lookup and IP selection for queries
// outside the pipeline's supported shape, sending them straight to
// the upstream dispatcher instead of calling next (§4.G.2).
type LegalityCheck struct {
	Dispatcher Sender
}

// Handle implements Stage.
func (s LegalityCheck) Handle(ctx context.Context, q dnswire.Query, next Continuation) (dnswire.Answer, error) {
	if !q.IsSupported() {
		return s.Dispatcher.Send(ctx, q)
	}
	return next(ctx, q)
}
