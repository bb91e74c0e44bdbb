// Package pipeline assembles the per-query chain of stages that turns
// an incoming client query into an answer: domain filtering, legality
// checking, cache lookup, IP selection, and upstream dispatch.
package pipeline

import (
	"context"

	"github.com/jroosing/dnsforward/internal/dnswire"
)

// Continuation represents "the rest of the chain" as a plain function
// value so the cache stage can capture it and re-run it later in a
// background refresh, without cloning a chain of stage objects (§9
// design notes "pipeline without cloning").
type Continuation func(ctx context.Context, q dnswire.Query) (dnswire.Answer, error)

// Stage is one link of the query pipeline. It receives the remaining
// chain as next and decides whether to call it, short-circuit, or
// delegate to it more than once (the cache stage's background-refresh
// branch calls it from a separate goroutine).
type Stage interface {
	Handle(ctx context.Context, q dnswire.Query, next Continuation) (dnswire.Answer, error)
}

// StageFunc adapts a plain function to the Stage interface.
type StageFunc func(ctx context.Context, q dnswire.Query, next Continuation) (dnswire.Answer, error)

// Handle implements Stage.
func (f StageFunc) Handle(ctx context.Context, q dnswire.Query, next Continuation) (dnswire.Answer, error) {
	return f(ctx, q, next)
}

// Chain is an ordered, per-request composition of stages terminated by
// a final continuation (§3 "Pipeline stage set").
type Chain struct {
	stages []Stage
}

// New builds a Chain from stages in the order they should run.
func New(stages ...Stage) *Chain {
	return &Chain{stages: stages}
}

// Run drives q through every stage in order.
func (c *Chain) Run(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
	return c.runFrom(0)(ctx, q)
}

func (c *Chain) runFrom(i int) Continuation {
	if i >= len(c.stages) {
		return func(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
			return dnswire.Answer{}, errNoTerminalStage
		}
	}
	stage := c.stages[i]
	next := c.runFrom(i + 1)
	return func(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
		return stage.Handle(ctx, q, next)
	}
}
