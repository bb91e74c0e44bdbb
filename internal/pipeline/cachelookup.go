package pipeline

import (
	"context"

	"github.com/jroosing/dnsforward/internal/dnswire"
)

// CachePool is the subset of the cache pool façade the pipeline needs.
// Matches internal/cache.Pool's Lookup signature structurally so this
// package never has to import the cache package directly.
type CachePool interface {
	Lookup(ctx context.Context, id uint16, q dnswire.Question, key string, upstream func(ctx context.Context) (dnswire.Answer, error)) (dnswire.Answer, error)
}

// CacheLookup is present in the chain iff caching is enabled (§4.G.3).
// On a hit it hands the cache policy a lazy continuation built from the
// rest of the chain; on a miss the pool itself runs that continuation
// and inserts the result if cacheable.
type CacheLookup struct {
	Pool CachePool
}

// Handle implements Stage.
func (s CacheLookup) Handle(ctx context.Context, q dnswire.Query, next Continuation) (dnswire.Answer, error) {
	upstream := func(ctx context.Context) (dnswire.Answer, error) {
		return next(ctx, q)
	}
	return s.Pool.Lookup(ctx, q.ID, q.Question, q.Question.Name, upstream)
}
