package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jroosing/dnsforward/internal/dnswire"
)

// Pool is the cache's public façade: it owns the store, the configured
// serving policy, and the on-disk persistence lifecycle, and coalesces
// concurrent misses for the same name into a single upstream call
// (§4.E, §1 "single-flight upstream coalescing on miss").
type Pool struct {
	store    *Store
	policy   Policy
	group    singleflight.Group
	path     string
	logger   *slog.Logger
	capacity int
	hits     atomic.Int64
	misses   atomic.Int64
}

// Options configures a Pool's construction (§6 cache.* settings).
type Options struct {
	Capacity    int
	Path        string
	GetStrategy CacheGetStrategy
	TTLTimeout  time.Duration
	Logger      *slog.Logger
	BaseCtx     context.Context
}

// CacheGetStrategy selects which Policy a Pool serves hits through
// (§4.D). Mirrors internal/config's enum without importing it, to
// keep this package free of a dependency on the config package.
type CacheGetStrategy int

const (
	GetStrategyExpireStrict CacheGetStrategy = iota
	GetStrategyStaleWithRefresh
)

// NewPool builds a Pool, attempting to load persisted records from
// opts.Path. A missing or corrupt file is not an error: the pool
// simply starts empty (§4.E, §7).
func NewPool(opts Options) *Pool {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := Load(opts.Path, opts.Capacity)
	if err != nil {
		store = NewStore(opts.Capacity)
		logger.Debug("cache: starting empty, no persisted file", "path", opts.Path, "err", err)
	} else {
		logger.Info("cache: loaded persisted records", "path", opts.Path, "count", store.Len())
	}

	p := &Pool{store: store, path: opts.Path, logger: logger, capacity: opts.Capacity}

	switch opts.GetStrategy {
	case GetStrategyStaleWithRefresh:
		p.policy = StaleWithRefresh{
			Store:     store,
			TimeoutMs: opts.TTLTimeout.Milliseconds(),
			Logger:    logger,
			BaseCtx:   opts.BaseCtx,
		}
	default:
		p.policy = ExpireStrict{Store: store}
	}

	return p
}

// Lookup serves q out of the cache, coalescing concurrent misses for
// the same key through a single call to upstream (§1 item 2, §4.E).
// A cache hit bypasses singleflight entirely and never touches
// upstream.
func (p *Pool) Lookup(ctx context.Context, id uint16, q dnswire.Question, key string, upstream func(ctx context.Context) (dnswire.Answer, error)) (dnswire.Answer, error) {
	if record, ok := p.store.Get(key); ok {
		p.hits.Add(1)
		return p.policy.Handle(ctx, id, q, record, upstream)
	}
	p.misses.Add(1)

	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		answer, err := upstream(ctx)
		if err != nil {
			return dnswire.Answer{}, err
		}
		insertCacheable(p.store, key, answer, time.Now().UnixMilli())
		return answer, nil
	})
	if err != nil {
		return dnswire.Answer{}, err
	}
	answer := v.(dnswire.Answer)
	return answer.WithID(id), nil
}

// Len reports the number of records currently cached.
func (p *Pool) Len() int {
	return p.store.Len()
}

// Capacity reports the pool's configured bound.
func (p *Pool) Capacity() int {
	return p.capacity
}

// HitStats reports the running hit/miss counts since construction,
// used by the admin API's read-only stats endpoint (§11 DOMAIN STACK).
func (p *Pool) HitStats() (hits, misses int64) {
	return p.hits.Load(), p.misses.Load()
}

// Save persists the pool's current contents to its configured path.
// Called on graceful shutdown (§4.E, §7).
func (p *Pool) Save() error {
	if p.store.IsEmpty() {
		p.logger.Info("cache: nothing to persist, store is empty")
	}
	if err := Save(p.path, p.store); err != nil {
		return err
	}
	p.logger.Info("cache: persisted records", "path", p.path, "count", p.store.Len())
	return nil
}
