package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/jroosing/dnsforward/internal/dnswire"
)

// UpstreamFunc represents the rest of the query pipeline as a plain,
// re-runnable function value rather than a cloned chain (§9 design
// notes "pipeline without cloning").
type UpstreamFunc func(ctx context.Context) (dnswire.Answer, error)

// Policy serves a cache hit according to one of the two strategies
// named in §4.D.
type Policy interface {
	Handle(ctx context.Context, id uint16, q dnswire.Question, record Record, upstream UpstreamFunc) (dnswire.Answer, error)
}

func insertCacheable(s *Store, key string, a dnswire.Answer, nowMillis int64) {
	if !a.Cacheable() {
		return
	}
	rec, ok := FromAnswer(a, nowMillis)
	if !ok {
		return
	}
	rec.Key = key
	s.Insert(key, rec)
}

// ExpireStrict serves the stored record while unexpired; once expired
// it awaits the upstream future inline and refreshes the entry with
// whatever comes back (§4.D "expire-strict").
type ExpireStrict struct {
	Store *Store
}

func (p ExpireStrict) Handle(ctx context.Context, id uint16, q dnswire.Question, record Record, upstream UpstreamFunc) (dnswire.Answer, error) {
	now := time.Now().UnixMilli()
	if record.Expired(now) {
		answer, err := upstream(ctx)
		if err != nil {
			return dnswire.Answer{}, err
		}
		insertCacheable(p.Store, record.Key, answer, time.Now().UnixMilli())
		return answer.WithID(id), nil
	}
	return record.ToAnswer(id, q, now), nil
}

// StaleWithRefresh serves a record past its ttl for a grace window of
// TimeoutMs while a background task refreshes it; past the grace
// window it falls back to ExpireStrict's inline-await behavior (§4.D
// "serve-stale-with-refresh").
type StaleWithRefresh struct {
	Store     *Store
	TimeoutMs int64
	Logger    *slog.Logger
	BaseCtx   context.Context
}

func (p StaleWithRefresh) Handle(ctx context.Context, id uint16, q dnswire.Question, record Record, upstream UpstreamFunc) (dnswire.Answer, error) {
	now := time.Now().UnixMilli()
	hardExpired := (now - record.CreationMillis) > (record.TTLMillis + p.TimeoutMs)

	if hardExpired {
		answer, err := upstream(ctx)
		if err != nil {
			return dnswire.Answer{}, err
		}
		insertCacheable(p.Store, record.Key, answer, time.Now().UnixMilli())
		return answer.WithID(id), nil
	}

	if record.Expired(now) {
		go p.refresh(record.Key, upstream)
	}
	return record.ToAnswer(id, q, now), nil
}

// refresh runs the rest of the pipeline in the background and updates
// the store on success. Failures are logged at WARN and otherwise
// discarded: the stale record keeps serving until the next lookup
// triggers another refresh attempt (§12).
func (p StaleWithRefresh) refresh(key string, upstream UpstreamFunc) {
	base := p.BaseCtx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithTimeout(base, 5*time.Second)
	defer cancel()

	answer, err := upstream(ctx)
	if err != nil {
		if p.Logger != nil {
			p.Logger.Warn("background cache refresh failed", "key", key, "err", err)
		}
		return
	}
	insertCacheable(p.Store, key, answer, time.Now().UnixMilli())
}
