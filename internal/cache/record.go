package cache

import (
	"github.com/jroosing/dnsforward/internal/dnswire"
)

// RecordKind distinguishes the two cacheable answer shapes (§3 Data
// Model "Cache record").
type RecordKind int

const (
	KindIP RecordKind = iota
	KindSOA
)

// Record is a single cached DNS answer keyed by canonical dotted name.
// Only IPv4 and SOA answers are cacheable (§4.D); an IPv4 record holds
// exactly one address because caching happens downstream of IP
// selection in the pipeline (§4.G, §9).
type Record struct {
	Kind           RecordKind
	Key            string
	CreationMillis int64
	TTLMillis      int64
	Addr           [4]byte // valid only when Kind == KindIP
}

// RemainingMillis returns max(0, ttl_ms - (now - creation)).
func (r Record) RemainingMillis(nowMillis int64) int64 {
	remaining := r.TTLMillis - (nowMillis - r.CreationMillis)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether the record's age exceeds its ttl.
func (r Record) Expired(nowMillis int64) bool {
	return (nowMillis - r.CreationMillis) > r.TTLMillis
}

// OrderKey is the eviction order-key: remaining ttl at now.
func (r Record) OrderKey(nowMillis int64) int64 {
	return r.RemainingMillis(nowMillis)
}

// ToAnswer re-emits the record as an answer for id/q, echoing the
// record's remaining ttl in seconds.
func (r Record) ToAnswer(id uint16, q dnswire.Question, nowMillis int64) dnswire.Answer {
	ttlSeconds := uint32(r.RemainingMillis(nowMillis) / 1000)
	switch r.Kind {
	case KindIP:
		return dnswire.NewIPv4Answer(id, q, []dnswire.IPv4Answer{
			{Name: r.Key, TTL: ttlSeconds, Addr: r.Addr},
		})
	case KindSOA:
		return dnswire.NewSOAAnswer(id, q, dnswire.NewDefaultSOA(r.Key, ttlSeconds))
	default:
		return dnswire.NewFailureAnswer(id, q)
	}
}

// FromAnswer builds a cache record from a cacheable answer. The caller
// is responsible for overwriting Key with the original query name
// before inserting, since a's own name may differ after a CNAME chain.
func FromAnswer(a dnswire.Answer, nowMillis int64) (Record, bool) {
	switch a.Kind {
	case dnswire.KindIPv4:
		if len(a.IPv4) == 0 {
			return Record{}, false
		}
		rr := a.IPv4[0]
		return Record{
			Kind:           KindIP,
			Key:            rr.Name,
			CreationMillis: nowMillis,
			TTLMillis:      int64(rr.TTL) * 1000,
			Addr:           rr.Addr,
		}, true
	case dnswire.KindSOA:
		if a.SOA == nil {
			return Record{}, false
		}
		return Record{
			Kind:           KindSOA,
			Key:            a.SOA.Name,
			CreationMillis: nowMillis,
			TTLMillis:      int64(a.SOA.TTL) * 1000,
		}, true
	default:
		return Record{}, false
	}
}
