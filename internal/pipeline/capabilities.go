package pipeline

import "context"

// Blocklist is the opaque domain-filtering capability the DomainFilter
// stage depends on (§2 component J).
type Blocklist interface {
	Contains(name string) bool
}

// Prober is the opaque ICMP echo capability the IPSelect stage depends
// on (§2 component K). It probes every address concurrently and
// reports the index of whichever answers first.
type Prober interface {
	Probe(ctx context.Context, addrs [][4]byte) (winner int, err error)
}
