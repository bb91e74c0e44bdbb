// Package dnswire parses and emits DNS messages restricted to the subset
// this forwarder supports: a single A/IN question on the request path,
// and a tagged answer (IPv4, SOA, Failure, NoSuchName) on the reply path.
package dnswire

import "errors"

var (
	// ErrWire is the sentinel for malformed DNS wire data. Wrap it with
	// fmt.Errorf("context: %w", ErrWire) to add detail while keeping the
	// error matchable with errors.Is.
	ErrWire = errors.New("dns wire error")

	// ErrUnsupportedRData is returned when a resource record carries a
	// type this codec does not model (see §4.B rdata interpretation).
	ErrUnsupportedRData = errors.New("unsupported rdata type")
)
