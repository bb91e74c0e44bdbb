// Package upstream implements the demultiplexing UDP client that forwards
// queries to configured upstream DNS servers: a shared socket, transaction
// id correlation, per-request timeout, and the three server-selection
// strategies (§4.F).
package upstream

import "errors"

// ErrUpstream is the sentinel for dispatcher errors.
var ErrUpstream = errors.New("upstream error")
