// Package cache implements the bounded, persistent DNS answer cache: a
// keyed store with proportional eviction, two serving policies
// (expire-strict and stale-with-refresh), and single-flight upstream
// coalescing on miss.
package cache

import "errors"

// ErrCache is the sentinel for cache store and persistence errors.
var ErrCache = errors.New("cache error")
