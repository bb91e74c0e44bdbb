package upstream

import (
	"context"
	"time"

	"github.com/jroosing/dnsforward/internal/dnswire"
)

// probeQuery is the fixed probe used to race upstreams (§4.F
// "fastest-sticky", grounded on the Rust original's default benchmark
// query).
var probeQuery = dnswire.Query{
	Flags: dnswire.FlagRD,
	Question: dnswire.Question{
		Name:  "www.baidu.com",
		Type:  dnswire.TypeA,
		Class: dnswire.ClassIN,
	},
}

// RunBenchmark periodically races all configured servers on probeQuery
// and updates the server set's fastest pointer to the index of the
// first responder (§4.F "fastest-sticky", §4.I). Only meaningful when
// Strategy == StrategyFastestSticky; the caller decides whether to
// start this loop.
func (d *Dispatcher) RunBenchmark(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.BenchmarkOnce(ctx)
		}
	}
}

// BenchmarkOnce runs a single re-benchmark round: it races probeQuery
// against every configured server and updates the fastest pointer to
// the first responder. Exported so RunBenchmark's periodic behavior is
// independently testable.
func (d *Dispatcher) BenchmarkOnce(ctx context.Context) {
	servers := d.Servers.All()
	type probeResult struct {
		index  int
		answer dnswire.Answer
		err    error
	}
	results := make(chan probeResult, len(servers))

	for i, server := range servers {
		i, server := i, server
		go func() {
			answer, err := d.sendAndAwait(ctx, probeQuery, server)
			results <- probeResult{index: i, answer: answer, err: err}
		}()
	}

	for range servers {
		r := <-results
		if r.err == nil && r.answer.Kind != dnswire.KindFailure {
			d.Servers.SetFastestIndex(r.index)
			d.Logger.Debug("benchmark: fastest upstream updated", "index", r.index, "server", servers[r.index])
			return
		}
	}
	d.Logger.Warn("benchmark: no upstream responded")
}
