package filtering

import (
	"log/slog"
	"sync"
	"time"
)

// PolicyEngine matches domains against a blacklist trie, optionally
// kept fresh by periodically re-fetching remote sources. It backs the
// single capability the query pipeline's DomainFilter stage depends on:
// Blocklist.Contains (§1, §4.G.1).
type PolicyEngine struct {
	logger *slog.Logger

	mu        sync.RWMutex
	blacklist *DomainTrie

	enabled bool

	refreshTicker *time.Ticker
	refreshStop   chan struct{}
}

// PolicyEngineConfig configures a PolicyEngine.
type PolicyEngineConfig struct {
	// Logger is used for policy engine log output. If nil, the default logger is used.
	Logger *slog.Logger

	// Enabled determines if filtering is active. A disabled engine allows everything.
	Enabled bool

	// BlocklistURLs is a list of remote blocklists to fetch and, if
	// RefreshInterval is set, periodically re-fetch.
	BlocklistURLs []BlocklistURL

	// RefreshInterval is how often to refresh remote blocklists.
	// Zero disables automatic refresh.
	RefreshInterval time.Duration
}

// BlocklistURL is a single remote blocklist source.
type BlocklistURL struct {
	Name   string
	URL    string
	Format ListFormat
}

// NewPolicyEngine creates a policy engine with the given configuration.
// Remote sources load in the background so construction never blocks on
// network I/O.
func NewPolicyEngine(cfg PolicyEngineConfig) *PolicyEngine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pe := &PolicyEngine{
		logger:    logger,
		blacklist: NewDomainTrie(),
		enabled:   cfg.Enabled,
	}

	if len(cfg.BlocklistURLs) > 0 {
		parser := NewParser()
		go pe.loadAll(parser, cfg.BlocklistURLs)

		if cfg.RefreshInterval > 0 {
			pe.refreshTicker = time.NewTicker(cfg.RefreshInterval)
			pe.refreshStop = make(chan struct{})
			go pe.refreshLoop(parser, cfg.BlocklistURLs)
		}
	}

	return pe
}

// loadAll fetches and merges every configured remote source.
func (pe *PolicyEngine) loadAll(parser *Parser, urls []BlocklistURL) {
	for _, bl := range urls {
		pe.loadOne(parser, bl)
	}
}

func (pe *PolicyEngine) loadOne(parser *Parser, bl BlocklistURL) {
	trie, err := parser.ParseURL(bl.URL, bl.Format)
	if err != nil {
		pe.logger.Warn("failed to load blocklist", "name", bl.Name, "url", bl.URL, "err", err)
		return
	}
	pe.Merge(trie)
	pe.logger.Info("loaded blocklist", "name", bl.Name, "domains", trie.Size())
}

// refreshLoop re-fetches every remote source on each tick, merging
// fresh entries into the existing blacklist so statically-configured
// domains (merged in once at startup) are never lost on refresh.
func (pe *PolicyEngine) refreshLoop(parser *Parser, urls []BlocklistURL) {
	for {
		select {
		case <-pe.refreshTicker.C:
			pe.logger.Debug("refreshing blocklists")
			pe.loadAll(parser, urls)
		case <-pe.refreshStop:
			return
		}
	}
}

// Evaluate reports whether domain matches the blacklist. A disabled
// engine always reports false.
func (pe *PolicyEngine) Evaluate(domain string) bool {
	if !pe.enabled {
		return false
	}
	pe.mu.RLock()
	defer pe.mu.RUnlock()
	return pe.blacklist.Contains(domain)
}

// Merge adds trie's domains into the engine's blacklist, used to seed
// statically-configured file sources at construction time.
func (pe *PolicyEngine) Merge(trie *DomainTrie) {
	pe.mu.Lock()
	pe.blacklist.Merge(trie)
	pe.mu.Unlock()
}

// Close stops any background refresh goroutine.
func (pe *PolicyEngine) Close() error {
	if pe.refreshTicker != nil {
		pe.refreshTicker.Stop()
	}
	if pe.refreshStop != nil {
		close(pe.refreshStop)
	}
	return nil
}
