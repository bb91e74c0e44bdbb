package filtering

import (
	"log/slog"
	"strings"
	"time"
)

// Blocklist adapts the policy engine to the single-method capability the
// query pipeline's DomainFilter stage depends on (§1, §4.G.1): a blocklist
// is injected as an opaque `Contains(name) bool`, nothing more.
type Blocklist struct {
	engine *PolicyEngine
}

// BlocklistOptions configures how blocklist sources are loaded.
type BlocklistOptions struct {
	// Sources is a list of blocklist locations, each either a filesystem
	// path or an http(s) URL (§6 "filters: list of path-or-url").
	Sources []string
	// RefreshInterval re-fetches URL sources periodically; zero disables
	// automatic refresh. File sources are read once at startup.
	RefreshInterval time.Duration
	Logger          *slog.Logger
}

// NewBlocklist builds a Blocklist from the configured sources. File
// sources are parsed synchronously so Contains is correct as soon as
// NewBlocklist returns; URL sources load in the background (matching
// PolicyEngine's own startup behavior) and refresh on RefreshInterval.
func NewBlocklist(opts BlocklistOptions) *Blocklist {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := PolicyEngineConfig{
		Logger:          logger,
		Enabled:         true,
		RefreshInterval: opts.RefreshInterval,
	}

	parser := NewParser()
	static := NewDomainTrie()
	for _, src := range opts.Sources {
		if isURL(src) {
			cfg.BlocklistURLs = append(cfg.BlocklistURLs, BlocklistURL{
				Name:   src,
				URL:    src,
				Format: FormatAuto,
			})
			continue
		}
		trie, err := parser.ParseFile(src, FormatAuto)
		if err != nil {
			logger.Warn("failed to load blocklist file", "path", src, "err", err)
			continue
		}
		static.Merge(trie)
	}

	engine := NewPolicyEngine(cfg)
	engine.Merge(static)

	return &Blocklist{engine: engine}
}

// Contains reports whether name matches a blocklist entry (§4.G.1).
func (b *Blocklist) Contains(name string) bool {
	return b.engine.Evaluate(name)
}

// Close stops any background refresh goroutines.
func (b *Blocklist) Close() error {
	return b.engine.Close()
}

func isURL(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
