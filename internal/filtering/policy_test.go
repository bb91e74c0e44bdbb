package filtering

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestServer(t *testing.T, body func() string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body()))
	}))
}

func TestPolicyEngine_Evaluate(t *testing.T) {
	pe := NewPolicyEngine(PolicyEngineConfig{Enabled: true})
	defer pe.Close()

	static := NewDomainTrie()
	static.Add("ads.example.com", true)
	static.Add("tracker.example.org", false)
	pe.Merge(static)

	tests := []struct {
		name   string
		domain string
		want   bool
	}{
		{"blocked domain", "ads.example.com", true},
		{"subdomain of wildcard blocked domain", "sub.ads.example.com", true},
		{"another blocked domain", "tracker.example.org", true},
		{"unblocked domain", "google.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pe.Evaluate(tt.domain), "Evaluate(%q)", tt.domain)
		})
	}
}

func TestPolicyEngine_Disabled(t *testing.T) {
	pe := NewPolicyEngine(PolicyEngineConfig{Enabled: false})
	defer pe.Close()

	static := NewDomainTrie()
	static.Add("ads.example.com", true)
	pe.Merge(static)

	assert.False(t, pe.Evaluate("ads.example.com"), "disabled engine should allow everything")
}

func TestPolicyEngine_LoadsAndRefreshesRemoteSource(t *testing.T) {
	var requests int
	bodies := []string{"ads.example.com\n", "ads.example.com\nnew.example.com\n"}
	server := newTestServer(t, func() string {
		body := bodies[min(requests, len(bodies)-1)]
		requests++
		return body
	})
	defer server.Close()

	pe := NewPolicyEngine(PolicyEngineConfig{
		Enabled: true,
		BlocklistURLs: []BlocklistURL{
			{Name: "test", URL: server.URL, Format: FormatDomains},
		},
		RefreshInterval: 20 * time.Millisecond,
	})
	defer pe.Close()

	assert.Eventually(t, func() bool {
		return pe.Evaluate("ads.example.com")
	}, time.Second, 5*time.Millisecond, "expected initial load to populate blacklist")

	assert.Eventually(t, func() bool {
		return pe.Evaluate("new.example.com")
	}, time.Second, 5*time.Millisecond, "expected refresh to pick up the new domain")
}

func TestPolicyEngine_Close(t *testing.T) {
	pe := NewPolicyEngine(PolicyEngineConfig{Enabled: true})
	assert.NoError(t, pe.Close())
}

func BenchmarkPolicyEngine_Evaluate(b *testing.B) {
	pe := NewPolicyEngine(PolicyEngineConfig{Enabled: true})
	defer pe.Close()

	static := NewDomainTrie()
	for i := range 10000 {
		static.Add(fmt.Sprintf("blocked%d.example.com", i), false)
	}
	pe.Merge(static)

	domains := []string{
		"blocked5000.example.com",
		"safe.example.com",
		"blocked1.example.com",
		"blocked9999.example.com",
	}

	for i := 0; b.Loop(); i++ {
		pe.Evaluate(domains[i%len(domains)])
	}
}

func BenchmarkPolicyEngine_Evaluate_Parallel(b *testing.B) {
	pe := NewPolicyEngine(PolicyEngineConfig{Enabled: true})
	defer pe.Close()

	static := NewDomainTrie()
	for i := range 10000 {
		static.Add(fmt.Sprintf("blocked%d.example.com", i), false)
	}
	pe.Merge(static)

	domains := []string{
		"blocked5000.example.com",
		"safe.example.com",
		"blocked1.example.com",
		"blocked9999.example.com",
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			pe.Evaluate(domains[i%len(domains)])
			i++
		}
	})
}
