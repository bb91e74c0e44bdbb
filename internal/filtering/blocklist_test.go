package filtering_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jroosing/dnsforward/internal/filtering"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlocklistContainsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blocked.txt")
	require.NoError(t, os.WriteFile(path, []byte("00-gov.cn\nads.example.com\n"), 0o600))

	bl := filtering.NewBlocklist(filtering.BlocklistOptions{Sources: []string{path}})
	defer bl.Close()

	assert.True(t, bl.Contains("00-gov.cn"))
	assert.True(t, bl.Contains("ads.example.com"))
	assert.False(t, bl.Contains("example.com"))
}

func TestBlocklistEmptySources(t *testing.T) {
	bl := filtering.NewBlocklist(filtering.BlocklistOptions{})
	defer bl.Close()

	assert.False(t, bl.Contains("anything.example.com"))
}
