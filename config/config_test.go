package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesOnlySpecifiedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dstclean.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
error_limit: 5
force_passthrough: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.ErrorLimit)
	assert.True(t, cfg.ForcePassthrough)
	assert.True(t, cfg.AutoReadRealloc, "unspecified field should keep its default")
	assert.True(t, cfg.AutoWriteRealloc, "unspecified field should keep its default")
	assert.Equal(t, uint64(5000), cfg.NeighborhoodRadius)
	assert.Equal(t, uint64(10000), cfg.NeighborhoodMaxRange)
}

func TestLoadRewritesZeroErrorLimitToOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dstclean.yaml")
	require.NoError(t, os.WriteFile(path, []byte("error_limit: 0\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.ErrorLimit)
}

func TestLoadPropagatesParseErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dstclean.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid: yaml"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
