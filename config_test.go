package anoncreds

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	params, err := cfg.SystemParameters()
	require.NoError(t, err)
	assert.Equal(t, uint(2048), params.Ln)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(map[string]interface{}{
		"modulusBits":         1024,
		"accumulatorCapacity": "16",
	})
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.ModulusBits)
	assert.Equal(t, uint32(16), cfg.AccumulatorCapacity)
	assert.Equal(t, uint(2), cfg.PredicatePieceWidth)

	_, err = ParseConfig(map[string]interface{}{"modulusBits": 1000})
	assert.Error(t, err)
	_, err = ParseConfig(map[string]interface{}{"accumulatorCapacity": 0})
	assert.Error(t, err)
	_, err = ParseConfig(map[string]interface{}{"predicatePieceWidth": 9})
	assert.Error(t, err)
	_, err = ParseConfig(map[string]interface{}{"colour": "blue"})
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anoncreds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("modulusBits: 4096\npredicatePieceWidth: 4\n"), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4096, cfg.ModulusBits)
	assert.Equal(t, uint(4), cfg.PredicatePieceWidth)
	assert.Equal(t, DefaultConfig().AccumulatorCapacity, cfg.AccumulatorCapacity)

	path = filepath.Join(dir, "anoncreds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"accumulatorCapacity": 8}`), 0600))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), cfg.AccumulatorCapacity)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
