//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/syngen/entities/synth"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadConfig(Flags{})
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Generation.ComponentCount)
	assert.Equal(t, 1e-6, cfg.Generation.Epsilon)
	assert.Equal(t, int64(42), cfg.Generation.Seed)
	assert.Equal(t, 100_000, cfg.Generation.ChunkSize)
	assert.Equal(t, 1000, cfg.Generation.ChunksPerBatch)
	assert.Equal(t, synth.ModeSamplingUniform, cfg.Generation.ModeSampling)
	assert.False(t, cfg.Generation.CleanupOnFailure)
	assert.Equal(t, 5, cfg.Merge.FlushBatchSize)
	assert.Equal(t, 8<<20, cfg.Merge.TransferBufferBytes)
	assert.Greater(t, cfg.Generation.Workers, 0)
}

func TestLoadYAMLFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "syngen.conf.yaml")
	contents := `
generation:
  component_count: 5
  chunk_size: 250
  mode_sampling: weighted
merge:
  flush_batch_size: 3
`
	require.NoError(t, os.WriteFile(file, []byte(contents), 0o644))

	cfg, err := LoadConfig(Flags{ConfigFile: file})
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Generation.ComponentCount)
	assert.Equal(t, 250, cfg.Generation.ChunkSize)
	assert.Equal(t, synth.ModeSamplingWeighted, cfg.Generation.ModeSampling)
	assert.Equal(t, 3, cfg.Merge.FlushBatchSize)

	// untouched fields keep their defaults
	assert.Equal(t, 1000, cfg.Generation.ChunksPerBatch)
}

func TestLoadJSONFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "syngen.conf.json")
	contents := `{"generation": {"component_count": 7}}`
	require.NoError(t, os.WriteFile(file, []byte(contents), 0o644))

	cfg, err := LoadConfig(Flags{ConfigFile: file})
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Generation.ComponentCount)
}

func TestFlagsOverrideFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "syngen.conf.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  listen_address: :1234\n"), 0o644))

	cfg, err := LoadConfig(Flags{ConfigFile: file, ListenAddress: ":5678"})
	require.NoError(t, err)
	assert.Equal(t, ":5678", cfg.Server.ListenAddress)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero component count", func(c *Config) { c.Generation.ComponentCount = 0 }},
		{"negative epsilon", func(c *Config) { c.Generation.Epsilon = -1 }},
		{"zero chunk size", func(c *Config) { c.Generation.ChunkSize = 0 }},
		{"zero chunks per batch", func(c *Config) { c.Generation.ChunksPerBatch = 0 }},
		{"unknown mode sampling", func(c *Config) { c.Generation.ModeSampling = "roulette" }},
		{"zero flush batch", func(c *Config) { c.Merge.FlushBatchSize = 0 }},
		{"tiny transfer buffer", func(c *Config) { c.Merge.TransferBufferBytes = 16 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestUnsupportedExtension(t *testing.T) {
	file := filepath.Join(t.TempDir(), "syngen.conf.toml")
	require.NoError(t, os.WriteFile(file, []byte(""), 0o644))

	_, err := LoadConfig(Flags{ConfigFile: file})
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported extension")
}
