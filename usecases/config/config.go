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
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/weaviate/syngen/entities/synth"
)

// DefaultConfigFile is the default file when no config file is provided
const DefaultConfigFile string = "./syngen.conf.yaml"

const (
	DefaultComponentCount = 10
	DefaultEpsilon        = 1e-6
	DefaultSeed           = int64(42)
	DefaultChunkSize      = 100_000
	DefaultChunksPerBatch = 1000

	DefaultMergeFlushBatchSize  = 5
	DefaultTransferBufferBytes  = 8 << 20
	DefaultMetricsListenAddress = ":2112"
	DefaultListenAddress        = ":8080"
)

// Flags are the command line options of the server binary.
type Flags struct {
	ConfigFile string `long:"config-file" env:"SYNGEN_CONFIG_FILE" description:"path to config file (default: ./syngen.conf.yaml)"`

	ListenAddress        string `long:"listen" env:"SYNGEN_LISTEN" description:"address the job API listens at"`
	MetricsListenAddress string `long:"metrics.listen" env:"SYNGEN_METRICS_LISTEN" description:"address the prometheus endpoint listens at"`
	LogLevel             string `long:"log-level" env:"SYNGEN_LOG_LEVEL" description:"log level: trace, debug, info, warning, error"`
	LogFormat            string `long:"log-format" env:"SYNGEN_LOG_FORMAT" description:"log format: text or json"`
}

// Server configures the HTTP surfaces.
type Server struct {
	ListenAddress        string `json:"listen_address" yaml:"listen_address"`
	MetricsListenAddress string `json:"metrics_listen_address" yaml:"metrics_listen_address"`
}

// Logging configures the logger the server hands down to every component.
type Logging struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Generation holds the model fitting and chunked generation knobs.
type Generation struct {
	// ComponentCount is the upper bound on mixture components.
	ComponentCount int `json:"component_count" yaml:"component_count"`

	// Epsilon is the weight threshold below which a fitted component is
	// pruned.
	Epsilon float64 `json:"epsilon" yaml:"epsilon"`

	// Seed makes fitting and generation reproducible.
	Seed int64 `json:"seed" yaml:"seed"`

	ChunkSize      int `json:"chunk_size" yaml:"chunk_size"`
	ChunksPerBatch int `json:"chunks_per_batch" yaml:"chunks_per_batch"`

	// Workers bounds the generation pool. Zero means one worker per
	// logical CPU.
	Workers int `json:"workers" yaml:"workers"`

	// ModeSampling selects uniform or weighted mode indicator draws.
	// Uniform matches the historical behavior: generated mixture
	// proportions do not follow the fitted weights.
	ModeSampling synth.ModeSampling `json:"mode_sampling" yaml:"mode_sampling"`

	// CleanupOnFailure removes artifacts written by sibling workers when
	// a job aborts. Off by default so failed runs can be inspected.
	CleanupOnFailure bool `json:"cleanup_on_failure" yaml:"cleanup_on_failure"`
}

// Merge holds the merge stage knobs.
type Merge struct {
	// FlushBatchSize is the number of artifacts consumed between explicit
	// flushes of the final artifact.
	FlushBatchSize int `json:"flush_batch_size" yaml:"flush_batch_size"`

	// TransferBufferBytes bounds the copy buffer, and with it the merge
	// stage's peak memory, regardless of artifact size.
	TransferBufferBytes int `json:"transfer_buffer_bytes" yaml:"transfer_buffer_bytes"`
}

// Config outline of the config file
type Config struct {
	Server     Server     `json:"server" yaml:"server"`
	Logging    Logging    `json:"logging" yaml:"logging"`
	Generation Generation `json:"generation" yaml:"generation"`
	Merge      Merge      `json:"merge" yaml:"merge"`
}

// DefaultConfig returns a fully populated config.
func DefaultConfig() Config {
	return Config{
		Server: Server{
			ListenAddress:        DefaultListenAddress,
			MetricsListenAddress: DefaultMetricsListenAddress,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Generation: Generation{
			ComponentCount: DefaultComponentCount,
			Epsilon:        DefaultEpsilon,
			Seed:           DefaultSeed,
			ChunkSize:      DefaultChunkSize,
			ChunksPerBatch: DefaultChunksPerBatch,
			Workers:        runtime.GOMAXPROCS(0),
			ModeSampling:   synth.ModeSamplingUniform,
		},
		Merge: Merge{
			FlushBatchSize:      DefaultMergeFlushBatchSize,
			TransferBufferBytes: DefaultTransferBufferBytes,
		},
	}
}

// LoadConfig merges the optional config file and command line flags over
// the defaults.
func LoadConfig(flags Flags) (Config, error) {
	cfg := DefaultConfig()

	file := flags.ConfigFile
	if file == "" {
		file = DefaultConfigFile
		if _, err := os.Stat(file); os.IsNotExist(err) {
			file = ""
		}
	}

	if file != "" {
		if err := cfg.parseConfigFile(file); err != nil {
			return cfg, err
		}
	}

	if flags.ListenAddress != "" {
		cfg.Server.ListenAddress = flags.ListenAddress
	}
	if flags.MetricsListenAddress != "" {
		cfg.Server.MetricsListenAddress = flags.MetricsListenAddress
	}
	if flags.LogLevel != "" {
		cfg.Logging.Level = flags.LogLevel
	}
	if flags.LogFormat != "" {
		cfg.Logging.Format = flags.LogFormat
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) parseConfigFile(file string) error {
	contents, err := os.ReadFile(file)
	if err != nil {
		return errors.Wrapf(err, "read config file %q", file)
	}

	switch {
	case strings.HasSuffix(file, ".yaml"), strings.HasSuffix(file, ".yml"):
		err = yaml.Unmarshal(contents, c)
	case strings.HasSuffix(file, ".json"):
		err = json.Unmarshal(contents, c)
	default:
		return fmt.Errorf("config file %q: unsupported extension, want .yaml, .yml or .json", file)
	}
	if err != nil {
		return errors.Wrapf(err, "parse config file %q", file)
	}

	return nil
}

// Validate rejects configs the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Generation.ComponentCount < 1 {
		return fmt.Errorf("generation.component_count must be at least 1, got %d",
			c.Generation.ComponentCount)
	}
	if c.Generation.Epsilon <= 0 {
		return fmt.Errorf("generation.epsilon must be positive, got %g",
			c.Generation.Epsilon)
	}
	if c.Generation.ChunkSize < 1 {
		return fmt.Errorf("generation.chunk_size must be at least 1, got %d",
			c.Generation.ChunkSize)
	}
	if c.Generation.ChunksPerBatch < 1 {
		return fmt.Errorf("generation.chunks_per_batch must be at least 1, got %d",
			c.Generation.ChunksPerBatch)
	}
	if c.Generation.Workers < 0 {
		return fmt.Errorf("generation.workers must not be negative, got %d",
			c.Generation.Workers)
	}
	switch c.Generation.ModeSampling {
	case synth.ModeSamplingUniform, synth.ModeSamplingWeighted:
	default:
		return fmt.Errorf("generation.mode_sampling must be %q or %q, got %q",
			synth.ModeSamplingUniform, synth.ModeSamplingWeighted,
			c.Generation.ModeSampling)
	}
	if c.Merge.FlushBatchSize < 1 {
		return fmt.Errorf("merge.flush_batch_size must be at least 1, got %d",
			c.Merge.FlushBatchSize)
	}
	if c.Merge.TransferBufferBytes < 4096 {
		return fmt.Errorf("merge.transfer_buffer_bytes must be at least 4096, got %d",
			c.Merge.TransferBufferBytes)
	}

	return nil
}
