package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBasePath        = "sst_data"
	DefaultMaxInMemorySize = 1000
	DefaultSparseOffset    = 300
	DefaultSegmentSize     = 50
	DefaultMergeThreshold  = 3
	DefaultBloomItems      = 10000
	DefaultBloomRate       = 0.01
	DefaultCacheSize       = 1024
	DefaultListenAddr      = ":8080"
)

// Config carries the storage engine knobs together with the
// server and logging settings read from the config file.
type Config struct {
	BasePath        string `yaml:"base_path"`
	MaxInMemorySize int    `yaml:"max_in_memory_size"`
	SparseOffset    int    `yaml:"sparse_offset"`
	SegmentSize     int    `yaml:"segment_size"`
	MergeThreshold  int    `yaml:"merge_threshold"`
	PersistSegments bool   `yaml:"persist_segments"`

	BloomExpectedItems     int     `yaml:"bloom_expected_items"`
	BloomFalsePositiveRate float64 `yaml:"bloom_false_positive_rate"`

	// CacheSize bounds the read-through LRU cache. 0 disables it.
	CacheSize int `yaml:"cache_size"`

	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
	LogFile    string `yaml:"log_file"`
}

// New returns a config with defaults rooted at dir.
func New(dir string) *Config {
	if dir == "" {
		dir = DefaultBasePath
	}
	return &Config{
		BasePath:               dir,
		MaxInMemorySize:        DefaultMaxInMemorySize,
		SparseOffset:           DefaultSparseOffset,
		SegmentSize:            DefaultSegmentSize,
		MergeThreshold:         DefaultMergeThreshold,
		PersistSegments:        true,
		BloomExpectedItems:     DefaultBloomItems,
		BloomFalsePositiveRate: DefaultBloomRate,
		CacheSize:              DefaultCacheSize,
		ListenAddr:             DefaultListenAddr,
		LogLevel:               "info",
	}
}

// FromFile reads a yaml config file. Fields absent from the file
// keep their default values.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := New("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every knob is inside its legal range.
func (c *Config) Validate() error {
	if c.BasePath == "" {
		return errors.New("base_path must not be empty")
	}
	if c.MaxInMemorySize <= 0 {
		return errors.New("max_in_memory_size must be positive")
	}
	if c.SparseOffset <= 0 {
		return errors.New("sparse_offset must be positive")
	}
	if c.SegmentSize <= 0 {
		return errors.New("segment_size must be positive")
	}
	if c.MergeThreshold < 2 {
		return errors.New("merge_threshold must be at least 2")
	}
	if c.BloomExpectedItems <= 0 {
		return errors.New("bloom_expected_items must be positive")
	}
	if c.BloomFalsePositiveRate <= 0 || c.BloomFalsePositiveRate >= 1 {
		return errors.New("bloom_false_positive_rate must be in (0, 1)")
	}
	if c.CacheSize < 0 {
		return errors.New("cache_size must not be negative")
	}
	return nil
}
