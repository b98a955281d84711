package filter

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// persistedFilter is the on-disk shape of a bloom filter: a single
// yaml document carrying the sizing parameters, the seeds and the
// base64-encoded bit vector.
type persistedFilter struct {
	ExpectedItems     int      `yaml:"expected_items"`
	FalsePositiveRate float64  `yaml:"false_positive_rate"`
	BitArrayLength    int      `yaml:"bit_array_length"`
	HashFunctionCount int      `yaml:"hash_function_count"`
	Seeds             []uint32 `yaml:"seeds"`
	Bits              string   `yaml:"bits"`
}

// Save writes the filter to a single text file.
func (b *BloomFilter) Save(path string) error {
	data, err := yaml.Marshal(&persistedFilter{
		ExpectedItems:     b.expectedItems,
		FalsePositiveRate: b.fpRate,
		BitArrayLength:    b.m,
		HashFunctionCount: len(b.seeds),
		Seeds:             b.seeds,
		Bits:              base64.StdEncoding.EncodeToString(b.bits),
	})
	if err != nil {
		return fmt.Errorf("marshal bloom filter: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write bloom filter: %w", err)
	}
	return nil
}

// Load reads a filter persisted by Save. Missing or size-inconsistent
// fields are rejected.
func Load(path string) (*BloomFilter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bloom filter: %w", err)
	}
	var p persistedFilter
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse bloom filter: %w", err)
	}

	switch {
	case p.ExpectedItems <= 0:
		return nil, errors.New("bloom filter file: expected_items missing or not positive")
	case p.FalsePositiveRate <= 0 || p.FalsePositiveRate >= 1:
		return nil, errors.New("bloom filter file: false_positive_rate out of range")
	case p.BitArrayLength <= 0:
		return nil, errors.New("bloom filter file: bit_array_length missing or not positive")
	case p.HashFunctionCount <= 0:
		return nil, errors.New("bloom filter file: hash_function_count missing or not positive")
	case len(p.Seeds) != p.HashFunctionCount:
		return nil, fmt.Errorf("bloom filter file: %d seeds for %d hash functions", len(p.Seeds), p.HashFunctionCount)
	}

	bits, err := base64.StdEncoding.DecodeString(p.Bits)
	if err != nil {
		return nil, fmt.Errorf("bloom filter file: decode bits: %w", err)
	}
	if len(bits) != (p.BitArrayLength+7)/8 {
		return nil, fmt.Errorf("bloom filter file: %d bit vector bytes for length %d", len(bits), p.BitArrayLength)
	}

	return &BloomFilter{
		expectedItems: p.ExpectedItems,
		fpRate:        p.FalsePositiveRate,
		m:             p.BitArrayLength,
		seeds:         p.Seeds,
		bits:          bits,
	}, nil
}
