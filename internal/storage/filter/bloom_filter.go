package filter

import (
	"math"

	"github.com/twmb/murmur3"
)

// seedStep spaces the per-hash seeds along a Weyl sequence so the k
// murmur3 hashes act independently.
const seedStep = 0x9E3779B9

// BloomFilter is a bit array sized from an expected item count and a
// target false-positive rate:
//
//	m = ceil(-n * ln p / (ln 2)^2)
//	k = ceil(m/n * ln 2)
//
// It never reports a false negative for an added key. It carries no
// lock: the engine adds under its write lock and tests under its read
// lock.
type BloomFilter struct {
	expectedItems int
	fpRate        float64
	m             int // bit array length
	seeds         []uint32
	bits          []byte
}

var _ Filter = (*BloomFilter)(nil)

// New sizes a bloom filter for n expected items at false-positive
// rate p. Out-of-range arguments fall back to n=1, p=0.01.
func New(n int, p float64) *BloomFilter {
	if n <= 0 {
		n = 1
	}
	if p <= 0 || p >= 1 {
		p = 0.01
	}
	ln2 := math.Ln2
	m := int(math.Ceil(-float64(n) * math.Log(p) / (ln2 * ln2)))
	if m < 8 {
		m = 8
	}
	k := int(math.Ceil(float64(m) / float64(n) * ln2))
	if k < 1 {
		k = 1
	}

	seeds := make([]uint32, k)
	for i := range seeds {
		seeds[i] = uint32(i+1) * seedStep
	}
	return &BloomFilter{
		expectedItems: n,
		fpRate:        p,
		m:             m,
		seeds:         seeds,
		bits:          make([]byte, (m+7)/8),
	}
}

// Add sets the k bit positions for key.
func (b *BloomFilter) Add(key string) {
	for _, seed := range b.seeds {
		pos := murmur3.SeedSum32(seed, []byte(key)) % uint32(b.m)
		b.bits[pos>>3] |= 1 << (pos & 7)
	}
}

// MightContain reports whether all k bit positions for key are set.
func (b *BloomFilter) MightContain(key string) bool {
	for _, seed := range b.seeds {
		pos := murmur3.SeedSum32(seed, []byte(key)) % uint32(b.m)
		if b.bits[pos>>3]&(1<<(pos&7)) == 0 {
			return false
		}
	}
	return true
}

func (b *BloomFilter) BitArrayLength() int    { return b.m }
func (b *BloomFilter) HashFunctionCount() int { return len(b.seeds) }

// Seeds returns a copy of the per-hash seeds.
func (b *BloomFilter) Seeds() []uint32 {
	out := make([]uint32, len(b.seeds))
	copy(out, b.seeds)
	return out
}
