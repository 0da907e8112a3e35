// Package prng implements a seeded 32-bit PRNG with Mulberry32 mixing.
// Given the same seed the output sequence is identical across processes and
// platforms, which persona derivation depends on for auditability.
package prng

// Rand is a deterministic pseudo-random source. Not safe for concurrent use;
// each consumer owns its own instance.
type Rand struct {
	state uint32
}

// New returns a generator seeded with the given 32-bit seed.
func New(seed uint32) *Rand {
	return &Rand{state: seed}
}

// Next advances the state and returns a float64 in [0, 1).
func (r *Rand) Next() float64 {
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296.0
}

// NextInt returns an integer in [0, n). n must be positive.
func (r *Rand) NextInt(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Next() * float64(n))
}

// NextSeed derives a fresh 32-bit seed from the stream.
func (r *Rand) NextSeed() uint32 {
	return uint32(r.Next() * 4294967296.0)
}

// Pick returns a uniformly chosen element of items.
func Pick[T any](r *Rand, items []T) T {
	return items[r.NextInt(len(items))]
}

// PickExcluding rejection-samples until it draws a value different from
// excluded. If items holds no alternative it returns excluded unchanged.
func PickExcluding[T comparable](r *Rand, items []T, excluded T) T {
	alternative := false
	for _, it := range items {
		if it != excluded {
			alternative = true
			break
		}
	}
	if !alternative {
		return excluded
	}
	for {
		v := Pick(r, items)
		if v != excluded {
			return v
		}
	}
}

// Shuffle permutes items in place with a Fisher-Yates walk.
func Shuffle[T any](r *Rand, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := r.NextInt(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// Sample returns up to n elements drawn without replacement.
func Sample[T any](r *Rand, items []T, n int) []T {
	cp := make([]T, len(items))
	copy(cp, items)
	Shuffle(r, cp)
	if n > len(cp) {
		n = len(cp)
	}
	return cp[:n]
}
