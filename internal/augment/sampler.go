package augment

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler draws the random decisions transforms record into their
// parameter maps. One sampler feeds a whole pipeline; seeding it makes a
// run reproducible, and replaying a recorded ledger bypasses it entirely.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a sampler seeded deterministically.
func NewSampler(seed uint64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Uniform draws n values from [lo, hi). With same set, one value is drawn
// and repeated across the batch.
func (s *Sampler) Uniform(n int, lo, hi float64, same bool) []float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if lo == hi {
		for i := range out {
			out[i] = lo
		}
		return out
	}
	d := distuv.Uniform{Min: lo, Max: hi, Src: s.rng}
	if same {
		v := d.Rand()
		for i := range out {
			out[i] = v
		}
		return out
	}
	for i := range out {
		out[i] = d.Rand()
	}
	return out
}

// Bernoulli draws n gate values in {0, 1} with success probability p.
func (s *Sampler) Bernoulli(n int, p float64, same bool) []float64 {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	d := distuv.Bernoulli{P: p, Src: s.rng}
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if same {
		v := d.Rand()
		for i := range out {
			out[i] = v
		}
		return out
	}
	for i := range out {
		out[i] = d.Rand()
	}
	return out
}

// Normal draws n values from N(mu, sigma²). sigma of zero yields mu.
func (s *Sampler) Normal(n int, mu, sigma float64, same bool) []float64 {
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if sigma <= 0 {
		for i := range out {
			out[i] = mu
		}
		return out
	}
	d := distuv.Normal{Mu: mu, Sigma: sigma, Src: s.rng}
	if same {
		v := d.Rand()
		for i := range out {
			out[i] = v
		}
		return out
	}
	for i := range out {
		out[i] = d.Rand()
	}
	return out
}

// Perm draws a random permutation of [0, n).
func (s *Sampler) Perm(n int) []int {
	return s.rng.Perm(n)
}
