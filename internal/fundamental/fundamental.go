// Package fundamental implements the latent "true price" process used
// by fundamental-aware algorithms: a lazy, memoized mean-reverting
// random walk with shock probability.
package fundamental

import "math/rand"

// Fundamental extends f[0..N] forward on demand and memoizes the
// result so repeated Value(t) calls for the same tick are stable.
type Fundamental struct {
	Kappa     float64
	Mean      float64
	ShockSD   float64
	ShockProb float64

	rng    *rand.Rand
	values []float64
}

// New constructs a Fundamental seeded deterministically from the
// simulation's master RNG stream.
func New(kappa, mean, shockSD, shockProb float64, seed int64) *Fundamental {
	return &Fundamental{
		Kappa:     kappa,
		Mean:      mean,
		ShockSD:   shockSD,
		ShockProb: shockProb,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Value returns f[floor(t)], extending the sequence as needed.
func (f *Fundamental) Value(t float64) float64 {
	idx := int(t)
	if idx < 0 {
		idx = 0
	}
	f.extendTo(idx)
	return f.values[idx]
}

func (f *Fundamental) extendTo(idx int) {
	if len(f.values) == 0 {
		f.values = append(f.values, f.rng.NormFloat64()*f.ShockSD+f.Mean)
	}
	for len(f.values) <= idx {
		prev := f.values[len(f.values)-1]
		if f.rng.Float64() < f.ShockProb {
			next := f.Mean*f.Kappa + prev*(1-f.Kappa)
			f.values = append(f.values, f.rng.NormFloat64()*f.ShockSD+next)
		} else {
			f.values = append(f.values, prev)
		}
	}
}
