package train

import (
	"math"
)

// vecNet is a network that is nothing but its parameter vector.
type vecNet struct {
	w []float64
	n int
}

func newVecNet(w ...float64) *vecNet {
	return &vecNet{w: w, n: len(w)}
}

func (v *vecNet) Parameters() []float64 { return v.w }
func (v *vecNet) NumParameters() int    { return v.n }

// bowl is minimized at w_i = 3. The first coordinate contributes
// (w_0 - 3)^2; later ones are weighted and carry a quartic term so that
// no method converges in a single step.
func bowl(x []float64) float64 {
	e := 0.0
	for i, w := range x {
		d := w - 3
		e += float64(i+1) * d * d
		if i > 0 {
			e += d * d * d * d
		}
	}
	return e
}

func bowlGrad(dst, x []float64) {
	for i, w := range x {
		d := w - 3
		dst[i] = 2 * float64(i+1) * d
		if i > 0 {
			dst[i] += 4 * d * d * d
		}
	}
}

// quadratic evaluates bowl over the network's parameters and records every
// value it returns.
type quadratic struct {
	seen  []float64
	calls int
	fail  error
}

func (q *quadratic) Error(net Network, _, _ [][]float64) (float64, error) {
	q.calls++
	if q.fail != nil {
		return 0, q.fail
	}
	e := bowl(net.Parameters())
	q.seen = append(q.seen, e)
	return e, nil
}

func (q *quadratic) Grad(net Network, _, _ [][]float64) (float64, []float64, error) {
	q.calls++
	if q.fail != nil {
		return 0, nil, q.fail
	}
	p := net.Parameters()
	g := make([]float64, len(p))
	bowlGrad(g, p)
	e := bowl(p)
	q.seen = append(q.seen, e)
	return e, g, nil
}

func (q *quadratic) last() float64 {
	if len(q.seen) == 0 {
		return math.NaN()
	}
	return q.seen[len(q.seen)-1]
}

var oneSample = Dataset{
	Input:  [][]float64{{0}},
	Target: [][]float64{{0}},
}

func nopHook(float64, Network, [][]float64, [][]float64) error { return nil }

func silentTrials() Option {
	return WithTrialObserver(TrialObserverFunc(func([]float64, float64, bool) {}))
}
