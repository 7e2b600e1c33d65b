package optim

import (
	"math"

	"github.com/fermion-ml/fermion/internal/nn"
	"github.com/fermion-ml/fermion/internal/tensor"
)

// Adam implements the Adam optimizer (Kingma & Ba, 2014) with bias-corrected
// first and second moment estimates.
type Adam[B tensor.Backend] struct {
	params []*nn.Parameter[B]
	lr     float32
	beta1  float32
	beta2  float32
	eps    float32

	step int
	m    map[*tensor.RawTensor][]float32
	v    map[*tensor.RawTensor][]float32
}

// NewAdam creates an Adam optimizer with the usual defaults
// (beta1=0.9, beta2=0.999, eps=1e-8).
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], lr float32) *Adam[B] {
	return &Adam[B]{
		params: params,
		lr:     lr,
		beta1:  0.9,
		beta2:  0.999,
		eps:    1e-8,
		m:      make(map[*tensor.RawTensor][]float32, len(params)),
		v:      make(map[*tensor.RawTensor][]float32, len(params)),
	}
}

// Step applies one Adam update in place on every parameter that received a
// gradient.
func (a *Adam[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.step++
	correction1 := 1 - float32(math.Pow(float64(a.beta1), float64(a.step)))
	correction2 := 1 - float32(math.Pow(float64(a.beta2), float64(a.step)))

	for _, p := range a.params {
		raw := p.Raw()
		grad := gradFor(raw, grads)
		if grad == nil {
			continue
		}

		weights := raw.AsFloat32()
		m, ok := a.m[raw]
		if !ok {
			m = make([]float32, len(weights))
			a.m[raw] = m
		}
		v, ok := a.v[raw]
		if !ok {
			v = make([]float32, len(weights))
			a.v[raw] = v
		}

		for i, g := range grad {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g
			v[i] = a.beta2*v[i] + (1-a.beta2)*g*g

			mHat := m[i] / correction1
			vHat := v[i] / correction2
			weights[i] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
		}
	}
}

// LR returns the current learning rate.
func (a *Adam[B]) LR() float32 { return a.lr }

// SetLR changes the learning rate.
func (a *Adam[B]) SetLR(lr float32) { a.lr = lr }
