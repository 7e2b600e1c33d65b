package optim

import (
	"github.com/fermion-ml/fermion/internal/nn"
	"github.com/fermion-ml/fermion/internal/tensor"
)

// SGD is stochastic gradient descent, optionally with classical momentum.
//
// Without momentum: w -= lr * g.
// With momentum mu: v = mu*v - lr*g; w += v.
type SGD[B tensor.Backend] struct {
	params   []*nn.Parameter[B]
	lr       float32
	momentum float32
	velocity map[*tensor.RawTensor][]float32
}

// NewSGD creates a plain SGD optimizer over the given parameters.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], lr float32) *SGD[B] {
	return &SGD[B]{params: params, lr: lr}
}

// NewSGDWithMomentum creates an SGD optimizer with classical momentum.
func NewSGDWithMomentum[B tensor.Backend](params []*nn.Parameter[B], lr, momentum float32) *SGD[B] {
	return &SGD[B]{
		params:   params,
		lr:       lr,
		momentum: momentum,
		velocity: make(map[*tensor.RawTensor][]float32, len(params)),
	}
}

// Step applies one descent update in place on every parameter that
// received a gradient.
func (s *SGD[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, p := range s.params {
		raw := p.Raw()
		grad := gradFor(raw, grads)
		if grad == nil {
			continue
		}

		weights := raw.AsFloat32()
		if s.momentum == 0 {
			for i := range weights {
				weights[i] -= s.lr * grad[i]
			}
			continue
		}

		v, ok := s.velocity[raw]
		if !ok {
			v = make([]float32, len(weights))
			s.velocity[raw] = v
		}
		for i := range weights {
			v[i] = s.momentum*v[i] - s.lr*grad[i]
			weights[i] += v[i]
		}
	}
}

// LR returns the current learning rate.
func (s *SGD[B]) LR() float32 { return s.lr }

// SetLR changes the learning rate, e.g. for a decay schedule.
func (s *SGD[B]) SetLR(lr float32) { s.lr = lr }
