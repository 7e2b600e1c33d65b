// Package optim implements gradient-descent optimizers. An optimizer owns
// the parameters it updates; each Step consumes the gradient map produced
// by the autodiff backward pass, keyed by raw parameter tensor.
package optim

import (
	"fmt"

	"github.com/fermion-ml/fermion/internal/tensor"
)

// Optimizer applies one update from a gradient map. Parameters without an
// entry in the map are left untouched.
type Optimizer interface {
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)
	LR() float32
	SetLR(lr float32)
}

// gradFor looks up a parameter's gradient and validates its shape.
// A missing gradient returns nil; a shape mismatch is a wiring bug and
// panics.
func gradFor(param *tensor.RawTensor, grads map[*tensor.RawTensor]*tensor.RawTensor) []float32 {
	grad, ok := grads[param]
	if !ok {
		return nil
	}
	if !grad.Shape().Equal(param.Shape()) {
		panic(fmt.Sprintf("optim: gradient shape %v does not match parameter shape %v", grad.Shape(), param.Shape()))
	}
	return grad.AsFloat32()
}
