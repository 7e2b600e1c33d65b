package nn

import "github.com/fermion-ml/fermion/internal/tensor"

// Parameter is a named trainable tensor. Gradients are not stored here:
// the backward pass returns them keyed by the parameter's raw tensor, and
// optimizers look them up through Raw().
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[float32, B]
}

// NewParameter wraps an initialized tensor as a trainable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{name: name, tensor: t}
}

// Name returns the parameter name, e.g. "weight" or "bias".
func (p *Parameter[B]) Name() string { return p.name }

// Tensor returns the underlying parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] { return p.tensor }

// Raw returns the raw tensor identity used as the gradient map key.
func (p *Parameter[B]) Raw() *tensor.RawTensor { return p.tensor.Raw() }
