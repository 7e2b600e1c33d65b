package nn

import "github.com/fermion-ml/fermion/internal/tensor"

// Activation kernels live on the backend so the autodiff decorator can
// record them. Each module asserts the capability it needs and panics with
// a usable message when the backend lacks it.

type reluBackend interface {
	ReLU(x *tensor.RawTensor) *tensor.RawTensor
}

type sigmoidBackend interface {
	Sigmoid(x *tensor.RawTensor) *tensor.RawTensor
}

type tanhBackend interface {
	Tanh(x *tensor.RawTensor) *tensor.RawTensor
}

// ReLU applies max(0, x) element-wise.
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] { return &ReLU[B]{} }

func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	rb, ok := any(backend).(reluBackend)
	if !ok {
		panic("ReLU: backend does not provide a ReLU kernel")
	}
	return tensor.New[float32](rb.ReLU(input.Raw()), backend)
}

func (r *ReLU[B]) Parameters() []*Parameter[B] { return nil }

// Sigmoid applies 1 / (1 + exp(-x)) element-wise.
type Sigmoid[B tensor.Backend] struct{}

// NewSigmoid creates a sigmoid activation module.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] { return &Sigmoid[B]{} }

func (s *Sigmoid[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	sb, ok := any(backend).(sigmoidBackend)
	if !ok {
		panic("Sigmoid: backend does not provide a Sigmoid kernel")
	}
	return tensor.New[float32](sb.Sigmoid(input.Raw()), backend)
}

func (s *Sigmoid[B]) Parameters() []*Parameter[B] { return nil }

// Tanh applies the hyperbolic tangent element-wise.
type Tanh[B tensor.Backend] struct{}

// NewTanh creates a tanh activation module.
func NewTanh[B tensor.Backend]() *Tanh[B] { return &Tanh[B]{} }

func (t *Tanh[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	tb, ok := any(backend).(tanhBackend)
	if !ok {
		panic("Tanh: backend does not provide a Tanh kernel")
	}
	return tensor.New[float32](tb.Tanh(input.Raw()), backend)
}

func (t *Tanh[B]) Parameters() []*Parameter[B] { return nil }
