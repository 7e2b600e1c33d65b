// Package autodiff implements reverse-mode automatic differentiation as a
// backend decorator.
//
// Backend[B] wraps any tensor.Backend and records every differentiable
// operation on a GradientTape during the forward pass. Walking the tape in
// reverse yields gradients for all recorded tensors, including model
// parameters.
//
// Usage:
//
//	ad := autodiff.New(cpu.New())
//	ad.Tape().StartRecording()
//	// ... forward pass, loss ...
//	grads := ad.Gradients(loss)
package autodiff

import (
	"fmt"

	"github.com/fermion-ml/fermion/internal/autodiff/ops"
	"github.com/fermion-ml/fermion/internal/tensor"
)

// activationKernels are the fused kernels a wrapped backend may provide
// beyond the core tensor.Backend surface. The CPU backend provides all of
// them.
type activationKernels interface {
	ReLU(x *tensor.RawTensor) *tensor.RawTensor
	Sigmoid(x *tensor.RawTensor) *tensor.RawTensor
	Tanh(x *tensor.RawTensor) *tensor.RawTensor
	LogSoftmax(x *tensor.RawTensor) *tensor.RawTensor
}

// Backend decorates an inner backend with gradient tracking. It implements
// tensor.Backend itself, so models run unchanged on top of it.
//
// Every recorded method pins its operands with ForceNonUnique before
// delegating: the inner backend reuses unique buffers in place, and an
// in-place update would corrupt tensors the tape still references.
type Backend[B tensor.Backend] struct {
	inner   B
	tape    *GradientTape
	kernels activationKernels // nil when the inner backend lacks them
}

// New wraps a backend with a fresh, non-recording gradient tape.
func New[B tensor.Backend](inner B) *Backend[B] {
	k, _ := any(inner).(activationKernels)
	return &Backend[B]{inner: inner, tape: NewGradientTape(), kernels: k}
}

// Tape returns the gradient tape for recording control and backward passes.
func (b *Backend[B]) Tape() *GradientTape { return b.tape }

// Inner returns the wrapped backend.
func (b *Backend[B]) Inner() B { return b.inner }

func (b *Backend[B]) Name() string          { return "Autodiff(" + b.inner.Name() + ")" }
func (b *Backend[B]) Device() tensor.Device { return b.inner.Device() }

// Add performs element-wise addition and records it.
func (b *Backend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	out := b.inner.Add(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAddOp(x, y, out))
	}
	return out
}

// Sub performs element-wise subtraction and records it.
func (b *Backend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	out := b.inner.Sub(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSubOp(x, y, out))
	}
	return out
}

// Mul performs element-wise multiplication and records it.
func (b *Backend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	out := b.inner.Mul(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulOp(x, y, out))
	}
	return out
}

// Div performs element-wise division and records it.
func (b *Backend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	out := b.inner.Div(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewDivOp(x, y, out))
	}
	return out
}

// MatMul performs matrix multiplication and records it.
func (b *Backend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	out := b.inner.MatMul(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMatMulOp(x, y, out))
	}
	return out
}

// Reshape changes a tensor's shape and records it, so gradients reach the
// original parameter rather than the reshaped view. The linear layer relies
// on this for its bias.
func (b *Backend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	defer t.ForceNonUnique()()

	out := b.inner.Reshape(t, newShape)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewReshapeOp(t, out))
	}
	return out
}

// Transpose permutes tensor dimensions and records it. The inner backend
// materializes a new tensor, so without the record the weight behind a
// transposed view would never receive a gradient.
func (b *Backend[B]) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	defer t.ForceNonUnique()()

	if len(axes) == 0 {
		ndim := len(t.Shape())
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	out := b.inner.Transpose(t, axes...)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewTransposeOp(t, out, axes))
	}
	return out
}

// Exp computes the element-wise exponential and records it.
func (b *Backend[B]) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	out := b.inner.Exp(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewExpOp(x, out))
	}
	return out
}

// Log computes the element-wise natural logarithm and records it.
func (b *Backend[B]) Log(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	out := b.inner.Log(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewLogOp(x, out))
	}
	return out
}

// Softmax applies row-wise softmax and records it.
func (b *Backend[B]) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	out := b.inner.Softmax(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSoftmaxOp(x, out))
	}
	return out
}

// ReLU applies max(0, x) and records it.
func (b *Backend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	out := b.mustKernels("ReLU").ReLU(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewReLUOp(x, out))
	}
	return out
}

// Sigmoid applies the logistic function and records it.
func (b *Backend[B]) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	out := b.mustKernels("Sigmoid").Sigmoid(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSigmoidOp(x, out))
	}
	return out
}

// Tanh applies the hyperbolic tangent and records it.
func (b *Backend[B]) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	out := b.mustKernels("Tanh").Tanh(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewTanhOp(x, out))
	}
	return out
}

// LogSoftmax applies row-wise log-softmax and records it. The probabilities
// needed by the backward pass are recovered as exp(output), which is exact
// and avoids a second softmax pass.
func (b *Backend[B]) LogSoftmax(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	out := b.mustKernels("LogSoftmax").LogSoftmax(x)
	if b.tape.IsRecording() {
		soft := b.inner.Exp(out)
		b.tape.Record(ops.NewLogSoftmaxOp(x, soft, out))
	}
	return out
}

// CrossEntropy computes the mean fused softmax + negative-log-likelihood
// loss over raw scores and records it. Targets are int32 class indices and
// receive no gradient.
func (b *Backend[B]) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	defer logits.ForceNonUnique()()

	loss, probs := ops.CrossEntropyForward(logits, targets, b.inner)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewCrossEntropyOp(logits, targets, probs, loss))
	}
	return loss
}

// NLL computes the mean negative log-likelihood over log-probabilities and
// records it. Targets are int32 class indices and receive no gradient.
func (b *Backend[B]) NLL(logProbs, targets *tensor.RawTensor) *tensor.RawTensor {
	defer logProbs.ForceNonUnique()()

	loss := ops.NLLForward(logProbs, targets)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewNLLOp(logProbs, targets, loss))
	}
	return loss
}

// The remaining Backend methods never sit on the differentiable path of a
// model (optimizer math, metrics, reductions over labels), so they delegate
// without recording. Operands are still pinned against in-place reuse.

func (b *Backend[B]) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	return b.inner.AddScalar(x, scalar)
}

func (b *Backend[B]) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	return b.inner.MulScalar(x, scalar)
}

func (b *Backend[B]) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	return b.inner.Sqrt(x)
}

func (b *Backend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	return b.inner.Sum(x)
}

func (b *Backend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	return b.inner.SumDim(x, dim, keepDim)
}

func (b *Backend[B]) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	return b.inner.MeanDim(x, dim, keepDim)
}

func (b *Backend[B]) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	return b.inner.Argmax(x, dim)
}

func (b *Backend[B]) mustKernels(name string) activationKernels {
	if b.kernels == nil {
		panic(fmt.Sprintf("%s: backend %s does not provide activation kernels", name, b.inner.Name()))
	}
	return b.kernels
}
