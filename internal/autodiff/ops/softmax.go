package ops

import "github.com/fermion-ml/fermion/internal/tensor"

// SoftmaxOp records output = softmax(input) along the last dimension of a
// 2D input.
//
// Backward, with s the cached output and g the output gradient:
//
//	grad_x = s * (g - rowsum(g * s))
type SoftmaxOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSoftmaxOp creates a softmax record for the tape.
func NewSoftmaxOp(input, output *tensor.RawTensor) *SoftmaxOp {
	return &SoftmaxOp{input: input, output: output}
}

func (op *SoftmaxOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	defer outputGrad.ForceNonUnique()()

	prod := backend.Mul(outputGrad, op.output)
	rowSums := backend.SumDim(prod, 1, true)
	diff := backend.Sub(outputGrad, rowSums)
	grad := backend.Mul(diff, op.output)
	return []*tensor.RawTensor{grad}
}

func (op *SoftmaxOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *SoftmaxOp) Output() *tensor.RawTensor   { return op.output }

// LogSoftmaxOp records output = log(softmax(input)) along the last
// dimension of a 2D input. The forward pass caches the probabilities so
// the backward pass never re-exponentiates:
//
//	grad_x = g - softmax(input) * rowsum(g)
type LogSoftmaxOp struct {
	input  *tensor.RawTensor
	soft   *tensor.RawTensor // cached softmax(input)
	output *tensor.RawTensor
}

// NewLogSoftmaxOp creates a log-softmax record for the tape. soft holds
// the probabilities produced alongside the forward output.
func NewLogSoftmaxOp(input, soft, output *tensor.RawTensor) *LogSoftmaxOp {
	return &LogSoftmaxOp{input: input, soft: soft, output: output}
}

func (op *LogSoftmaxOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	defer outputGrad.ForceNonUnique()()

	rowSums := backend.SumDim(outputGrad, 1, true)
	scaled := backend.Mul(op.soft.Clone(), rowSums)
	grad := backend.Sub(outputGrad, scaled)
	return []*tensor.RawTensor{grad}
}

func (op *LogSoftmaxOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *LogSoftmaxOp) Output() *tensor.RawTensor   { return op.output }
