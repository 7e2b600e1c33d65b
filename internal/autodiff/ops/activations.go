package ops

import "github.com/fermion-ml/fermion/internal/tensor"

// ReLUOp records output = max(0, input).
type ReLUOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewReLUOp creates a ReLU record for the tape.
func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{input: input, output: output}
}

// Backward gates the gradient: it passes where the input was positive and
// is zero elsewhere.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := chainRule(outputGrad, op.input, func(x float64) float64 {
		if x > 0 {
			return 1
		}
		return 0
	})
	return []*tensor.RawTensor{grad}
}

func (op *ReLUOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *ReLUOp) Output() *tensor.RawTensor   { return op.output }

// SigmoidOp records output = 1 / (1 + exp(-input)). The backward pass uses
// the cached output: d sigmoid = s * (1 - s).
type SigmoidOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSigmoidOp creates a sigmoid record for the tape.
func NewSigmoidOp(input, output *tensor.RawTensor) *SigmoidOp {
	return &SigmoidOp{input: input, output: output}
}

func (op *SigmoidOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := chainRule(outputGrad, op.output, func(s float64) float64 {
		return s * (1 - s)
	})
	return []*tensor.RawTensor{grad}
}

func (op *SigmoidOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *SigmoidOp) Output() *tensor.RawTensor   { return op.output }

// TanhOp records output = tanh(input). The backward pass uses the cached
// output: d tanh = 1 - t^2.
type TanhOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewTanhOp creates a tanh record for the tape.
func NewTanhOp(input, output *tensor.RawTensor) *TanhOp {
	return &TanhOp{input: input, output: output}
}

func (op *TanhOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := chainRule(outputGrad, op.output, func(t float64) float64 {
		return 1 - t*t
	})
	return []*tensor.RawTensor{grad}
}

func (op *TanhOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *TanhOp) Output() *tensor.RawTensor   { return op.output }
