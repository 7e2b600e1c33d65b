package ops

import "github.com/fermion-ml/fermion/internal/tensor"

// The four elementwise binary ops share one layout: both operands, the
// forward result, and a Backward that undoes broadcasting with
// reduceBroadcast so each gradient matches its input shape.

// AddOp records output = a + b.
type AddOp struct {
	a, b   *tensor.RawTensor
	output *tensor.RawTensor
}

// NewAddOp creates an addition record for the tape.
func NewAddOp(a, b, output *tensor.RawTensor) *AddOp {
	return &AddOp{a: a, b: b, output: output}
}

// Backward distributes the output gradient to both operands unchanged,
// since d(a+b)/da = d(a+b)/db = 1.
func (op *AddOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradA := reduceBroadcast(outputGrad, op.a.Shape(), backend)
	gradB := reduceBroadcast(outputGrad, op.b.Shape(), backend)
	return []*tensor.RawTensor{gradA, gradB}
}

func (op *AddOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.a, op.b} }
func (op *AddOp) Output() *tensor.RawTensor   { return op.output }

// SubOp records output = a - b.
type SubOp struct {
	a, b   *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSubOp creates a subtraction record for the tape.
func NewSubOp(a, b, output *tensor.RawTensor) *SubOp {
	return &SubOp{a: a, b: b, output: output}
}

// Backward passes the gradient through to a and negated to b.
func (op *SubOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	// Pin outputGrad: the tape may hand this gradient to sibling ops, so
	// the backend must not reuse its buffer in place.
	defer outputGrad.ForceNonUnique()()

	gradA := reduceBroadcast(outputGrad, op.a.Shape(), backend)
	negGrad := backend.MulScalar(outputGrad, -1.0)
	gradB := reduceBroadcast(negGrad, op.b.Shape(), backend)
	return []*tensor.RawTensor{gradA, gradB}
}

func (op *SubOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.a, op.b} }
func (op *SubOp) Output() *tensor.RawTensor   { return op.output }

// MulOp records output = a * b (elementwise).
type MulOp struct {
	a, b   *tensor.RawTensor
	output *tensor.RawTensor
}

// NewMulOp creates an elementwise multiplication record for the tape.
func NewMulOp(a, b, output *tensor.RawTensor) *MulOp {
	return &MulOp{a: a, b: b, output: output}
}

// Backward applies the product rule: grad_a = outputGrad*b, grad_b = outputGrad*a.
func (op *MulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	defer outputGrad.ForceNonUnique()()

	gradA := reduceBroadcast(backend.Mul(outputGrad, op.b), op.a.Shape(), backend)
	gradB := reduceBroadcast(backend.Mul(outputGrad, op.a), op.b.Shape(), backend)
	return []*tensor.RawTensor{gradA, gradB}
}

func (op *MulOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.a, op.b} }
func (op *MulOp) Output() *tensor.RawTensor   { return op.output }

// DivOp records output = a / b (elementwise).
type DivOp struct {
	a, b   *tensor.RawTensor
	output *tensor.RawTensor
}

// NewDivOp creates an elementwise division record for the tape.
func NewDivOp(a, b, output *tensor.RawTensor) *DivOp {
	return &DivOp{a: a, b: b, output: output}
}

// Backward uses the quotient rule, reusing the forward output:
//
//	grad_a = outputGrad / b
//	grad_b = -outputGrad * output / b
func (op *DivOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	defer outputGrad.ForceNonUnique()()

	gradA := reduceBroadcast(backend.Div(outputGrad, op.b), op.a.Shape(), backend)

	scaled := backend.MulScalar(outputGrad, -1.0)
	scaled = backend.Mul(scaled, op.output)
	gradB := reduceBroadcast(backend.Div(scaled, op.b), op.b.Shape(), backend)
	return []*tensor.RawTensor{gradA, gradB}
}

func (op *DivOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.a, op.b} }
func (op *DivOp) Output() *tensor.RawTensor   { return op.output }
