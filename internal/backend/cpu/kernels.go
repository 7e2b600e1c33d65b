package cpu

import (
	"fmt"

	"github.com/fermion-ml/fermion/internal/tensor"
)

// number constrains the element types the arithmetic kernels operate on.
type number interface {
	~float32 | ~float64 | ~int32
}

// binOp selects the element-wise arithmetic performed by a kernel.
type binOp int

const (
	opAdd binOp = iota
	opSub
	opMul
	opDiv
)

// applyBinaryRaw runs a same-shape binary kernel, dispatching on dtype.
// dst may alias a for inplace updates.
func applyBinaryRaw(op binOp, dst, a, b *tensor.RawTensor) {
	switch a.DType() {
	case tensor.Float32:
		applyBinary(op, dst.AsFloat32(), a.AsFloat32(), b.AsFloat32())
	case tensor.Float64:
		applyBinary(op, dst.AsFloat64(), a.AsFloat64(), b.AsFloat64())
	case tensor.Int32:
		applyBinary(op, dst.AsInt32(), a.AsInt32(), b.AsInt32())
	default:
		panic(fmt.Sprintf("binary op: unsupported dtype %s", a.DType()))
	}
}

// applyBinaryBroadcastRaw runs a broadcasting binary kernel, dispatching on dtype.
func applyBinaryBroadcastRaw(op binOp, dst, a, b *tensor.RawTensor, outShape tensor.Shape) {
	switch a.DType() {
	case tensor.Float32:
		applyBinaryBroadcast(op, dst.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape)
	case tensor.Float64:
		applyBinaryBroadcast(op, dst.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape)
	case tensor.Int32:
		applyBinaryBroadcast(op, dst.AsInt32(), a.AsInt32(), b.AsInt32(), a.Shape(), b.Shape(), outShape)
	default:
		panic(fmt.Sprintf("binary op: unsupported dtype %s", a.DType()))
	}
}

func applyBinary[T number](op binOp, dst, a, b []T) {
	switch op {
	case opAdd:
		for i := range dst {
			dst[i] = a[i] + b[i]
		}
	case opSub:
		for i := range dst {
			dst[i] = a[i] - b[i]
		}
	case opMul:
		for i := range dst {
			dst[i] = a[i] * b[i]
		}
	case opDiv:
		for i := range dst {
			dst[i] = a[i] / b[i]
		}
	}
}

// applyBinaryBroadcast evaluates dst[i] = a[ai] op b[bi] where ai and bi are
// the source positions obtained by projecting the output coordinates onto
// each operand's (possibly size-1) dimensions.
func applyBinaryBroadcast[T number](op binOp, dst, a, b []T, aShape, bShape, outShape tensor.Shape) {
	aProj := newBroadcastProjection(aShape, outShape)
	bProj := newBroadcastProjection(bShape, outShape)

	for i := range dst {
		av := a[aProj.sourceIndex(i)]
		bv := b[bProj.sourceIndex(i)]
		switch op {
		case opAdd:
			dst[i] = av + bv
		case opSub:
			dst[i] = av - bv
		case opMul:
			dst[i] = av * bv
		case opDiv:
			dst[i] = av / bv
		}
	}
}

// broadcastProjection maps flat output indices back to flat input indices
// for an input shape broadcast up to an output shape.
type broadcastProjection struct {
	outStrides []int // strides of the output shape
	inStrides  []int // strides of the input, 0 where the input dimension is 1
}

func newBroadcastProjection(inShape, outShape tensor.Shape) broadcastProjection {
	outStrides := outShape.ComputeStrides()
	inStrides := make([]int, len(outShape))

	realStrides := inShape.ComputeStrides()
	offset := len(outShape) - len(inShape)
	for i := range outShape {
		j := i - offset
		if j < 0 || inShape[j] == 1 {
			inStrides[i] = 0 // broadcast: the single element serves every output position
		} else {
			inStrides[i] = realStrides[j]
		}
	}

	return broadcastProjection{outStrides: outStrides, inStrides: inStrides}
}

func (p broadcastProjection) sourceIndex(flat int) int {
	src := 0
	for i, stride := range p.outStrides {
		coord := flat / stride
		flat -= coord * stride
		src += coord * p.inStrides[i]
	}
	return src
}

// transposeData permutes tensor data according to the given axes.
func transposeData(dst, src *tensor.RawTensor, axes []int) {
	srcShape := src.Shape()
	srcStrides := srcShape.ComputeStrides()
	dstStrides := dst.Shape().ComputeStrides()
	n := src.NumElements()

	switch src.DType() {
	case tensor.Float32:
		permute(dst.AsFloat32(), src.AsFloat32(), axes, srcStrides, dstStrides, srcShape, n)
	case tensor.Float64:
		permute(dst.AsFloat64(), src.AsFloat64(), axes, srcStrides, dstStrides, srcShape, n)
	case tensor.Int32:
		permute(dst.AsInt32(), src.AsInt32(), axes, srcStrides, dstStrides, srcShape, n)
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", src.DType()))
	}
}

func permute[T number](dst, src []T, axes, srcStrides, dstStrides []int, srcShape tensor.Shape, n int) {
	coords := make([]int, len(srcShape))
	for flat := 0; flat < n; flat++ {
		rem := flat
		for i, stride := range srcStrides {
			coords[i] = rem / stride
			rem -= coords[i] * stride
		}
		dstFlat := 0
		for i, ax := range axes {
			dstFlat += coords[ax] * dstStrides[i]
		}
		dst[dstFlat] = src[flat]
	}
}
