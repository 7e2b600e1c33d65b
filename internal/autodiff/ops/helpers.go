package ops

import (
	"fmt"

	"github.com/fermion-ml/fermion/internal/tensor"
)

// reduceBroadcast shrinks a gradient back to the target input shape when the
// forward pass broadcast that input.
//
// Example:
//
//	Forward:  a[1,4] + b[3,4] -> c[3,4]   (a stretched along dim 0)
//	Backward: grad_c[3,4] -> grad_a[1,4]  (summed along dim 0)
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()

	// Clone on shape match so later inplace accumulation cannot alias the
	// gradient shared with a sibling input.
	if gradShape.Equal(targetShape) {
		return grad.Clone()
	}

	// Sum away leading dimensions the target never had.
	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = sumAlongDim(result, 0)
		result = backend.Reshape(result, result.Shape()[1:])
	}

	// Sum dimensions the target holds at size 1.
	for i, dim := range targetShape {
		if dim == 1 && result.Shape()[i] > 1 {
			result = sumAlongDim(result, i)
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}
	return result
}

// sumAlongDim sums a tensor along one dimension, keeping it at size 1.
func sumAlongDim(t *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := t.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("sumAlongDim: invalid dimension %d for shape %v", dim, shape))
	}

	outShape := shape.Clone()
	outShape[dim] = 1
	result, err := tensor.NewRaw(outShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("sumAlongDim: %v", err))
	}

	strides := shape.ComputeStrides()
	outStrides := outShape.ComputeStrides()

	switch t.DType() {
	case tensor.Float32:
		accumulateDim(t.AsFloat32(), result.AsFloat32(), shape, strides, outStrides, dim)
	case tensor.Float64:
		accumulateDim(t.AsFloat64(), result.AsFloat64(), shape, strides, outStrides, dim)
	default:
		panic(fmt.Sprintf("sumAlongDim: unsupported dtype %s", t.DType()))
	}

	return result
}

func accumulateDim[T ~float32 | ~float64](src, dst []T, shape tensor.Shape, strides, outStrides []int, dim int) {
	n := shape.NumElements()
	for flat := 0; flat < n; flat++ {
		rem := flat
		out := 0
		for d, stride := range strides {
			coord := rem / stride
			rem -= coord * stride
			if d == dim {
				coord = 0
			}
			out += coord * outStrides[d]
		}
		dst[out] += src[flat]
	}
}

// chainRule allocates outputGrad * df(src) elementwise. It covers every
// unary backward pass: src is whichever tensor the local derivative needs
// (the op input or its cached output).
func chainRule(outputGrad, src *tensor.RawTensor, df func(float64) float64) *tensor.RawTensor {
	if !outputGrad.Shape().Equal(src.Shape()) {
		panic(fmt.Sprintf("chainRule: gradient shape %v does not match %v", outputGrad.Shape(), src.Shape()))
	}

	result, err := tensor.NewRaw(src.Shape(), src.DType(), src.Device())
	if err != nil {
		panic(fmt.Sprintf("chainRule: %v", err))
	}

	switch src.DType() {
	case tensor.Float32:
		gradData := outputGrad.AsFloat32()
		srcData := src.AsFloat32()
		dst := result.AsFloat32()
		for i, v := range srcData {
			dst[i] = gradData[i] * float32(df(float64(v)))
		}
	case tensor.Float64:
		gradData := outputGrad.AsFloat64()
		srcData := src.AsFloat64()
		dst := result.AsFloat64()
		for i, v := range srcData {
			dst[i] = gradData[i] * df(v)
		}
	default:
		panic(fmt.Sprintf("chainRule: unsupported dtype %s", src.DType()))
	}
	return result
}

// OnesLike allocates a gradient tensor of ones matching t. Backward passes
// use it to seed the output gradient of a scalar loss.
func OnesLike(t *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(t.Shape(), t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("OnesLike: %v", err))
	}
	switch t.DType() {
	case tensor.Float32:
		data := result.AsFloat32()
		for i := range data {
			data[i] = 1
		}
	case tensor.Float64:
		data := result.AsFloat64()
		for i := range data {
			data[i] = 1
		}
	default:
		panic(fmt.Sprintf("OnesLike: unsupported dtype %s", t.DType()))
	}
	return result
}
