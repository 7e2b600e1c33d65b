package cpu

import (
	"fmt"

	"github.com/fermion-ml/fermion/internal/tensor"
)

// Sum reduces the whole tensor to a single-element tensor.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := mustNewRaw("sum", tensor.Shape{1}, x.DType(), cpu.device)
	switch x.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] = sumSlice(x.AsFloat32())
	case tensor.Float64:
		result.AsFloat64()[0] = sumSlice(x.AsFloat64())
	case tensor.Int32:
		result.AsInt32()[0] = sumSlice(x.AsInt32())
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}
	return result
}

func sumSlice[T number](s []T) T {
	var total T
	for _, v := range s {
		total += v
	}
	return total
}

// SumDim sums a 2D tensor along a dimension.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduceDim("sumdim", x, dim, keepDim, false)
}

// MeanDim averages a 2D tensor along a dimension.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduceDim("meandim", x, dim, keepDim, true)
}

func (cpu *CPUBackend) reduceDim(name string, x *tensor.RawTensor, dim int, keepDim, mean bool) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("%s: only 2D tensors supported, got shape %v", name, shape))
	}
	if dim != 0 && dim != 1 {
		panic(fmt.Sprintf("%s: invalid dim %d for 2D tensor", name, dim))
	}

	rows, cols := shape[0], shape[1]
	outShape := reducedShape(shape, dim, keepDim)
	result := mustNewRaw(name, outShape, x.DType(), cpu.device)

	switch x.DType() {
	case tensor.Float32:
		reduceRowsCols(result.AsFloat32(), x.AsFloat32(), rows, cols, dim, mean)
	case tensor.Float64:
		reduceRowsCols(result.AsFloat64(), x.AsFloat64(), rows, cols, dim, mean)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}
	return result
}

func reducedShape(shape tensor.Shape, dim int, keepDim bool) tensor.Shape {
	if keepDim {
		out := shape.Clone()
		out[dim] = 1
		return out
	}
	out := make(tensor.Shape, 0, len(shape)-1)
	for i, d := range shape {
		if i != dim {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		out = tensor.Shape{1}
	}
	return out
}

func reduceRowsCols[T ~float32 | ~float64](dst, src []T, rows, cols, dim int, mean bool) {
	if dim == 1 {
		for r := 0; r < rows; r++ {
			var sum T
			for c := 0; c < cols; c++ {
				sum += src[r*cols+c]
			}
			if mean {
				sum /= T(cols)
			}
			dst[r] = sum
		}
		return
	}
	for c := 0; c < cols; c++ {
		var sum T
		for r := 0; r < rows; r++ {
			sum += src[r*cols+c]
		}
		if mean {
			sum /= T(rows)
		}
		dst[c] = sum
	}
}

// Argmax returns the index of the maximum value along a dimension as an
// Int32 tensor. For 2D input with dim=1, the result has shape [rows].
func (cpu *CPUBackend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()

	switch len(shape) {
	case 1:
		if dim != 0 {
			panic(fmt.Sprintf("argmax: invalid dim %d for 1D tensor", dim))
		}
		result := mustNewRaw("argmax", tensor.Shape{1}, tensor.Int32, cpu.device)
		result.AsInt32()[0] = argmaxRaw(x, 0, shape[0])
		return result

	case 2:
		if dim != 1 {
			panic(fmt.Sprintf("argmax: only dim=1 supported for 2D tensors, got %d", dim))
		}
		rows, cols := shape[0], shape[1]
		result := mustNewRaw("argmax", tensor.Shape{rows}, tensor.Int32, cpu.device)
		out := result.AsInt32()
		for r := 0; r < rows; r++ {
			out[r] = argmaxRaw(x, r*cols, cols)
		}
		return result

	default:
		panic(fmt.Sprintf("argmax: only 1D and 2D tensors supported, got shape %v", shape))
	}
}

func argmaxRaw(x *tensor.RawTensor, offset, n int) int32 {
	switch x.DType() {
	case tensor.Float32:
		return argmaxSlice(x.AsFloat32()[offset : offset+n])
	case tensor.Float64:
		return argmaxSlice(x.AsFloat64()[offset : offset+n])
	default:
		panic(fmt.Sprintf("argmax: unsupported dtype %s", x.DType()))
	}
}

func argmaxSlice[T ~float32 | ~float64](s []T) int32 {
	best := 0
	for i, v := range s[1:] {
		if v > s[best] {
			best = i + 1
		}
	}
	return int32(best)
}
