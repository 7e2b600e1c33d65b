package cpu

import (
	"fmt"
	"math"

	"github.com/fermion-ml/fermion/internal/parallel"
	"github.com/fermion-ml/fermion/internal/tensor"
)

// AddScalar adds a scalar to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result := mustNewRaw("addscalar", x.Shape(), x.DType(), cpu.device)
	switch x.DType() {
	case tensor.Float32:
		s := toFloat64("addscalar", scalar)
		mapSlice(result.AsFloat32(), x.AsFloat32(), func(v float32) float32 { return v + float32(s) }, cpu.par)
	case tensor.Float64:
		s := toFloat64("addscalar", scalar)
		mapSlice(result.AsFloat64(), x.AsFloat64(), func(v float64) float64 { return v + s }, cpu.par)
	default:
		panic(fmt.Sprintf("addscalar: unsupported dtype %s", x.DType()))
	}
	return result
}

// MulScalar multiplies every element by a scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result := mustNewRaw("mulscalar", x.Shape(), x.DType(), cpu.device)
	switch x.DType() {
	case tensor.Float32:
		s := toFloat64("mulscalar", scalar)
		mapSlice(result.AsFloat32(), x.AsFloat32(), func(v float32) float32 { return v * float32(s) }, cpu.par)
	case tensor.Float64:
		s := toFloat64("mulscalar", scalar)
		mapSlice(result.AsFloat64(), x.AsFloat64(), func(v float64) float64 { return v * s }, cpu.par)
	default:
		panic(fmt.Sprintf("mulscalar: unsupported dtype %s", x.DType()))
	}
	return result
}

// Exp computes the element-wise exponential.
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.mapUnary("exp", x, math.Exp)
}

// Log computes the element-wise natural logarithm.
// Input values must be positive; non-positive inputs produce -Inf or NaN
// following IEEE semantics.
func (cpu *CPUBackend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.mapUnary("log", x, math.Log)
}

// Sqrt computes the element-wise square root.
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.mapUnary("sqrt", x, math.Sqrt)
}

func (cpu *CPUBackend) mapUnary(name string, x *tensor.RawTensor, f func(float64) float64) *tensor.RawTensor {
	result := mustNewRaw(name, x.Shape(), x.DType(), cpu.device)
	switch x.DType() {
	case tensor.Float32:
		mapSlice(result.AsFloat32(), x.AsFloat32(), func(v float32) float32 { return float32(f(float64(v))) }, cpu.par)
	case tensor.Float64:
		mapSlice(result.AsFloat64(), x.AsFloat64(), f, cpu.par)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}
	return result
}

func mapSlice[T ~float32 | ~float64](dst, src []T, f func(T) T, cfg parallel.Config) {
	parallel.For(len(src), func(i int) {
		dst[i] = f(src[i])
	}, cfg)
}

func toFloat64(name string, scalar any) float64 {
	switch s := scalar.(type) {
	case float32:
		return float64(s)
	case float64:
		return s
	case int:
		return float64(s)
	default:
		panic(fmt.Sprintf("%s: unsupported scalar type %T", name, scalar))
	}
}
