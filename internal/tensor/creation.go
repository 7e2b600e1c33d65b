package tensor

import (
	"math"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		panic(err)
	}
	// Memory from make() is already zeroed.
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T, B](shape, 1, b)
}

// Full creates a tensor filled with a specific value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Randn creates a tensor with values drawn from N(0, 1) using the Box-Muller
// transform. Only float element types are supported.
// Uses math/rand (not crypto/rand): weight initialization wants
// reproducibility, not secrecy.
func Randn[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()

	var dummy T
	switch any(dummy).(type) {
	case float32:
		f := any(data).([]float32)
		fillNormal(f)
	case float64:
		f := any(data).([]float64)
		fillNormal(f)
	default:
		panic("Randn only supports float32 and float64 types")
	}
	return t
}

// Rand creates a tensor with values uniformly distributed in [0, 1).
// Only float element types are supported.
func Rand[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()

	var dummy T
	switch any(dummy).(type) {
	case float32:
		f := any(data).([]float32)
		for i := range f {
			f[i] = float32(rand.Float64()) //nolint:gosec // G404: math/rand is intentional for ML
		}
	case float64:
		f := any(data).([]float64)
		for i := range f {
			f[i] = rand.Float64() //nolint:gosec // G404: math/rand is intentional for ML
		}
	default:
		panic("Rand only supports float32 and float64 types")
	}
	return t
}

func fillNormal[F ~float32 | ~float64](data []F) {
	for i := 0; i < len(data); i += 2 {
		u1 := rand.Float64() //nolint:gosec // G404: math/rand is intentional for ML
		u2 := rand.Float64() //nolint:gosec // G404: math/rand is intentional for ML
		r := math.Sqrt(-2.0 * math.Log(u1))
		data[i] = F(r * math.Cos(2.0*math.Pi*u2))
		if i+1 < len(data) {
			data[i+1] = F(r * math.Sin(2.0*math.Pi*u2))
		}
	}
}
