package cpu

import (
	"fmt"
	"math"

	"github.com/fermion-ml/fermion/internal/parallel"
	"github.com/fermion-ml/fermion/internal/tensor"
)

// Softmax applies softmax along the last dimension of a 2D tensor.
//
// For each row: softmax(x)_i = exp(x_i - max(x)) / Σ_j exp(x_j - max(x)).
// The max shift keeps exp from overflowing.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("softmax: only 2D tensors supported, got shape %v", shape))
	}

	rows, cols := shape[0], shape[1]
	result := mustNewRaw("softmax", shape, x.DType(), cpu.device)

	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), result.AsFloat32()
		parallel.ForRows(rows, cols, func(r int) {
			softmaxRow(dst[r*cols:(r+1)*cols], src[r*cols:(r+1)*cols])
		}, cpu.par)
	case tensor.Float64:
		src, dst := x.AsFloat64(), result.AsFloat64()
		parallel.ForRows(rows, cols, func(r int) {
			softmaxRow(dst[r*cols:(r+1)*cols], src[r*cols:(r+1)*cols])
		}, cpu.par)
	default:
		panic(fmt.Sprintf("softmax: unsupported dtype %s", x.DType()))
	}

	return result
}

func softmaxRow[T ~float32 | ~float64](dst, src []T) {
	maxVal := src[0]
	for _, v := range src[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	var sum T
	for i, v := range src {
		dst[i] = T(math.Exp(float64(v - maxVal)))
		sum += dst[i]
	}
	for i := range dst {
		dst[i] /= sum
	}
}

// logSoftmaxRow computes log-softmax for a single row using the log-sum-exp
// trick: log_softmax(x)_i = x_i - max(x) - log(Σ_j exp(x_j - max(x))).
func logSoftmaxRow[T ~float32 | ~float64](dst, src []T) {
	maxVal := src[0]
	for _, v := range src[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	var sumExp float64
	for _, v := range src {
		sumExp += math.Exp(float64(v - maxVal))
	}
	logSumExp := float64(maxVal) + math.Log(sumExp)

	for i, v := range src {
		dst[i] = v - T(logSumExp)
	}
}

// LogSoftmax applies log-softmax along the last dimension of a 2D tensor.
// More numerically stable than Log(Softmax(x)).
func (cpu *CPUBackend) LogSoftmax(x *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("logsoftmax: only 2D tensors supported, got shape %v", shape))
	}

	rows, cols := shape[0], shape[1]
	result := mustNewRaw("logsoftmax", shape, x.DType(), cpu.device)

	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), result.AsFloat32()
		parallel.ForRows(rows, cols, func(r int) {
			logSoftmaxRow(dst[r*cols:(r+1)*cols], src[r*cols:(r+1)*cols])
		}, cpu.par)
	case tensor.Float64:
		src, dst := x.AsFloat64(), result.AsFloat64()
		parallel.ForRows(rows, cols, func(r int) {
			logSoftmaxRow(dst[r*cols:(r+1)*cols], src[r*cols:(r+1)*cols])
		}, cpu.par)
	default:
		panic(fmt.Sprintf("logsoftmax: unsupported dtype %s", x.DType()))
	}

	return result
}
