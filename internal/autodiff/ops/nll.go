package ops

import (
	"fmt"

	"github.com/fermion-ml/fermion/internal/tensor"
)

// NLLOp records the negative log-likelihood loss over log-probabilities,
// the pairing used after a log-softmax output layer.
//
// Forward:
//
//	loss = mean_b( -logProbs[b, targets[b]] )
//
// Backward:
//
//	grad[b,i] = -1/batch if i == targets[b], else 0
type NLLOp struct {
	logProbs *tensor.RawTensor // [batch, classes] float32/float64
	targets  *tensor.RawTensor // [batch] int32
	output   *tensor.RawTensor // [1] scalar loss
}

// NewNLLOp creates a negative log-likelihood record for the tape.
func NewNLLOp(logProbs, targets, output *tensor.RawTensor) *NLLOp {
	return &NLLOp{logProbs: logProbs, targets: targets, output: output}
}

func (op *NLLOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.logProbs.Shape()
	batch, classes := shape[0], shape[1]

	// Fresh tensors are zeroed, so only the target entries need writing.
	grad, err := tensor.NewRaw(shape, op.logProbs.DType(), op.logProbs.Device())
	if err != nil {
		panic(fmt.Sprintf("NLLOp: %v", err))
	}

	targets := op.targets.AsInt32()

	switch op.logProbs.DType() {
	case tensor.Float32:
		scale := -outputGrad.AsFloat32()[0] / float32(batch)
		dst := grad.AsFloat32()
		for b := 0; b < batch; b++ {
			dst[b*classes+int(targets[b])] = scale
		}
	case tensor.Float64:
		scale := -outputGrad.AsFloat64()[0] / float64(batch)
		dst := grad.AsFloat64()
		for b := 0; b < batch; b++ {
			dst[b*classes+int(targets[b])] = scale
		}
	default:
		panic(fmt.Sprintf("NLLOp: unsupported dtype %s", op.logProbs.DType()))
	}

	return []*tensor.RawTensor{grad}
}

func (op *NLLOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.logProbs} }
func (op *NLLOp) Output() *tensor.RawTensor   { return op.output }

// NLLForward computes the mean negative log-likelihood over a batch of
// log-probabilities and returns the scalar loss.
func NLLForward(logProbs, targets *tensor.RawTensor) *tensor.RawTensor {
	checkLossShapes("NLLForward", logProbs, targets)

	shape := logProbs.Shape()
	batch, classes := shape[0], shape[1]

	loss, err := tensor.NewRaw(tensor.Shape{1}, logProbs.DType(), logProbs.Device())
	if err != nil {
		panic(fmt.Sprintf("NLLForward: %v", err))
	}

	targetData := targets.AsInt32()

	switch logProbs.DType() {
	case tensor.Float32:
		data := logProbs.AsFloat32()
		total := 0.0
		for b := 0; b < batch; b++ {
			t := classIndex("NLLForward", targetData[b], classes)
			total -= float64(data[b*classes+t])
		}
		loss.AsFloat32()[0] = float32(total / float64(batch))
	case tensor.Float64:
		data := logProbs.AsFloat64()
		total := 0.0
		for b := 0; b < batch; b++ {
			t := classIndex("NLLForward", targetData[b], classes)
			total -= data[b*classes+t]
		}
		loss.AsFloat64()[0] = total / float64(batch)
	default:
		panic(fmt.Sprintf("NLLForward: unsupported dtype %s", logProbs.DType()))
	}

	return loss
}
