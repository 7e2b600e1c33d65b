package ops

import (
	"fmt"
	"math"

	"github.com/fermion-ml/fermion/internal/tensor"
)

// CrossEntropyOp records the fused softmax + negative-log-likelihood loss
// over raw scores.
//
// Forward:
//
//	loss = mean_b( -log softmax(logits)[b, targets[b]] )
//
// Backward, with p the cached probabilities:
//
//	grad_logits[b,i] = (p[b,i] - onehot(targets[b])[i]) / batch
//
// Targets are class indices and receive no gradient.
type CrossEntropyOp struct {
	logits  *tensor.RawTensor // [batch, classes] float32/float64
	targets *tensor.RawTensor // [batch] int32
	probs   *tensor.RawTensor // cached softmax(logits)
	output  *tensor.RawTensor // [1] scalar loss
}

// NewCrossEntropyOp creates a cross-entropy record for the tape. probs is
// the softmax cache produced by CrossEntropyForward.
func NewCrossEntropyOp(logits, targets, probs, output *tensor.RawTensor) *CrossEntropyOp {
	return &CrossEntropyOp{logits: logits, targets: targets, probs: probs, output: output}
}

func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.logits.Shape()
	batch, classes := shape[0], shape[1]

	grad, err := tensor.NewRaw(shape, op.logits.DType(), op.logits.Device())
	if err != nil {
		panic(fmt.Sprintf("CrossEntropyOp: %v", err))
	}

	targets := op.targets.AsInt32()

	switch op.logits.DType() {
	case tensor.Float32:
		scale := outputGrad.AsFloat32()[0] / float32(batch)
		probs := op.probs.AsFloat32()
		dst := grad.AsFloat32()
		for b := 0; b < batch; b++ {
			row := b * classes
			for i := 0; i < classes; i++ {
				p := probs[row+i]
				if int32(i) == targets[b] {
					p--
				}
				dst[row+i] = scale * p
			}
		}
	case tensor.Float64:
		scale := outputGrad.AsFloat64()[0] / float64(batch)
		probs := op.probs.AsFloat64()
		dst := grad.AsFloat64()
		for b := 0; b < batch; b++ {
			row := b * classes
			for i := 0; i < classes; i++ {
				p := probs[row+i]
				if int32(i) == targets[b] {
					p--
				}
				dst[row+i] = scale * p
			}
		}
	default:
		panic(fmt.Sprintf("CrossEntropyOp: unsupported dtype %s", op.logits.DType()))
	}

	return []*tensor.RawTensor{grad}
}

func (op *CrossEntropyOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.logits} }
func (op *CrossEntropyOp) Output() *tensor.RawTensor   { return op.output }

// CrossEntropyForward computes the mean cross-entropy loss over a batch of
// raw scores. It returns the scalar loss and the softmax probabilities,
// which CrossEntropyOp caches for the backward pass.
func CrossEntropyForward(logits, targets *tensor.RawTensor, backend tensor.Backend) (loss, probs *tensor.RawTensor) {
	checkLossShapes("CrossEntropyForward", logits, targets)

	probs = backend.Softmax(logits)
	shape := logits.Shape()
	batch, classes := shape[0], shape[1]

	loss, err := tensor.NewRaw(tensor.Shape{1}, logits.DType(), logits.Device())
	if err != nil {
		panic(fmt.Sprintf("CrossEntropyForward: %v", err))
	}

	targetData := targets.AsInt32()

	switch logits.DType() {
	case tensor.Float32:
		probData := probs.AsFloat32()
		total := 0.0
		for b := 0; b < batch; b++ {
			t := classIndex("CrossEntropyForward", targetData[b], classes)
			total -= math.Log(float64(probData[b*classes+t]))
		}
		loss.AsFloat32()[0] = float32(total / float64(batch))
	case tensor.Float64:
		probData := probs.AsFloat64()
		total := 0.0
		for b := 0; b < batch; b++ {
			t := classIndex("CrossEntropyForward", targetData[b], classes)
			total -= math.Log(probData[b*classes+t])
		}
		loss.AsFloat64()[0] = total / float64(batch)
	default:
		panic(fmt.Sprintf("CrossEntropyForward: unsupported dtype %s", logits.DType()))
	}

	return loss, probs
}

// checkLossShapes validates the [batch, classes] / [batch] pairing shared
// by the loss forward helpers.
func checkLossShapes(name string, scores, targets *tensor.RawTensor) {
	if len(scores.Shape()) != 2 {
		panic(fmt.Sprintf("%s: scores must be 2D [batch, classes], got %v", name, scores.Shape()))
	}
	if len(targets.Shape()) != 1 {
		panic(fmt.Sprintf("%s: targets must be 1D [batch], got %v", name, targets.Shape()))
	}
	if targets.Shape()[0] != scores.Shape()[0] {
		panic(fmt.Sprintf("%s: batch mismatch: scores %v vs targets %v", name, scores.Shape(), targets.Shape()))
	}
	if targets.DType() != tensor.Int32 {
		panic(fmt.Sprintf("%s: targets must be int32 class indices, got %s", name, targets.DType()))
	}
}

func classIndex(name string, target int32, classes int) int {
	if target < 0 || int(target) >= classes {
		panic(fmt.Sprintf("%s: target %d out of range [0, %d)", name, target, classes))
	}
	return int(target)
}
