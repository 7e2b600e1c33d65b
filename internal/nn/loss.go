package nn

import (
	"github.com/fermion-ml/fermion/internal/autodiff/ops"
	"github.com/fermion-ml/fermion/internal/tensor"
)

// Loss reduces model outputs and integer class targets to a scalar.
// InputKind declares which output kind the loss consumes, so a trainer can
// reject a model that produces the other one.
type Loss[B tensor.Backend] interface {
	Forward(output *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B]
	InputKind() OutputKind
}

type crossEntropyBackend interface {
	CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor
}

type nllBackend interface {
	NLL(logProbs, targets *tensor.RawTensor) *tensor.RawTensor
}

// CrossEntropyLoss fuses softmax and negative log-likelihood over raw
// scores. The fused form never materializes probabilities near zero, so it
// stays stable for large logits.
type CrossEntropyLoss[B tensor.Backend] struct {
	backend B
}

// NewCrossEntropyLoss creates a cross-entropy criterion.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{backend: backend}
}

// Forward computes the mean loss over the batch. logits are
// [batch, classes], targets [batch] class indices.
func (c *CrossEntropyLoss[B]) Forward(logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	// A gradient-tracking backend records the loss on its tape; a plain
	// backend still evaluates it for inference-time reporting.
	if ad, ok := any(c.backend).(crossEntropyBackend); ok {
		return tensor.New[float32](ad.CrossEntropy(logits.Raw(), targets.Raw()), c.backend)
	}
	loss, _ := ops.CrossEntropyForward(logits.Raw(), targets.Raw(), c.backend)
	return tensor.New[float32](loss, c.backend)
}

// InputKind reports that this loss consumes raw scores.
func (c *CrossEntropyLoss[B]) InputKind() OutputKind { return RawScores }

// NLLLoss is the negative log-likelihood over log-probabilities, the
// criterion behind a LogSoftmax output layer.
type NLLLoss[B tensor.Backend] struct {
	backend B
}

// NewNLLLoss creates a negative log-likelihood criterion.
func NewNLLLoss[B tensor.Backend](backend B) *NLLLoss[B] {
	return &NLLLoss[B]{backend: backend}
}

// Forward computes the mean loss over the batch. logProbs are
// [batch, classes] log-probabilities, targets [batch] class indices.
func (n *NLLLoss[B]) Forward(logProbs *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	if ad, ok := any(n.backend).(nllBackend); ok {
		return tensor.New[float32](ad.NLL(logProbs.Raw(), targets.Raw()), n.backend)
	}
	return tensor.New[float32](ops.NLLForward(logProbs.Raw(), targets.Raw()), n.backend)
}

// InputKind reports that this loss consumes log-probabilities.
func (n *NLLLoss[B]) InputKind() OutputKind { return LogProbabilities }
