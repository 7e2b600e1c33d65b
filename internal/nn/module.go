// Package nn provides the building blocks for feed-forward networks:
// trainable parameters, layers, activations, loss functions, and the
// Sequential container. Modules run on any tensor.Backend; gradient
// tracking comes from wrapping the backend with autodiff.
package nn

import "github.com/fermion-ml/fermion/internal/tensor"

// Module is the interface every network component implements.
type Module[B tensor.Backend] interface {
	// Forward computes the module output. Layers document their expected
	// input shapes and panic on mismatch.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns the module's trainable parameters, nil for
	// parameter-free modules such as activations.
	Parameters() []*Parameter[B]
}

// OutputKind states what a model's final activations mean. A loss function
// declares the kind it consumes, and the trainer refuses a model/loss pair
// whose kinds disagree: feeding log-probabilities to a loss that applies
// its own softmax trains on garbage without ever crashing.
type OutputKind int

const (
	// RawScores are unnormalized logits, the output of a plain Linear
	// layer. Paired with CrossEntropyLoss.
	RawScores OutputKind = iota

	// LogProbabilities are log-softmax outputs. Paired with NLLLoss.
	LogProbabilities
)

func (k OutputKind) String() string {
	switch k {
	case RawScores:
		return "raw scores"
	case LogProbabilities:
		return "log-probabilities"
	default:
		return "unknown"
	}
}

// KindReporter is implemented by modules that declare their output kind.
// Modules that don't implement it produce RawScores.
type KindReporter interface {
	OutputKind() OutputKind
}

// ModelOutputKind resolves the output kind of a model, defaulting to
// RawScores for modules that do not report one.
func ModelOutputKind[B tensor.Backend](m Module[B]) OutputKind {
	if r, ok := m.(KindReporter); ok {
		return r.OutputKind()
	}
	return RawScores
}
