// Package ops defines the differentiable operations recorded on the
// gradient tape.
//
// Each operation keeps references to its input and output tensors from the
// forward pass and knows how to turn an output gradient into input gradients
// (the chain rule, one link at a time). The tape replays recorded operations
// in reverse execution order and accumulates gradients for tensors used more
// than once.
package ops

import "github.com/fermion-ml/fermion/internal/tensor"

// Operation is one recorded node of the computation graph.
type Operation interface {
	// Backward computes gradients for the operation's inputs given the
	// gradient flowing into its output. The returned slice is aligned with
	// Inputs(); a nil entry means no gradient flows to that input.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors of the forward pass.
	Inputs() []*tensor.RawTensor

	// Output returns the tensor produced by the forward pass.
	Output() *tensor.RawTensor
}
