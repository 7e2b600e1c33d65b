package autodiff

import (
	"fmt"

	"github.com/fermion-ml/fermion/internal/autodiff/ops"
	"github.com/fermion-ml/fermion/internal/tensor"
)

// Gradients runs the backward pass for a scalar loss. It seeds the output
// gradient with ones and replays the tape in reverse on the inner backend,
// returning the gradient of the loss with respect to every recorded tensor.
//
// The tape is left untouched; call Tape().Clear() before the next forward
// pass.
func (b *Backend[B]) Gradients(loss *tensor.RawTensor) map[*tensor.RawTensor]*tensor.RawTensor {
	if loss.NumElements() != 1 {
		panic(fmt.Sprintf("Gradients: loss must be scalar, got shape %v", loss.Shape()))
	}
	return b.tape.Backward(ops.OnesLike(loss), b.inner)
}

// WithoutRecording runs f with tape recording paused, restoring the
// previous recording state afterwards. Inference and evaluation run inside
// it so the tape stays clean between training steps.
func (b *Backend[B]) WithoutRecording(f func()) {
	was := b.tape.IsRecording()
	b.tape.StopRecording()
	defer func() {
		if was {
			b.tape.StartRecording()
		}
	}()
	f()
}
