package nn

import "github.com/fermion-ml/fermion/internal/tensor"

type logSoftmaxBackend interface {
	LogSoftmax(x *tensor.RawTensor) *tensor.RawTensor
}

// LogSoftmax turns raw scores into log-probabilities along the last
// dimension. As a model's final layer it pairs with NLLLoss; the module
// reports LogProbabilities so the trainer can check the pairing.
type LogSoftmax[B tensor.Backend] struct{}

// NewLogSoftmax creates a log-softmax output module.
func NewLogSoftmax[B tensor.Backend]() *LogSoftmax[B] { return &LogSoftmax[B]{} }

func (l *LogSoftmax[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	lb, ok := any(backend).(logSoftmaxBackend)
	if !ok {
		panic("LogSoftmax: backend does not provide a LogSoftmax kernel")
	}
	return tensor.New[float32](lb.LogSoftmax(input.Raw()), backend)
}

func (l *LogSoftmax[B]) Parameters() []*Parameter[B] { return nil }

// OutputKind reports that this module emits log-probabilities.
func (l *LogSoftmax[B]) OutputKind() OutputKind { return LogProbabilities }
