package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fermion-ml/fermion/internal/autodiff"
	"github.com/fermion-ml/fermion/internal/backend/cpu"
	"github.com/fermion-ml/fermion/internal/tensor"
)

func TestCrossEntropyUniformLogits(t *testing.T) {
	backend := cpu.New()
	criterion := NewCrossEntropyLoss(backend)

	logits := tensor.Zeros[float32](tensor.Shape{4, 10}, backend)
	targets, err := tensor.FromSlice([]int32{0, 3, 7, 9}, tensor.Shape{4}, backend)
	require.NoError(t, err)

	// Uniform scores over 10 classes must cost ln(10).
	loss := criterion.Forward(logits, targets)
	assert.InDelta(t, math.Log(10), float64(loss.Item()), 1e-5)
	assert.Equal(t, RawScores, criterion.InputKind())
}

func TestNLLUniformLogProbs(t *testing.T) {
	backend := cpu.New()
	criterion := NewNLLLoss(backend)

	logProb := float32(-math.Log(10))
	logProbs := tensor.Full(tensor.Shape{4, 10}, logProb, backend)
	targets, err := tensor.FromSlice([]int32{1, 2, 3, 4}, tensor.Shape{4}, backend)
	require.NoError(t, err)

	loss := criterion.Forward(logProbs, targets)
	assert.InDelta(t, math.Log(10), float64(loss.Item()), 1e-5)
	assert.Equal(t, LogProbabilities, criterion.InputKind())
}

func TestLossPairingsAgree(t *testing.T) {
	// CrossEntropy(logits) and NLL(LogSoftmax(logits)) are the same loss.
	backend := cpu.New()

	logits, err := tensor.FromSlice([]float32{
		2.0, -1.0, 0.5,
		0.1, 0.2, 3.0,
	}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)
	targets, err := tensor.FromSlice([]int32{0, 2}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	ce := NewCrossEntropyLoss(backend).Forward(logits, targets)

	logProbs := NewLogSoftmax[*cpu.CPUBackend]().Forward(logits)
	nll := NewNLLLoss(backend).Forward(logProbs, targets)

	assert.InDelta(t, float64(ce.Item()), float64(nll.Item()), 1e-5)
}

func TestFreshModelLossNearUniform(t *testing.T) {
	// A Xavier-initialized classifier should start out close to a uniform
	// guess over the classes, costing about -ln(1/10) nats.
	backend := autodiff.New(cpu.New())
	model := NewSequential[*autodiff.Backend[*cpu.CPUBackend]](
		NewLinear(32, 24, backend),
		NewReLU[*autodiff.Backend[*cpu.CPUBackend]](),
		NewLinear(24, 10, backend),
		NewLogSoftmax[*autodiff.Backend[*cpu.CPUBackend]](),
	)

	input := tensor.Rand[float32](tensor.Shape{16, 32}, backend)
	targets := tensor.Zeros[int32](tensor.Shape{16}, backend)
	for i := range targets.Raw().AsInt32() {
		targets.Raw().AsInt32()[i] = int32(i % 10)
	}

	loss := NewNLLLoss(backend).Forward(model.Forward(input), targets)
	assert.InDelta(t, math.Log(10), float64(loss.Item()), 0.5)
}

func TestLossRecordsOnTape(t *testing.T) {
	ad := autodiff.New(cpu.New())
	ad.Tape().StartRecording()

	logits := tensor.Zeros[float32](tensor.Shape{2, 3}, ad)
	targets := tensor.Zeros[int32](tensor.Shape{2}, ad)

	NewCrossEntropyLoss(ad).Forward(logits, targets)
	assert.Equal(t, 1, ad.Tape().NumOps())
}
