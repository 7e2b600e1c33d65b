package optim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fermion-ml/fermion/internal/backend/cpu"
	"github.com/fermion-ml/fermion/internal/nn"
	"github.com/fermion-ml/fermion/internal/tensor"
)

func newParam(t *testing.T, backend *cpu.CPUBackend, name string, data []float32) *nn.Parameter[*cpu.CPUBackend] {
	t.Helper()
	tt, err := tensor.FromSlice(data, tensor.Shape{len(data)}, backend)
	require.NoError(t, err)
	return nn.NewParameter(name, tt)
}

func gradMap(t *testing.T, param *nn.Parameter[*cpu.CPUBackend], data []float32) map[*tensor.RawTensor]*tensor.RawTensor {
	t.Helper()
	grad, err := tensor.NewRaw(param.Raw().Shape(), tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(grad.AsFloat32(), data)
	return map[*tensor.RawTensor]*tensor.RawTensor{param.Raw(): grad}
}

func TestSGDStep(t *testing.T) {
	backend := cpu.New()
	p := newParam(t, backend, "weight", []float32{1, 2, 3})

	sgd := NewSGD([]*nn.Parameter[*cpu.CPUBackend]{p}, 0.1)
	sgd.Step(gradMap(t, p, []float32{1, -1, 0.5}))

	assert.InDeltaSlice(t, []float32{0.9, 2.1, 2.95}, p.Tensor().Data(), 1e-6)
}

func TestSGDSkipsParamsWithoutGradient(t *testing.T) {
	backend := cpu.New()
	p := newParam(t, backend, "weight", []float32{1, 2})

	sgd := NewSGD([]*nn.Parameter[*cpu.CPUBackend]{p}, 0.5)
	sgd.Step(map[*tensor.RawTensor]*tensor.RawTensor{})

	assert.Equal(t, []float32{1, 2}, p.Tensor().Data())
}

func TestSGDPanicsOnShapeMismatch(t *testing.T) {
	backend := cpu.New()
	p := newParam(t, backend, "weight", []float32{1, 2, 3})

	bad, err := tensor.NewRaw(tensor.Shape{2}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)

	sgd := NewSGD([]*nn.Parameter[*cpu.CPUBackend]{p}, 0.1)
	assert.Panics(t, func() {
		sgd.Step(map[*tensor.RawTensor]*tensor.RawTensor{p.Raw(): bad})
	})
}

func TestSGDMomentumAccumulates(t *testing.T) {
	backend := cpu.New()
	p := newParam(t, backend, "weight", []float32{0})

	sgd := NewSGDWithMomentum([]*nn.Parameter[*cpu.CPUBackend]{p}, 0.1, 0.9)

	// Constant gradient 1. First step: v = -0.1, w = -0.1.
	sgd.Step(gradMap(t, p, []float32{1}))
	assert.InDelta(t, -0.1, float64(p.Tensor().Data()[0]), 1e-6)

	// Second step: v = 0.9*(-0.1) - 0.1 = -0.19, w = -0.29.
	sgd.Step(gradMap(t, p, []float32{1}))
	assert.InDelta(t, -0.29, float64(p.Tensor().Data()[0]), 1e-6)
}

func TestSGDSetLR(t *testing.T) {
	backend := cpu.New()
	p := newParam(t, backend, "weight", []float32{1})

	sgd := NewSGD([]*nn.Parameter[*cpu.CPUBackend]{p}, 0.1)
	assert.Equal(t, float32(0.1), sgd.LR())

	sgd.SetLR(0.01)
	assert.Equal(t, float32(0.01), sgd.LR())
}

func TestAdamFirstStepMagnitude(t *testing.T) {
	backend := cpu.New()
	p := newParam(t, backend, "weight", []float32{1, 1})

	adam := NewAdam([]*nn.Parameter[*cpu.CPUBackend]{p}, 0.001)
	adam.Step(gradMap(t, p, []float32{0.5, -2}))

	// Bias correction makes the first update approach lr in magnitude,
	// with the sign of the gradient.
	data := p.Tensor().Data()
	assert.InDelta(t, 1-0.001, float64(data[0]), 1e-4)
	assert.InDelta(t, 1+0.001, float64(data[1]), 1e-4)
}

func TestAdamConvergesOnQuadratic(t *testing.T) {
	backend := cpu.New()
	p := newParam(t, backend, "weight", []float32{5})

	adam := NewAdam([]*nn.Parameter[*cpu.CPUBackend]{p}, 0.1)

	// Minimize f(w) = w^2 with gradient 2w.
	for i := 0; i < 500; i++ {
		w := p.Tensor().Data()[0]
		adam.Step(gradMap(t, p, []float32{2 * w}))
	}

	assert.InDelta(t, 0, float64(p.Tensor().Data()[0]), 0.05)
}
