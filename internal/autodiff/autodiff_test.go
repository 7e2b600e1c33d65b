package autodiff

import (
	"math"
	"testing"

	"github.com/fermion-ml/fermion/internal/backend/cpu"
	"github.com/fermion-ml/fermion/internal/tensor"
)

func rawFloat32(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw(%v): %v", shape, err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

func rawInt32(t *testing.T, data []int32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Int32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw(%v): %v", shape, err)
	}
	copy(raw.AsInt32(), data)
	return raw
}

func approxEqual(t *testing.T, got, want []float32, tol float32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if diff := got[i] - want[i]; diff > tol || diff < -tol {
			t.Errorf("element %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTapeRecording(t *testing.T) {
	ad := New(cpu.New())

	a := rawFloat32(t, []float32{1, 2}, tensor.Shape{2})
	b := rawFloat32(t, []float32{3, 4}, tensor.Shape{2})

	// Not recording yet.
	ad.Add(a, b)
	if got := ad.Tape().NumOps(); got != 0 {
		t.Fatalf("ops before StartRecording: got %d, want 0", got)
	}

	ad.Tape().StartRecording()
	ad.Add(a, b)
	ad.Mul(a, b)
	if got := ad.Tape().NumOps(); got != 2 {
		t.Fatalf("recorded ops: got %d, want 2", got)
	}

	ad.Tape().Clear()
	if got := ad.Tape().NumOps(); got != 0 {
		t.Fatalf("ops after Clear: got %d, want 0", got)
	}
	if !ad.Tape().IsRecording() {
		t.Fatal("Clear must preserve recording state")
	}
}

func TestWithoutRecording(t *testing.T) {
	ad := New(cpu.New())
	ad.Tape().StartRecording()

	a := rawFloat32(t, []float32{1, 2}, tensor.Shape{2})
	b := rawFloat32(t, []float32{3, 4}, tensor.Shape{2})

	ad.WithoutRecording(func() {
		ad.Add(a, b)
	})

	if got := ad.Tape().NumOps(); got != 0 {
		t.Fatalf("ops recorded inside WithoutRecording: got %d, want 0", got)
	}
	if !ad.Tape().IsRecording() {
		t.Fatal("WithoutRecording must restore recording state")
	}
}

func TestMulGradients(t *testing.T) {
	ad := New(cpu.New())
	ad.Tape().StartRecording()

	x := rawFloat32(t, []float32{2, 3}, tensor.Shape{2})
	y := rawFloat32(t, []float32{5, 7}, tensor.Shape{2})

	out := ad.Mul(x, y)
	grads := ad.Tape().Backward(onesRaw(t, out.Shape()), ad.Inner())

	approxEqual(t, grads[x].AsFloat32(), []float32{5, 7}, 1e-6)
	approxEqual(t, grads[y].AsFloat32(), []float32{2, 3}, 1e-6)
}

func TestGradientAccumulation(t *testing.T) {
	ad := New(cpu.New())
	ad.Tape().StartRecording()

	x := rawFloat32(t, []float32{3}, tensor.Shape{1})

	// y = x * x, so dy/dx = 2x = 6.
	y := ad.Mul(x, x)

	grads := ad.Gradients(y)
	approxEqual(t, grads[x].AsFloat32(), []float32{6}, 1e-6)
}

func TestBroadcastGradientReduction(t *testing.T) {
	ad := New(cpu.New())
	ad.Tape().StartRecording()

	// Bias pattern: [2,3] + [1,3].
	x := rawFloat32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	bias := rawFloat32(t, []float32{10, 20, 30}, tensor.Shape{1, 3})

	out := ad.Add(x, bias)
	grads := ad.Tape().Backward(onesRaw(t, out.Shape()), ad.Inner())

	if !grads[bias].Shape().Equal(tensor.Shape{1, 3}) {
		t.Fatalf("bias grad shape: got %v, want [1 3]", grads[bias].Shape())
	}
	// Each bias element feeds both rows.
	approxEqual(t, grads[bias].AsFloat32(), []float32{2, 2, 2}, 1e-6)
	approxEqual(t, grads[x].AsFloat32(), []float32{1, 1, 1, 1, 1, 1}, 1e-6)
}

func TestMatMulGradients(t *testing.T) {
	ad := New(cpu.New())
	ad.Tape().StartRecording()

	a := rawFloat32(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := rawFloat32(t, []float32{5, 6, 7, 8}, tensor.Shape{2, 2})

	out := ad.MatMul(a, b)
	grads := ad.Tape().Backward(onesRaw(t, out.Shape()), ad.Inner())

	// grad_a = ones @ b^T, grad_b = a^T @ ones.
	approxEqual(t, grads[a].AsFloat32(), []float32{11, 15, 11, 15}, 1e-5)
	approxEqual(t, grads[b].AsFloat32(), []float32{4, 4, 6, 6}, 1e-5)
}

func TestTransposeGradientFlowsToOriginal(t *testing.T) {
	ad := New(cpu.New())
	ad.Tape().StartRecording()

	w := rawFloat32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	x := rawFloat32(t, []float32{1, 1, 1}, tensor.Shape{1, 3})

	// The linear layer pattern: x @ w^T with w the stored parameter.
	wT := ad.Transpose(w, 1, 0)
	out := ad.MatMul(x, wT)

	grads := ad.Tape().Backward(onesRaw(t, out.Shape()), ad.Inner())

	grad, ok := grads[w]
	if !ok {
		t.Fatal("no gradient reached the original weight through the transpose")
	}
	if !grad.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("weight grad shape: got %v, want [2 3]", grad.Shape())
	}
	approxEqual(t, grad.AsFloat32(), []float32{1, 1, 1, 1, 1, 1}, 1e-6)
}

func TestReLUGradient(t *testing.T) {
	ad := New(cpu.New())
	ad.Tape().StartRecording()

	x := rawFloat32(t, []float32{-1, 0, 2, -3, 4, 5}, tensor.Shape{2, 3})
	out := ad.ReLU(x)

	approxEqual(t, out.AsFloat32(), []float32{0, 0, 2, 0, 4, 5}, 0)

	grads := ad.Tape().Backward(onesRaw(t, out.Shape()), ad.Inner())
	approxEqual(t, grads[x].AsFloat32(), []float32{0, 0, 1, 0, 1, 1}, 0)
}

func TestLogSoftmaxForwardAndGradient(t *testing.T) {
	ad := New(cpu.New())
	ad.Tape().StartRecording()

	x := rawFloat32(t, []float32{1, 2, 3, 1, 1, 1}, tensor.Shape{2, 3})
	out := ad.LogSoftmax(x)

	// exp of each output row must sum to 1.
	data := out.AsFloat32()
	for r := 0; r < 2; r++ {
		sum := 0.0
		for c := 0; c < 3; c++ {
			sum += math.Exp(float64(data[r*3+c]))
		}
		if math.Abs(sum-1) > 1e-5 {
			t.Errorf("row %d: probabilities sum to %v, want 1", r, sum)
		}
	}

	// Uniform upstream gradient cancels for log-softmax rows summing the
	// same way: grad = g - softmax * rowsum(g) = 1 - 3*softmax.
	grads := ad.Tape().Backward(onesRaw(t, out.Shape()), ad.Inner())
	gx := grads[x].AsFloat32()
	for r := 0; r < 2; r++ {
		sum := float32(0)
		for c := 0; c < 3; c++ {
			sum += gx[r*3+c]
		}
		if math.Abs(float64(sum)) > 1e-5 {
			t.Errorf("row %d: log-softmax input gradient sums to %v, want 0", r, sum)
		}
	}
}

func TestCrossEntropyMatchesLogSoftmaxNLL(t *testing.T) {
	logits := []float32{2, 1, 0.1, 0.5, 2.5, 0.2}
	targets := []int32{0, 1}

	adA := New(cpu.New())
	adA.Tape().StartRecording()
	lossCE := adA.CrossEntropy(
		rawFloat32(t, logits, tensor.Shape{2, 3}),
		rawInt32(t, targets, tensor.Shape{2}),
	)

	adB := New(cpu.New())
	adB.Tape().StartRecording()
	lossNLL := adB.NLL(
		adB.LogSoftmax(rawFloat32(t, logits, tensor.Shape{2, 3})),
		rawInt32(t, targets, tensor.Shape{2}),
	)

	ce := lossCE.AsFloat32()[0]
	nll := lossNLL.AsFloat32()[0]
	if math.Abs(float64(ce-nll)) > 1e-5 {
		t.Fatalf("fused cross-entropy %v != log-softmax + NLL %v", ce, nll)
	}
}

func TestCrossEntropyGradient(t *testing.T) {
	ad := New(cpu.New())
	ad.Tape().StartRecording()

	logits := rawFloat32(t, []float32{0, 0, 0}, tensor.Shape{1, 3})
	targets := rawInt32(t, []int32{1}, tensor.Shape{1})

	loss := ad.CrossEntropy(logits, targets)

	// Uniform logits over 3 classes: loss = ln(3).
	want := float32(math.Log(3))
	if got := loss.AsFloat32()[0]; math.Abs(float64(got-want)) > 1e-5 {
		t.Fatalf("loss: got %v, want %v", got, want)
	}

	grads := ad.Gradients(loss)
	// softmax = 1/3 everywhere; target column subtracts 1.
	approxEqual(t, grads[logits].AsFloat32(), []float32{1.0 / 3, 1.0/3 - 1, 1.0 / 3}, 1e-6)
}

func TestBackwardDoesNotRecord(t *testing.T) {
	ad := New(cpu.New())
	ad.Tape().StartRecording()

	x := rawFloat32(t, []float32{2, 3}, tensor.Shape{2})
	y := ad.Mul(x, x)

	before := ad.Tape().NumOps()
	ad.Gradients(y)
	if got := ad.Tape().NumOps(); got != before {
		t.Fatalf("backward pass grew the tape: %d -> %d", before, got)
	}
}

func TestForwardPreservesInputs(t *testing.T) {
	ad := New(cpu.New())
	ad.Tape().StartRecording()

	x := rawFloat32(t, []float32{1, 2}, tensor.Shape{2})
	y := rawFloat32(t, []float32{3, 4}, tensor.Shape{2})

	out := ad.Add(x, y)

	// The inner backend reuses unique buffers; the decorator must have
	// prevented that while recording.
	approxEqual(t, x.AsFloat32(), []float32{1, 2}, 0)
	approxEqual(t, y.AsFloat32(), []float32{3, 4}, 0)
	approxEqual(t, out.AsFloat32(), []float32{4, 6}, 0)
}

func onesRaw(t *testing.T, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw(%v): %v", shape, err)
	}
	data := raw.AsFloat32()
	for i := range data {
		data[i] = 1
	}
	return raw
}
