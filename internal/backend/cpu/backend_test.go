package cpu

import (
	"math"
	"testing"

	"github.com/fermion-ml/fermion/internal/tensor"
)

func newTestBackend() *CPUBackend {
	return New()
}

func rawFloat32(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

func rawInt32(t *testing.T, data []int32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Int32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	copy(raw.AsInt32(), data)
	return raw
}

func float32SliceEqual(a, b []float32) bool {
	const epsilon = 1e-5
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		diff := a[i] - b[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > epsilon {
			return false
		}
	}
	return true
}

func TestCPUBackend_New(t *testing.T) {
	backend := New()
	if backend == nil {
		t.Fatal("New() returned nil")
	}
	if backend.Name() != "CPU" {
		t.Errorf("Expected name 'CPU', got '%s'", backend.Name())
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Expected device CPU, got %v", backend.Device())
	}
}

func TestCPUBackend_Add(t *testing.T) {
	backend := newTestBackend()

	t.Run("SameShape", func(t *testing.T) {
		a := rawFloat32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
		b := rawFloat32(t, []float32{10, 11, 12, 13, 14, 15}, tensor.Shape{2, 3})

		result := backend.Add(a, b)

		expected := []float32{11, 13, 15, 17, 19, 21}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Add failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("InplaceWhenUnique", func(t *testing.T) {
		a := rawFloat32(t, []float32{1, 2, 3}, tensor.Shape{3})
		b := rawFloat32(t, []float32{10, 20, 30}, tensor.Shape{3})

		result := backend.Add(a, b)

		if result != a {
			t.Error("same-shape add with a unique first operand should update inplace")
		}
		if !float32SliceEqual(result.AsFloat32(), []float32{11, 22, 33}) {
			t.Errorf("inplace add failed: got %v", result.AsFloat32())
		}
	})

	t.Run("FreshResultWhenPinned", func(t *testing.T) {
		a := rawFloat32(t, []float32{1, 2, 3}, tensor.Shape{3})
		b := rawFloat32(t, []float32{10, 20, 30}, tensor.Shape{3})

		release := a.ForceNonUnique()
		defer release()

		result := backend.Add(a, b)

		if result == a {
			t.Error("pinned operand must not be updated inplace")
		}
		if !float32SliceEqual(a.AsFloat32(), []float32{1, 2, 3}) {
			t.Errorf("pinned operand was modified: %v", a.AsFloat32())
		}
		if !float32SliceEqual(result.AsFloat32(), []float32{11, 22, 33}) {
			t.Errorf("add result wrong: got %v", result.AsFloat32())
		}
	})

	t.Run("BroadcastRow", func(t *testing.T) {
		a := rawFloat32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
		bias := rawFloat32(t, []float32{10, 20, 30}, tensor.Shape{1, 3})

		result := backend.Add(a, bias)

		if !result.Shape().Equal(tensor.Shape{2, 3}) {
			t.Fatalf("broadcast shape = %v, want [2 3]", result.Shape())
		}
		expected := []float32{11, 22, 33, 14, 25, 36}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("broadcast add failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("IncompatibleShapes", func(t *testing.T) {
		a := rawFloat32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
		b := rawFloat32(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})

		defer func() {
			if recover() == nil {
				t.Error("incompatible shapes should panic")
			}
		}()
		backend.Add(a, b)
	})
}

func TestCPUBackend_SubMulDiv(t *testing.T) {
	backend := newTestBackend()

	a := rawFloat32(t, []float32{10, 20, 30}, tensor.Shape{3})
	b := rawFloat32(t, []float32{2, 4, 5}, tensor.Shape{3})
	defer a.ForceNonUnique()()

	sub := backend.Sub(a, b)
	if !float32SliceEqual(sub.AsFloat32(), []float32{8, 16, 25}) {
		t.Errorf("Sub failed: got %v", sub.AsFloat32())
	}

	mul := backend.Mul(a, b)
	if !float32SliceEqual(mul.AsFloat32(), []float32{20, 80, 150}) {
		t.Errorf("Mul failed: got %v", mul.AsFloat32())
	}

	div := backend.Div(a, b)
	if !float32SliceEqual(div.AsFloat32(), []float32{5, 5, 6}) {
		t.Errorf("Div failed: got %v", div.AsFloat32())
	}
}

func TestCPUBackend_MatMul(t *testing.T) {
	backend := newTestBackend()

	t.Run("Float32", func(t *testing.T) {
		a := rawFloat32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
		b := rawFloat32(t, []float32{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2})

		result := backend.MatMul(a, b)

		if !result.Shape().Equal(tensor.Shape{2, 2}) {
			t.Fatalf("MatMul shape = %v, want [2 2]", result.Shape())
		}
		// [1 2 3; 4 5 6] @ [7 8; 9 10; 11 12] = [58 64; 139 154]
		expected := []float32{58, 64, 139, 154}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("MatMul failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("Int32Naive", func(t *testing.T) {
		a := rawInt32(t, []int32{1, 2, 3, 4}, tensor.Shape{2, 2})
		b := rawInt32(t, []int32{5, 6, 7, 8}, tensor.Shape{2, 2})

		result := backend.MatMul(a, b)

		expected := []int32{19, 22, 43, 50}
		for i, want := range expected {
			if got := result.AsInt32()[i]; got != want {
				t.Errorf("int32 MatMul element %d = %d, want %d", i, got, want)
			}
		}
	})

	t.Run("ShapeMismatch", func(t *testing.T) {
		a := rawFloat32(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
		b := rawFloat32(t, []float32{1, 2, 3}, tensor.Shape{3, 1})

		defer func() {
			if recover() == nil {
				t.Error("mismatched inner dimensions should panic")
			}
		}()
		backend.MatMul(a, b)
	})
}

func TestCPUBackend_ReshapeTranspose(t *testing.T) {
	backend := newTestBackend()

	t.Run("Reshape", func(t *testing.T) {
		a := rawFloat32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

		result := backend.Reshape(a, tensor.Shape{3, 2})

		if !result.Shape().Equal(tensor.Shape{3, 2}) {
			t.Fatalf("Reshape shape = %v, want [3 2]", result.Shape())
		}
		if !float32SliceEqual(result.AsFloat32(), a.AsFloat32()) {
			t.Error("Reshape should preserve element order")
		}
	})

	t.Run("ReshapeWrongSize", func(t *testing.T) {
		a := rawFloat32(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})

		defer func() {
			if recover() == nil {
				t.Error("reshape to a different element count should panic")
			}
		}()
		backend.Reshape(a, tensor.Shape{3, 2})
	})

	t.Run("Transpose2D", func(t *testing.T) {
		a := rawFloat32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

		result := backend.Transpose(a)

		if !result.Shape().Equal(tensor.Shape{3, 2}) {
			t.Fatalf("Transpose shape = %v, want [3 2]", result.Shape())
		}
		expected := []float32{1, 4, 2, 5, 3, 6}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Transpose failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("TransposeDuplicateAxis", func(t *testing.T) {
		a := rawFloat32(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})

		defer func() {
			if recover() == nil {
				t.Error("duplicate axes should panic")
			}
		}()
		backend.Transpose(a, 0, 0)
	})
}

func TestCPUBackend_ScalarOps(t *testing.T) {
	backend := newTestBackend()

	a := rawFloat32(t, []float32{1, 2, 3}, tensor.Shape{3})

	added := backend.AddScalar(a, float32(10))
	if !float32SliceEqual(added.AsFloat32(), []float32{11, 12, 13}) {
		t.Errorf("AddScalar failed: got %v", added.AsFloat32())
	}

	scaled := backend.MulScalar(a, 2.0)
	if !float32SliceEqual(scaled.AsFloat32(), []float32{2, 4, 6}) {
		t.Errorf("MulScalar failed: got %v", scaled.AsFloat32())
	}

	// Source operand is never modified.
	if !float32SliceEqual(a.AsFloat32(), []float32{1, 2, 3}) {
		t.Errorf("scalar ops modified the input: %v", a.AsFloat32())
	}
}

func TestCPUBackend_UnaryMath(t *testing.T) {
	backend := newTestBackend()

	x := rawFloat32(t, []float32{0, 1, 2}, tensor.Shape{3})

	exp := backend.Exp(x)
	expected := []float32{1, float32(math.E), float32(math.Exp(2))}
	if !float32SliceEqual(exp.AsFloat32(), expected) {
		t.Errorf("Exp failed: got %v, expected %v", exp.AsFloat32(), expected)
	}

	logOfExp := backend.Log(exp)
	if !float32SliceEqual(logOfExp.AsFloat32(), []float32{0, 1, 2}) {
		t.Errorf("Log(Exp(x)) != x: got %v", logOfExp.AsFloat32())
	}

	sq := rawFloat32(t, []float32{4, 9, 16}, tensor.Shape{3})
	root := backend.Sqrt(sq)
	if !float32SliceEqual(root.AsFloat32(), []float32{2, 3, 4}) {
		t.Errorf("Sqrt failed: got %v", root.AsFloat32())
	}
}

func TestCPUBackend_Activations(t *testing.T) {
	backend := newTestBackend()

	x := rawFloat32(t, []float32{-2, -0.5, 0, 0.5, 2}, tensor.Shape{5})

	relu := backend.ReLU(x)
	if !float32SliceEqual(relu.AsFloat32(), []float32{0, 0, 0, 0.5, 2}) {
		t.Errorf("ReLU failed: got %v", relu.AsFloat32())
	}

	sigmoid := backend.Sigmoid(x)
	for i, v := range sigmoid.AsFloat32() {
		want := 1 / (1 + math.Exp(-float64(x.AsFloat32()[i])))
		if math.Abs(float64(v)-want) > 1e-5 {
			t.Errorf("Sigmoid element %d = %v, want %v", i, v, want)
		}
	}
	if sigmoid.AsFloat32()[2] != 0.5 {
		t.Errorf("Sigmoid(0) = %v, want 0.5", sigmoid.AsFloat32()[2])
	}

	tanh := backend.Tanh(x)
	for i, v := range tanh.AsFloat32() {
		want := math.Tanh(float64(x.AsFloat32()[i]))
		if math.Abs(float64(v)-want) > 1e-5 {
			t.Errorf("Tanh element %d = %v, want %v", i, v, want)
		}
	}
}

func TestCPUBackend_Softmax(t *testing.T) {
	backend := newTestBackend()

	t.Run("RowsSumToOne", func(t *testing.T) {
		x := rawFloat32(t, []float32{1, 2, 3, 1, 1, 1}, tensor.Shape{2, 3})

		result := backend.Softmax(x)

		data := result.AsFloat32()
		for r := 0; r < 2; r++ {
			var sum float32
			for c := 0; c < 3; c++ {
				sum += data[r*3+c]
			}
			if math.Abs(float64(sum)-1) > 1e-5 {
				t.Errorf("row %d sums to %v, want 1", r, sum)
			}
		}

		// Uniform logits give uniform probabilities.
		if !float32SliceEqual(data[3:], []float32{1.0 / 3, 1.0 / 3, 1.0 / 3}) {
			t.Errorf("uniform row = %v, want thirds", data[3:])
		}
	})

	t.Run("LargeValuesDoNotOverflow", func(t *testing.T) {
		x := rawFloat32(t, []float32{1000, 1001, 1002}, tensor.Shape{1, 3})

		result := backend.Softmax(x)

		var sum float32
		for _, v := range result.AsFloat32() {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				t.Fatalf("softmax produced %v", v)
			}
			sum += v
		}
		if math.Abs(float64(sum)-1) > 1e-5 {
			t.Errorf("row sums to %v, want 1", sum)
		}
	})
}

func TestCPUBackend_LogSoftmax(t *testing.T) {
	backend := newTestBackend()

	x := rawFloat32(t, []float32{1, 2, 3, 1000, 1001, 1002}, tensor.Shape{2, 3})

	result := backend.LogSoftmax(x)
	soft := backend.Softmax(x)

	data := result.AsFloat32()
	for i, v := range data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("logsoftmax produced %v at %d", v, i)
		}
	}

	// Matches log(softmax) where softmax is representable.
	for i := 0; i < 3; i++ {
		want := math.Log(float64(soft.AsFloat32()[i]))
		if math.Abs(float64(data[i])-want) > 1e-5 {
			t.Errorf("logsoftmax[%d] = %v, want %v", i, data[i], want)
		}
	}

	// exp of each row still sums to one.
	for r := 0; r < 2; r++ {
		var sum float64
		for c := 0; c < 3; c++ {
			sum += math.Exp(float64(data[r*3+c]))
		}
		if math.Abs(sum-1) > 1e-5 {
			t.Errorf("exp(row %d) sums to %v, want 1", r, sum)
		}
	}
}

func TestCPUBackend_Reductions(t *testing.T) {
	backend := newTestBackend()

	x := rawFloat32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	t.Run("Sum", func(t *testing.T) {
		result := backend.Sum(x)
		if !result.Shape().Equal(tensor.Shape{1}) {
			t.Fatalf("Sum shape = %v, want [1]", result.Shape())
		}
		if result.AsFloat32()[0] != 21 {
			t.Errorf("Sum = %v, want 21", result.AsFloat32()[0])
		}
	})

	t.Run("SumDim0", func(t *testing.T) {
		result := backend.SumDim(x, 0, false)
		if !result.Shape().Equal(tensor.Shape{3}) {
			t.Fatalf("SumDim(0) shape = %v, want [3]", result.Shape())
		}
		if !float32SliceEqual(result.AsFloat32(), []float32{5, 7, 9}) {
			t.Errorf("SumDim(0) = %v, want [5 7 9]", result.AsFloat32())
		}
	})

	t.Run("SumDim1KeepDim", func(t *testing.T) {
		result := backend.SumDim(x, 1, true)
		if !result.Shape().Equal(tensor.Shape{2, 1}) {
			t.Fatalf("SumDim(1, keep) shape = %v, want [2 1]", result.Shape())
		}
		if !float32SliceEqual(result.AsFloat32(), []float32{6, 15}) {
			t.Errorf("SumDim(1) = %v, want [6 15]", result.AsFloat32())
		}
	})

	t.Run("MeanDim", func(t *testing.T) {
		result := backend.MeanDim(x, 1, false)
		if !float32SliceEqual(result.AsFloat32(), []float32{2, 5}) {
			t.Errorf("MeanDim(1) = %v, want [2 5]", result.AsFloat32())
		}
	})

	t.Run("Argmax", func(t *testing.T) {
		scores := rawFloat32(t, []float32{0.1, 0.7, 0.2, 0.9, 0.05, 0.05}, tensor.Shape{2, 3})

		result := backend.Argmax(scores, 1)

		if result.DType() != tensor.Int32 {
			t.Fatalf("Argmax dtype = %v, want Int32", result.DType())
		}
		if !result.Shape().Equal(tensor.Shape{2}) {
			t.Fatalf("Argmax shape = %v, want [2]", result.Shape())
		}
		idx := result.AsInt32()
		if idx[0] != 1 || idx[1] != 0 {
			t.Errorf("Argmax = %v, want [1 0]", idx)
		}
	})
}
