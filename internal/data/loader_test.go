package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fermion-ml/fermion/internal/backend/cpu"
	"github.com/fermion-ml/fermion/internal/tensor"
)

func sequentialDataset(t *testing.T, samples, dim int) *Dataset {
	t.Helper()
	features := make([]float32, samples*dim)
	labels := make([]int32, samples)
	for i := 0; i < samples; i++ {
		labels[i] = int32(i)
		for f := 0; f < dim; f++ {
			features[i*dim+f] = float32(i)
		}
	}
	ds, err := NewDataset(features, labels, dim)
	require.NoError(t, err)
	return ds
}

func drainLabels(l *Loader[*cpu.CPUBackend]) []int32 {
	var labels []int32
	for {
		batch, ok := l.Next()
		if !ok {
			return labels
		}
		labels = append(labels, batch.Labels.Data()...)
	}
}

func TestLoaderBatchShapes(t *testing.T) {
	backend := cpu.New()
	ds := sequentialDataset(t, 10, 3)
	loader := NewLoader(ds, 4, false, 1, backend)

	batch, ok := loader.Next()
	require.True(t, ok)
	assert.Equal(t, tensor.Shape{4, 3}, batch.Input.Shape())
	assert.Equal(t, tensor.Shape{4}, batch.Labels.Shape())
	assert.Equal(t, 4, batch.Size())
}

func TestLoaderPartialFinalBatch(t *testing.T) {
	backend := cpu.New()
	ds := sequentialDataset(t, 10, 2)
	loader := NewLoader(ds, 4, false, 1, backend)

	assert.Equal(t, 3, loader.NumBatches())

	sizes := []int{}
	for {
		batch, ok := loader.Next()
		if !ok {
			break
		}
		sizes = append(sizes, batch.Size())
	}
	assert.Equal(t, []int{4, 4, 2}, sizes)
}

func TestLoaderSequentialOrderWithoutShuffle(t *testing.T) {
	backend := cpu.New()
	ds := sequentialDataset(t, 6, 1)
	loader := NewLoader(ds, 2, false, 1, backend)

	assert.Equal(t, []int32{0, 1, 2, 3, 4, 5}, drainLabels(loader))
}

func TestLoaderShuffleCoversAllSamples(t *testing.T) {
	backend := cpu.New()
	ds := sequentialDataset(t, 20, 1)
	loader := NewLoader(ds, 6, true, 99, backend)

	labels := drainLabels(loader)
	require.Len(t, labels, 20)

	seen := map[int32]bool{}
	for _, l := range labels {
		seen[l] = true
	}
	assert.Len(t, seen, 20, "every sample appears exactly once per epoch")
}

func TestLoaderResetReshuffles(t *testing.T) {
	backend := cpu.New()
	ds := sequentialDataset(t, 50, 1)
	loader := NewLoader(ds, 50, true, 7, backend)

	first := drainLabels(loader)
	loader.Reset()
	second := drainLabels(loader)

	require.Len(t, second, 50)
	assert.NotEqual(t, first, second, "epochs should see different orders")
}

func TestLoaderDeterministicForSeed(t *testing.T) {
	backend := cpu.New()
	ds := sequentialDataset(t, 30, 1)

	a := drainLabels(NewLoader(ds, 7, true, 123, backend))
	b := drainLabels(NewLoader(ds, 7, true, 123, backend))
	assert.Equal(t, a, b)
}

func TestLoaderRestartable(t *testing.T) {
	backend := cpu.New()
	ds := sequentialDataset(t, 8, 1)
	loader := NewLoader(ds, 4, false, 1, backend)

	for epoch := 0; epoch < 3; epoch++ {
		labels := drainLabels(loader)
		assert.Len(t, labels, 8, "epoch %d", epoch)
		_, ok := loader.Next()
		assert.False(t, ok, "exhausted loader keeps returning ok=false")
		loader.Reset()
	}
}

func TestLoaderCopiesOutOfDataset(t *testing.T) {
	backend := cpu.New()
	ds := sequentialDataset(t, 4, 2)
	loader := NewLoader(ds, 2, false, 1, backend)

	batch, ok := loader.Next()
	require.True(t, ok)

	batch.Input.Raw().AsFloat32()[0] = -999

	features, _ := ds.Sample(0)
	assert.Equal(t, float32(0), features[0], "mutating a batch must not touch the dataset")
}
