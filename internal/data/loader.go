package data

import (
	"fmt"
	"math/rand"

	"github.com/fermion-ml/fermion/internal/tensor"
)

// Batch is one training step's worth of data, already shaped for a model:
// Input is [n, featureDim] float32, Labels is [n] int32. The final batch
// of an epoch may be smaller than the configured batch size.
type Batch[B tensor.Backend] struct {
	Input  *tensor.Tensor[float32, B]
	Labels *tensor.Tensor[int32, B]
}

// Size returns the number of samples in the batch.
func (b *Batch[B]) Size() int { return b.Labels.Shape()[0] }

// Loader iterates a dataset in batches. With shuffling enabled it draws a
// fresh permutation from its own seeded generator on every Reset, so epochs
// differ from each other while whole runs stay reproducible.
type Loader[B tensor.Backend] struct {
	dataset   *Dataset
	batchSize int
	shuffle   bool
	rng       *rand.Rand
	backend   B

	order []int
	pos   int
}

// NewLoader creates a batch loader over a dataset. The loader starts ready
// for a first pass; call Reset between epochs.
func NewLoader[B tensor.Backend](ds *Dataset, batchSize int, shuffle bool, seed int64, backend B) *Loader[B] {
	if batchSize <= 0 {
		panic(fmt.Sprintf("data: batch size must be positive, got %d", batchSize))
	}

	l := &Loader[B]{
		dataset:   ds,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rand.New(rand.NewSource(seed)), //nolint:gosec // shuffle order, not security-sensitive
		backend:   backend,
		order:     make([]int, ds.Len()),
	}
	l.Reset()
	return l
}

// Reset rewinds the loader and, when shuffling, draws a new sample order.
func (l *Loader[B]) Reset() {
	for i := range l.order {
		l.order[i] = i
	}
	if l.shuffle {
		l.rng.Shuffle(len(l.order), func(i, j int) {
			l.order[i], l.order[j] = l.order[j], l.order[i]
		})
	}
	l.pos = 0
}

// Next returns the next batch, or ok=false when the epoch is exhausted.
// Batches copy out of the dataset, so models may not corrupt it.
func (l *Loader[B]) Next() (batch *Batch[B], ok bool) {
	if l.pos >= l.dataset.Len() {
		return nil, false
	}

	n := l.batchSize
	if remaining := l.dataset.Len() - l.pos; remaining < n {
		n = remaining
	}

	dim := l.dataset.FeatureDim()
	input, err := tensor.NewRaw(tensor.Shape{n, dim}, tensor.Float32, l.backend.Device())
	if err != nil {
		panic(fmt.Sprintf("data: %v", err))
	}
	labels, err := tensor.NewRaw(tensor.Shape{n}, tensor.Int32, l.backend.Device())
	if err != nil {
		panic(fmt.Sprintf("data: %v", err))
	}

	inputData := input.AsFloat32()
	labelData := labels.AsInt32()
	for row := 0; row < n; row++ {
		features, label := l.dataset.Sample(l.order[l.pos+row])
		copy(inputData[row*dim:(row+1)*dim], features)
		labelData[row] = label
	}
	l.pos += n

	return &Batch[B]{
		Input:  tensor.New[float32](input, l.backend),
		Labels: tensor.New[int32](labels, l.backend),
	}, true
}

// NumBatches returns the number of batches per epoch, counting a trailing
// partial batch.
func (l *Loader[B]) NumBatches() int {
	return (l.dataset.Len() + l.batchSize - 1) / l.batchSize
}

// Len returns the number of samples behind the loader.
func (l *Loader[B]) Len() int { return l.dataset.Len() }
