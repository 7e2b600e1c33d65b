// Package data provides in-memory datasets and the batching loader that
// feeds training. Samples are flat float32 feature vectors with int32
// class labels.
package data

import (
	"math/rand"

	"github.com/pkg/errors"
)

// Dataset is an in-memory collection of fixed-width samples.
type Dataset struct {
	features   []float32 // len = numSamples * featureDim
	labels     []int32   // len = numSamples
	featureDim int
}

// NewDataset wraps pre-flattened features and labels. features must hold
// exactly len(labels) * featureDim values.
func NewDataset(features []float32, labels []int32, featureDim int) (*Dataset, error) {
	if featureDim <= 0 {
		return nil, errors.Errorf("data: feature dimension must be positive, got %d", featureDim)
	}
	if len(features) != len(labels)*featureDim {
		return nil, errors.Errorf("data: %d feature values do not fit %d samples of width %d",
			len(features), len(labels), featureDim)
	}
	return &Dataset{features: features, labels: labels, featureDim: featureDim}, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.labels) }

// FeatureDim returns the width of each sample.
func (d *Dataset) FeatureDim() int { return d.featureDim }

// Sample returns the feature vector and label at index i. The returned
// slice aliases the dataset; callers must not modify it.
func (d *Dataset) Sample(i int) ([]float32, int32) {
	return d.features[i*d.featureDim : (i+1)*d.featureDim], d.labels[i]
}

// Split cuts the dataset after n samples, returning the head and tail as
// views over the same storage. Useful for a train/validation split.
func (d *Dataset) Split(n int) (*Dataset, *Dataset) {
	if n < 0 || n > d.Len() {
		n = d.Len()
	}
	head := &Dataset{
		features:   d.features[:n*d.featureDim],
		labels:     d.labels[:n],
		featureDim: d.featureDim,
	}
	tail := &Dataset{
		features:   d.features[n*d.featureDim:],
		labels:     d.labels[n:],
		featureDim: d.featureDim,
	}
	return head, tail
}

// Synthetic generates a linearly separable classification dataset: each
// class gets a random center in [0,1)^dim and samples scatter around it.
// Deterministic for a given seed, handy for tests and smoke runs.
func Synthetic(samples, featureDim, classes int, seed int64) *Dataset {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible test data

	centers := make([]float32, classes*featureDim)
	for i := range centers {
		centers[i] = rng.Float32()
	}

	features := make([]float32, samples*featureDim)
	labels := make([]int32, samples)
	for s := 0; s < samples; s++ {
		class := s % classes
		labels[s] = int32(class)
		for f := 0; f < featureDim; f++ {
			noise := float32(rng.NormFloat64()) * 0.05
			features[s*featureDim+f] = centers[class*featureDim+f] + noise
		}
	}

	ds, err := NewDataset(features, labels, featureDim)
	if err != nil {
		panic(err) // construction above is always consistent
	}
	return ds
}
