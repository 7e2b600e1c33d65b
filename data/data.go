// Copyright 2026 Fermion ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package data is the public API for datasets and batch loading.
package data

import (
	"github.com/fermion-ml/fermion/internal/data"
	"github.com/fermion-ml/fermion/internal/tensor"
)

// Dataset is an in-memory collection of flat float32 samples with int32
// labels.
type Dataset = data.Dataset

// NewDataset wraps pre-flattened features and labels.
func NewDataset(features []float32, labels []int32, featureDim int) (*Dataset, error) {
	return data.NewDataset(features, labels, featureDim)
}

// Synthetic generates a reproducible clustered classification dataset.
func Synthetic(samples, featureDim, classes int, seed int64) *Dataset {
	return data.Synthetic(samples, featureDim, classes, seed)
}

// Batch is one step's worth of data: Input [n, featureDim] float32 and
// Labels [n] int32.
type Batch[B tensor.Backend] = data.Batch[B]

// Loader iterates a dataset in batches, reshuffling on every Reset.
type Loader[B tensor.Backend] = data.Loader[B]

// NewLoader creates a batch loader over a dataset.
//
//	loader := data.NewLoader(dataset, 64, true, 42, backend)
func NewLoader[B tensor.Backend](ds *Dataset, batchSize int, shuffle bool, seed int64, backend B) *Loader[B] {
	return data.NewLoader(ds, batchSize, shuffle, seed, backend)
}
