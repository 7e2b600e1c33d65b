// Copyright 2026 Fermion ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package mnist loads the MNIST handwritten digit dataset.
package mnist

import (
	"github.com/fermion-ml/fermion/data"
	"github.com/fermion-ml/fermion/internal/data/mnist"
)

// Dataset dimensions.
const (
	ImageSize  = mnist.ImageSize
	NumClasses = mnist.NumClasses
)

// Load reads the MNIST training or test split from dir, accepting plain or
// gzip-compressed IDX files. Pixels are scaled to [0, 1].
func Load(dir string, train bool) (*data.Dataset, error) {
	return mnist.Load(dir, train)
}
