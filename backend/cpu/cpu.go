// Copyright 2026 Fermion ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu exposes the pure-Go CPU backend.
package cpu

import (
	internalcpu "github.com/fermion-ml/fermion/internal/backend/cpu"
	"github.com/fermion-ml/fermion/tensor"
)

// Backend is the CPU implementation of tensor.Backend. Matrix products go
// through gonum BLAS; elementwise kernels shard across goroutines for
// large tensors.
type Backend = internalcpu.CPUBackend

var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend.
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
func New() *Backend {
	return internalcpu.New()
}
