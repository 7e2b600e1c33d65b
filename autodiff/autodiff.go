// Copyright 2026 Fermion ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff exposes reverse-mode automatic differentiation.
//
// Wrap any backend to record forward operations on a gradient tape and
// replay them in reverse:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	// ... forward pass producing a scalar loss ...
//	grads := backend.Gradients(loss.Raw())
package autodiff

import (
	"github.com/fermion-ml/fermion/internal/autodiff"
	"github.com/fermion-ml/fermion/internal/tensor"
)

// Backend decorates an inner backend with gradient tracking.
type Backend[B tensor.Backend] = autodiff.Backend[B]

// New wraps a backend with a fresh, non-recording gradient tape.
func New[B tensor.Backend](inner B) *Backend[B] {
	return autodiff.New(inner)
}

// GradientTape records operations for the backward pass.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates an empty, non-recording tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}
