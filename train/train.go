// Copyright 2026 Fermion ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train is the public API for the training loop driver.
package train

import (
	"github.com/fermion-ml/fermion/internal/autodiff"
	"github.com/fermion-ml/fermion/internal/data"
	"github.com/fermion-ml/fermion/internal/nn"
	"github.com/fermion-ml/fermion/internal/optim"
	"github.com/fermion-ml/fermion/internal/tensor"
	"github.com/fermion-ml/fermion/internal/train"
)

// Config controls a training run.
type Config = train.Config

// EpochStats summarizes one pass over the training data.
type EpochStats = train.EpochStats

// Trainer wires a model, loss, optimizer, and batch loader into a training
// loop on top of a gradient-tracking backend.
type Trainer[B tensor.Backend] = train.Trainer[B]

// New builds a trainer. It fails when the model's output kind does not
// match what the loss consumes.
//
//	trainer, err := train.New(backend, model, criterion, optimizer, loader,
//	    train.Config{Epochs: 5})
func New[B tensor.Backend](
	backend *autodiff.Backend[B],
	model nn.Module[*autodiff.Backend[B]],
	criterion nn.Loss[*autodiff.Backend[B]],
	optimizer optim.Optimizer,
	loader *data.Loader[*autodiff.Backend[B]],
	config Config,
) (*Trainer[B], error) {
	return train.New(backend, model, criterion, optimizer, loader, config)
}
