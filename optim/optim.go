// Copyright 2026 Fermion ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim is the public optimizer API.
package optim

import (
	"github.com/fermion-ml/fermion/internal/nn"
	"github.com/fermion-ml/fermion/internal/optim"
	"github.com/fermion-ml/fermion/internal/tensor"
)

// Optimizer applies one update from the gradient map of a backward pass.
type Optimizer = optim.Optimizer

// SGD is stochastic gradient descent, optionally with momentum.
type SGD[B tensor.Backend] = optim.SGD[B]

// NewSGD creates a plain SGD optimizer.
//
//	optimizer := optim.NewSGD(model.Parameters(), 0.003)
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], lr float32) *SGD[B] {
	return optim.NewSGD(params, lr)
}

// NewSGDWithMomentum creates an SGD optimizer with classical momentum.
func NewSGDWithMomentum[B tensor.Backend](params []*nn.Parameter[B], lr, momentum float32) *SGD[B] {
	return optim.NewSGDWithMomentum(params, lr, momentum)
}

// Adam is the Adam optimizer with bias-corrected moment estimates.
type Adam[B tensor.Backend] = optim.Adam[B]

// NewAdam creates an Adam optimizer with the usual defaults.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], lr float32) *Adam[B] {
	return optim.NewAdam(params, lr)
}
