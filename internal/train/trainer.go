// Package train drives the optimization loop: epochs over a batch loader,
// forward pass, backward pass, optimizer step, and per-epoch loss
// reporting.
package train

import (
	"log"

	"github.com/pkg/errors"

	"github.com/fermion-ml/fermion/internal/autodiff"
	"github.com/fermion-ml/fermion/internal/data"
	"github.com/fermion-ml/fermion/internal/nn"
	"github.com/fermion-ml/fermion/internal/optim"
	"github.com/fermion-ml/fermion/internal/tensor"
)

// Config controls a training run.
type Config struct {
	// Epochs is the number of passes over the training data. Zero or
	// negative defaults to 1.
	Epochs int

	// Log receives one line per epoch when non-nil.
	Log *log.Logger
}

// EpochStats summarizes one pass over the training data. MeanLoss is the
// running loss total divided by the number of batches.
type EpochStats struct {
	Epoch    int
	MeanLoss float64
	Batches  int
	Samples  int
}

// Trainer wires a model, loss, optimizer, and batch loader into a training
// loop on top of a gradient-tracking backend.
type Trainer[B tensor.Backend] struct {
	backend   *autodiff.Backend[B]
	model     nn.Module[*autodiff.Backend[B]]
	criterion nn.Loss[*autodiff.Backend[B]]
	optimizer optim.Optimizer
	loader    *data.Loader[*autodiff.Backend[B]]
	config    Config

	history []EpochStats
}

// New builds a trainer and validates that the model's output kind matches
// what the loss consumes. Pairing a log-probability model with a loss that
// applies its own softmax silently destroys training, so the mismatch is
// rejected up front.
func New[B tensor.Backend](
	backend *autodiff.Backend[B],
	model nn.Module[*autodiff.Backend[B]],
	criterion nn.Loss[*autodiff.Backend[B]],
	optimizer optim.Optimizer,
	loader *data.Loader[*autodiff.Backend[B]],
	config Config,
) (*Trainer[B], error) {
	modelKind := nn.ModelOutputKind(model)
	if modelKind != criterion.InputKind() {
		return nil, errors.Errorf("train: model produces %s but the loss consumes %s", modelKind, criterion.InputKind())
	}
	if config.Epochs <= 0 {
		config.Epochs = 1
	}

	return &Trainer[B]{
		backend:   backend,
		model:     model,
		criterion: criterion,
		optimizer: optimizer,
		loader:    loader,
		config:    config,
	}, nil
}

// Run executes the configured number of epochs and returns per-epoch
// statistics. The tape is cleared before every batch, so each optimizer
// step sees only that batch's gradients.
func (t *Trainer[B]) Run() ([]EpochStats, error) {
	tape := t.backend.Tape()
	tape.StartRecording()
	defer tape.StopRecording()

	for epoch := 1; epoch <= t.config.Epochs; epoch++ {
		t.loader.Reset()

		totalLoss := 0.0
		batches, samples := 0, 0

		for {
			batch, ok := t.loader.Next()
			if !ok {
				break
			}

			tape.Clear()

			output := t.model.Forward(batch.Input)
			loss := t.criterion.Forward(output, batch.Labels)

			grads := t.backend.Gradients(loss.Raw())
			t.optimizer.Step(grads)

			totalLoss += float64(loss.Item())
			batches++
			samples += batch.Size()
		}

		if batches == 0 {
			return t.history, errors.New("train: loader produced no batches")
		}

		stats := EpochStats{
			Epoch:    epoch,
			MeanLoss: totalLoss / float64(batches),
			Batches:  batches,
			Samples:  samples,
		}
		t.history = append(t.history, stats)

		if t.config.Log != nil {
			t.config.Log.Printf("epoch %d/%d: loss=%.4f (%d batches, %d samples)",
				epoch, t.config.Epochs, stats.MeanLoss, stats.Batches, stats.Samples)
		}
	}

	return t.history, nil
}

// History returns the statistics of all completed epochs.
func (t *Trainer[B]) History() []EpochStats { return t.history }

// Predict runs the model on one input with gradient recording paused.
// Repeated calls with the same input return the same output: inference
// never mutates the model or the tape.
func (t *Trainer[B]) Predict(input *tensor.Tensor[float32, *autodiff.Backend[B]]) *tensor.Tensor[float32, *autodiff.Backend[B]] {
	var output *tensor.Tensor[float32, *autodiff.Backend[B]]
	t.backend.WithoutRecording(func() {
		output = t.model.Forward(input)
	})
	return output
}

// Evaluate runs the model over a loader with recording paused and returns
// the mean loss and accuracy. The loader is reset first, so evaluation
// always covers the full dataset.
func (t *Trainer[B]) Evaluate(loader *data.Loader[*autodiff.Backend[B]]) (meanLoss, accuracy float64, err error) {
	loader.Reset()

	totalLoss, totalCorrect := 0.0, 0.0
	samples := 0

	t.backend.WithoutRecording(func() {
		for {
			batch, ok := loader.Next()
			if !ok {
				break
			}

			output := t.model.Forward(batch.Input)
			loss := t.criterion.Forward(output, batch.Labels)

			n := batch.Size()
			totalLoss += float64(loss.Item()) * float64(n)
			totalCorrect += nn.Accuracy(output, batch.Labels) * float64(n)
			samples += n
		}
	})

	if samples == 0 {
		return 0, 0, errors.New("train: evaluation loader produced no batches")
	}
	return totalLoss / float64(samples), totalCorrect / float64(samples), nil
}
