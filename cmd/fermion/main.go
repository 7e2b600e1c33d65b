// Package main provides the Fermion ML Framework CLI.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/fermion-ml/fermion/autodiff"
	"github.com/fermion-ml/fermion/backend/cpu"
	"github.com/fermion-ml/fermion/data"
	"github.com/fermion-ml/fermion/data/mnist"
	"github.com/fermion-ml/fermion/nn"
	"github.com/fermion-ml/fermion/optim"
	"github.com/fermion-ml/fermion/train"
)

const version = "v0.1.0-dev"

type backend = *autodiff.Backend[*cpu.Backend]

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("Fermion ML Framework %s\n", version)
	case "train":
		if err := runTrain(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "fermion train: %v\n", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("Fermion ML Framework - Neural Network Training for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  train      Train a classifier (see 'fermion train -h')")
}

func runTrain(args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	var (
		dataDir    = fs.String("data", "", "directory with MNIST IDX files (empty: synthetic data)")
		epochs     = fs.Int("epochs", 5, "training epochs")
		batchSize  = fs.Int("batch", 64, "batch size")
		lr         = fs.Float64("lr", 0.003, "learning rate")
		hidden     = fs.String("hidden", "128,64", "comma-separated hidden layer widths")
		activation = fs.String("activation", "relu", "hidden activation: relu, sigmoid, or tanh")
		output     = fs.String("output", "logprob", "output head: logits (cross-entropy) or logprob (log-softmax + NLL)")
		seed       = fs.Int64("seed", 42, "shuffle seed")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	be := autodiff.New(cpu.New())
	logger := log.New(os.Stderr, "", log.LstdFlags)

	trainSet, testSet, features, classes, err := loadData(*dataDir)
	if err != nil {
		return err
	}
	logger.Printf("loaded %d training and %d test samples (%d features, %d classes)",
		trainSet.Len(), testSet.Len(), features, classes)

	model, err := buildModel(be, features, classes, *hidden, *activation, *output == "logprob")
	if err != nil {
		return err
	}

	var criterion nn.Loss[backend]
	if *output == "logprob" {
		criterion = nn.NewNLLLoss(be)
	} else {
		criterion = nn.NewCrossEntropyLoss(be)
	}

	loader := data.NewLoader(trainSet, *batchSize, true, *seed, be)
	trainer, err := train.New(be, model, criterion, optim.NewSGD(model.Parameters(), float32(*lr)), loader,
		train.Config{Epochs: *epochs, Log: logger})
	if err != nil {
		return err
	}

	if _, err := trainer.Run(); err != nil {
		return err
	}

	testLoader := data.NewLoader(testSet, *batchSize, false, *seed, be)
	loss, accuracy, err := trainer.Evaluate(testLoader)
	if err != nil {
		return err
	}
	logger.Printf("test: loss=%.4f accuracy=%.2f%%", loss, accuracy*100)
	return nil
}

// loadData reads MNIST when a directory is given, falling back to a
// synthetic clustered dataset for smoke runs without the files.
func loadData(dir string) (trainSet, testSet *data.Dataset, features, classes int, err error) {
	if dir != "" {
		trainSet, err = mnist.Load(dir, true)
		if err != nil {
			return nil, nil, 0, 0, err
		}
		testSet, err = mnist.Load(dir, false)
		if err != nil {
			return nil, nil, 0, 0, err
		}
		return trainSet, testSet, mnist.ImageSize, mnist.NumClasses, nil
	}

	full := data.Synthetic(2000, 32, 10, 1)
	trainSet, testSet = full.Split(1600)
	return trainSet, testSet, 32, 10, nil
}

func buildModel(be backend, features, classes int, hidden, activation string, logProb bool) (*nn.Sequential[backend], error) {
	model := nn.NewSequential[backend]()

	width := features
	for _, part := range strings.Split(hidden, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid hidden width %q", part)
		}

		model.Add(nn.NewLinear(width, n, be))
		switch activation {
		case "relu":
			model.Add(nn.NewReLU[backend]())
		case "sigmoid":
			model.Add(nn.NewSigmoid[backend]())
		case "tanh":
			model.Add(nn.NewTanh[backend]())
		default:
			return nil, fmt.Errorf("unknown activation %q", activation)
		}
		width = n
	}

	model.Add(nn.NewLinear(width, classes, be))
	if logProb {
		model.Add(nn.NewLogSoftmax[backend]())
	}
	return model, nil
}
