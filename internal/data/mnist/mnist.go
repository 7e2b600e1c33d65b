package mnist

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/fermion-ml/fermion/internal/data"
)

// Standard MNIST file names. Load also accepts the .gz variants.
const (
	trainImagesFile = "train-images-idx3-ubyte"
	trainLabelsFile = "train-labels-idx1-ubyte"
	testImagesFile  = "t10k-images-idx3-ubyte"
	testLabelsFile  = "t10k-labels-idx1-ubyte"
)

// ImageSize is the flattened width of one MNIST digit (28x28 pixels).
const ImageSize = 28 * 28

// NumClasses is the number of digit classes.
const NumClasses = 10

// Load reads the MNIST training or test split from dir. Pixels are scaled
// from [0,255] to [0,1]; each sample is a flat 784-wide vector.
func Load(dir string, train bool) (*data.Dataset, error) {
	imagesFile, labelsFile := testImagesFile, testLabelsFile
	if train {
		imagesFile, labelsFile = trainImagesFile, trainLabelsFile
	}

	pixels, count, rows, cols, err := loadImages(dir, imagesFile)
	if err != nil {
		return nil, err
	}
	if rows*cols != ImageSize {
		return nil, errors.Errorf("mnist: unexpected image size %dx%d, want 28x28", rows, cols)
	}

	labels, err := loadLabels(dir, labelsFile)
	if err != nil {
		return nil, err
	}
	if len(labels) != count {
		return nil, errors.Errorf("mnist: %d images but %d labels", count, len(labels))
	}

	features := make([]float32, len(pixels))
	for i, p := range pixels {
		features[i] = float32(p) / 255.0
	}

	labels32 := make([]int32, len(labels))
	for i, l := range labels {
		labels32[i] = int32(l)
	}

	ds, err := data.NewDataset(features, labels32, ImageSize)
	return ds, errors.Wrap(err, "mnist: assembling dataset")
}

func loadImages(dir, name string) (pixels []uint8, count, rows, cols int, err error) {
	r, err := openFirst(dir, name)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	defer r.Close()
	return readImages(r)
}

func loadLabels(dir, name string) ([]uint8, error) {
	r, err := openFirst(dir, name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return readLabels(r)
}

// openFirst tries the plain file name, then the gzip variant.
func openFirst(dir, name string) (io.ReadCloser, error) {
	plain := filepath.Join(dir, name)
	if _, statErr := os.Stat(plain); statErr == nil {
		return openIDX(plain)
	}

	gz := plain + ".gz"
	if _, statErr := os.Stat(gz); statErr == nil {
		return openIDX(gz)
	}

	return nil, errors.Errorf("mnist: neither %s nor %s.gz found in %s", name, name, dir)
}
