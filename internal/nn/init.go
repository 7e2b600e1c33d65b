package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/fermion-ml/fermion/internal/tensor"
)

// Xavier returns a tensor initialized from the Glorot uniform distribution
// U(-b, b) with b = sqrt(6 / (fanIn + fanOut)). It keeps activation
// variance roughly constant across layers at the start of training.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	raw, err := tensor.NewRaw(shape, tensor.Float32, backend.Device())
	if err != nil {
		panic(fmt.Sprintf("Xavier: %v", err))
	}

	data := raw.AsFloat32()
	for i := range data {
		//nolint:gosec // weight initialization, not security-sensitive
		data[i] = float32((rand.Float64()*2 - 1) * bound)
	}

	return tensor.New[float32](raw, backend)
}
