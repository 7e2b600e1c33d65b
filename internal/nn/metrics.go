package nn

import (
	"fmt"

	"github.com/fermion-ml/fermion/internal/tensor"
)

// Accuracy returns the fraction of rows whose argmax matches the target
// class. output is [batch, classes] (any kind: argmax is monotonic under
// softmax and log), targets is [batch].
func Accuracy[B tensor.Backend](output *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) float64 {
	if output.Shape()[0] != targets.Shape()[0] {
		panic(fmt.Sprintf("Accuracy: batch mismatch: output %v vs targets %v", output.Shape(), targets.Shape()))
	}

	predicted := output.Backend().Argmax(output.Raw(), 1).AsInt32()
	targetData := targets.Raw().AsInt32()

	correct := 0
	for i, p := range predicted {
		if p == targetData[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(targetData))
}
