package filters

import (
	"github.com/pkg/errors"
)

// ErrInvalidKernel is returned for kernels that are not square with an odd side.
var ErrInvalidKernel = errors.New("invalid kernel")

// Kernel is a square convolution matrix with an odd side length. Weights
// are stored row-major: the row index is the vertical offset.
type Kernel struct {
	size    int
	weights []float64
}

// NewKernel validates rows and copies them into a Kernel.
func NewKernel(rows [][]float64) (Kernel, error) {
	size := len(rows)
	if size == 0 {
		return Kernel{}, errors.Wrap(ErrInvalidKernel, "kernel is empty")
	}
	for i, row := range rows {
		if len(row) != size {
			return Kernel{}, errors.Wrapf(ErrInvalidKernel, "kernel must be a perfect square: row %d has %d weights, want %d",
				i, len(row), size)
		}
	}
	if size%2 == 0 {
		return Kernel{}, errors.Wrapf(ErrInvalidKernel, "kernel side must be odd, got %d", size)
	}

	weights := make([]float64, 0, size*size)
	for _, row := range rows {
		weights = append(weights, row...)
	}
	return Kernel{size: size, weights: weights}, nil
}

// MustKernel is NewKernel for package-level literals; it panics on invalid input.
func MustKernel(rows [][]float64) Kernel {
	k, err := NewKernel(rows)
	if err != nil {
		panic(err)
	}
	return k
}

// Identity returns the 1x1 kernel [[1]].
func Identity() Kernel {
	return Kernel{size: 1, weights: []float64{1}}
}

// Size returns the side length.
func (k Kernel) Size() int { return k.size }

// Radius returns size/2, the largest offset from the centre.
func (k Kernel) Radius() int { return k.size / 2 }

// Weight returns the weight at offset (dx, dy) from the centre.
func (k Kernel) Weight(dx, dy int) float64 {
	r := k.Radius()
	return k.weights[(dy+r)*k.size+dx+r]
}

// Sum returns the sum of all weights.
func (k Kernel) Sum() float64 {
	var sum float64
	for _, w := range k.weights {
		sum += w
	}
	return sum
}

func (k Kernel) valid() bool {
	return k.size > 0 && k.size%2 == 1 && len(k.weights) == k.size*k.size
}
