// Package distributions provides the concrete Distribution variants:
// uniform, gaussian, and unit-gaussian. Each owns the recognized
// configuration options for its family and is wired into the
// altar.Distribution registry via init(), so a new variant can be
// added in its own file without touching the registry's callers.
package distributions

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// base holds the RNG every concrete distribution binds to during
// Initialize; embedding it spares each variant from repeating the
// bookkeeping.
type base struct {
	rng *rand.Rand
}

func (b *base) Initialize(rng *rand.Rand) error {
	if rng == nil {
		return fmt.Errorf("distributions: nil rng")
	}
	b.rng = rng
	return nil
}

// forEachCell applies f to every (row, column) of the
// theta[:, offset:offset+count) block.
func forEachCell(theta *mat.Dense, offset, count int, f func(row, col int, v float64)) {
	rows, _ := theta.Dims()
	for i := 0; i < rows; i++ {
		for j := offset; j < offset+count; j++ {
			f(i, j, theta.At(i, j))
		}
	}
}

func floatOpt(opts map[string]any, key string, fallback float64) float64 {
	if v, ok := opts[key]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return fallback
}
