package classify

import (
	"context"

	"urban-growth/rastertools"
)

// Stack channel positions.
const (
	red = iota
	green
	blue
	nir
	swir
)

// NDBI labels a pixel built-up when the normalized difference built-up index
// (SWIR - NIR) / (SWIR + NIR) exceeds Threshold and the vegetation index
// (NIR - Red) / (NIR + Red) stays below MaxNDVI. It needs no model weights.
type NDBI struct {
	Threshold float64
	MaxNDVI   float64
}

func (n NDBI) Classify(ctx context.Context, patch rastertools.Patch) ([]uint8, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]uint8, patch.Size*patch.Size)
	for row := 0; row < patch.Size; row++ {
		for col := 0; col < patch.Size; col++ {
			r := float64(patch.At(row, col, red))
			n8 := float64(patch.At(row, col, nir))
			s := float64(patch.At(row, col, swir))
			if ratio(s-n8, s+n8) > n.Threshold && ratio(n8-r, n8+r) < n.MaxNDVI {
				out[row*patch.Size+col] = 1
			}
		}
	}
	return out, nil
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
