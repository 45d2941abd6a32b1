package rastertools

import "fmt"

// Mask is a single band binary raster, 1 for built-up pixels.
type Mask struct {
	Height int
	Width  int
	Data   []uint8
}

func NewMask(height, width int) *Mask {
	return &Mask{Height: height, Width: width, Data: make([]uint8, height*width)}
}

func (m *Mask) At(row, col int) uint8 {
	return m.Data[row*m.Width+col]
}

// SetTile copies a size x size tile into the mask at (row, col).
func (m *Mask) SetTile(row, col, size int, tile []uint8) error {
	if len(tile) != size*size {
		return fmt.Errorf("tile has %d values, want %d", len(tile), size*size)
	}
	if row < 0 || col < 0 || row+size > m.Height || col+size > m.Width {
		return fmt.Errorf("tile at [%d, %d] size %d outside %dx%d mask", row, col, size, m.Width, m.Height)
	}
	for r := 0; r < size; r++ {
		copy(m.Data[(row+r)*m.Width+col:(row+r)*m.Width+col+size], tile[r*size:(r+1)*size])
	}
	return nil
}

// Count returns the number of built-up pixels in the window starting at
// (row, col).
func (m *Mask) Count(row, col, height, width int) int {
	n := 0
	for r := row; r < row+height; r++ {
		for _, v := range m.Data[r*m.Width+col : r*m.Width+col+width] {
			if v == 1 {
				n++
			}
		}
	}
	return n
}

func (m *Mask) CountBuiltUp() int {
	return m.Count(0, 0, m.Height, m.Width)
}

// Hectares converts a pixel count to ground area for square pixels of
// pixelEdgeM metres.
func Hectares(pixels int, pixelEdgeM float64) float64 {
	return float64(pixels) * pixelEdgeM * pixelEdgeM / 10000
}

// BuiltUpHectares is the built-up area of the mask. The resolution is not
// derived from the georeferencing.
func BuiltUpHectares(m *Mask, pixelEdgeM float64) float64 {
	return Hectares(m.CountBuiltUp(), pixelEdgeM)
}
