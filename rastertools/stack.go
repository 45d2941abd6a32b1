package rastertools

import (
	"errors"
	"fmt"
)

// Channels is the depth of a Stack: red, green, blue, NIR, SWIR.
const Channels = 5

var ErrShapeMismatch = errors.New("bands differ in shape")

// NormalizedBand holds reflectance values scaled from digital numbers.
type NormalizedBand struct {
	Georef
	Data []float32
}

// Normalize divides every value by scale. It does not clamp, so applying it
// twice scales twice.
func Normalize(band ClippedBand, scale float64) NormalizedBand {
	out := make([]float32, len(band.Data))
	for i, v := range band.Data {
		out[i] = float32(v / scale)
	}
	return NormalizedBand{Georef: band.Georef, Data: out}
}

// BandSet names the stack slots so that channel order is fixed at the call
// site.
type BandSet struct {
	Red   NormalizedBand
	Green NormalizedBand
	Blue  NormalizedBand
	NIR   NormalizedBand
	SWIR  NormalizedBand
}

func (bs BandSet) ordered() [Channels]NormalizedBand {
	return [Channels]NormalizedBand{bs.Red, bs.Green, bs.Blue, bs.NIR, bs.SWIR}
}

// Stack is an interleaved height x width x Channels image.
type Stack struct {
	Height int
	Width  int
	Data   []float32
}

func NewStack(bs BandSet) (*Stack, error) {
	bands := bs.ordered()
	h, w := bands[0].Height, bands[0].Width
	for i, b := range bands {
		if b.Height != h || b.Width != w || len(b.Data) != h*w {
			return nil, fmt.Errorf("%w: channel %d is %dx%d, channel 0 is %dx%d", ErrShapeMismatch, i, b.Width, b.Height, w, h)
		}
	}

	data := make([]float32, h*w*Channels)
	for c, b := range bands {
		for pix, v := range b.Data {
			data[pix*Channels+c] = v
		}
	}
	return &Stack{Height: h, Width: w, Data: data}, nil
}

func (s *Stack) At(row, col, channel int) float32 {
	return s.Data[(row*s.Width+col)*Channels+channel]
}

// Patch is a size x size x Channels window of a Stack, interleaved like the
// stack itself.
type Patch struct {
	Row  int
	Col  int
	Size int
	Data []float32
}

func (p Patch) At(row, col, channel int) float32 {
	return p.Data[(row*p.Size+col)*Channels+channel]
}

// Patch copies the window starting at (row, col). ok is false when the
// window does not fit inside the stack.
func (s *Stack) Patch(row, col, size int) (Patch, bool) {
	if row < 0 || col < 0 || size <= 0 || row+size > s.Height || col+size > s.Width {
		return Patch{}, false
	}
	data := make([]float32, size*size*Channels)
	stride := size * Channels
	for r := 0; r < size; r++ {
		start := ((row+r)*s.Width + col) * Channels
		copy(data[r*stride:(r+1)*stride], s.Data[start:start+stride])
	}
	return Patch{Row: row, Col: col, Size: size, Data: data}, true
}
