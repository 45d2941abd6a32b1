package rastertools

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func constantBand(h, w int, v float32) NormalizedBand {
	data := make([]float32, h*w)
	for i := range data {
		data[i] = v
	}
	return NormalizedBand{Georef: Georef{Width: w, Height: h}, Data: data}
}

func TestNormalize(t *testing.T) {
	in := ClippedBand{Georef: Georef{Width: 4, Height: 1}, Data: []float64{0, 1, 2500, 10000}}
	got := Normalize(in, 10000)
	want := []float32{0, float32(1 / 10000.0), 0.25, 1}
	if !reflect.DeepEqual(got.Data, want) {
		t.Errorf("got %v, want %v", got.Data, want)
	}
	if got.Georef != in.Georef {
		t.Errorf("georef changed: got %+v, want %+v", got.Georef, in.Georef)
	}

	for i := 1; i < len(got.Data); i++ {
		if got.Data[i] < got.Data[i-1] {
			t.Errorf("normalization is not order preserving at %d", i)
		}
	}

	twice := Normalize(ClippedBand{Georef: in.Georef, Data: []float64{float64(got.Data[3])}}, 10000)
	if twice.Data[0] == got.Data[3] {
		t.Error("re-applying normalization should rescale")
	}
}

func TestNewStackChannelOrder(t *testing.T) {
	bs := BandSet{
		Red:   constantBand(2, 3, 1),
		Green: constantBand(2, 3, 2),
		Blue:  constantBand(2, 3, 3),
		NIR:   constantBand(2, 3, 4),
		SWIR:  constantBand(2, 3, 5),
	}
	s, err := NewStack(bs)
	if err != nil {
		t.Fatal(err)
	}
	if s.Height != 2 || s.Width != 3 || len(s.Data) != 2*3*Channels {
		t.Fatalf("got stack %dx%d with %d values", s.Width, s.Height, len(s.Data))
	}
	for row := 0; row < 2; row++ {
		for col := 0; col < 3; col++ {
			for c := 0; c < Channels; c++ {
				if got := s.At(row, col, c); got != float32(c+1) {
					t.Errorf("At(%d, %d, %d) = %v, want %v", row, col, c, got, c+1)
				}
			}
		}
	}
}

func TestNewStackShapeMismatch(t *testing.T) {
	bs := BandSet{
		Red:   constantBand(4, 4, 1),
		Green: constantBand(4, 4, 1),
		Blue:  constantBand(4, 4, 1),
		NIR:   constantBand(4, 3, 1),
		SWIR:  constantBand(4, 4, 1),
	}
	if _, err := NewStack(bs); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("got %v, want ErrShapeMismatch", err)
	}
}

func TestStackPatch(t *testing.T) {
	red := constantBand(5, 5, 0)
	for i := range red.Data {
		red.Data[i] = float32(i)
	}
	s, err := NewStack(BandSet{Red: red, Green: red, Blue: red, NIR: red, SWIR: red})
	if err != nil {
		t.Fatal(err)
	}

	p, ok := s.Patch(1, 2, 3)
	if !ok {
		t.Fatal("patch should fit")
	}
	if got := p.At(0, 0, 0); got != 7 {
		t.Errorf("got %v, want 7", got)
	}
	if got := p.At(2, 2, 4); got != 19 {
		t.Errorf("got %v, want 19", got)
	}
	if _, ok := s.Patch(3, 3, 3); ok {
		t.Error("patch crossing the edge should not fit")
	}
}

func TestBuiltUpHectares(t *testing.T) {
	m := NewMask(64, 64)
	if got := BuiltUpHectares(m, 10); got != 0 {
		t.Errorf("empty mask: got %v, want 0", got)
	}

	prev := 0.0
	for i := 0; i < 100; i++ {
		m.Data[i*7] = 1
		got := BuiltUpHectares(m, 10)
		if got < prev {
			t.Fatalf("area decreased from %v to %v", prev, got)
		}
		prev = got
	}
	if prev != 1.0 {
		t.Errorf("got %v, want 1.0 for 100 pixels of 10m", prev)
	}
}

func TestMaskSetTile(t *testing.T) {
	m := NewMask(4, 4)
	if err := m.SetTile(2, 2, 2, []uint8{1, 1, 0, 1}); err != nil {
		t.Fatal(err)
	}
	want := []uint8{
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 1, 1,
		0, 0, 0, 1,
	}
	if !reflect.DeepEqual(m.Data, want) {
		t.Errorf("got %v, want %v", m.Data, want)
	}
	if got := m.Count(2, 2, 2, 2); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
	if err := m.SetTile(3, 3, 2, []uint8{1, 1, 1, 1}); err == nil {
		t.Error("tile outside mask should fail")
	}
}

func TestWriteMaskKeepsGeoref(t *testing.T) {
	src := setUpRaster(t, 4326, [6]float64{36.8, 0.0001, 0, -1.2, 0, -0.0001}, 8, 6)
	cb, err := Clip(src, square(36.8, -1.2006, 36.8008, -1.2), 0)
	if err != nil {
		t.Fatal(err)
	}

	mask := NewMask(cb.Height, cb.Width)
	mask.Data[0] = 1
	mask.Data[len(mask.Data)-1] = 1

	out := filepath.Join(t.TempDir(), "prediction.tif")
	if err := WriteMask(out, mask, cb.Georef); err != nil {
		t.Fatal(err)
	}

	got, georef, err := ReadMask(out)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, mask) {
		t.Errorf("mask changed on disk")
	}
	if georef.GeoTransform != cb.GeoTransform || georef.Width != cb.Width || georef.Height != cb.Height {
		t.Errorf("got georef %+v, want %+v", georef, cb.Georef)
	}
	same, err := SameCRS(georef, cb.Georef)
	if err != nil {
		t.Fatal(err)
	}
	if !same {
		t.Error("CRS not carried to the output")
	}
}

func TestWriteMaskRejectsBadGeoref(t *testing.T) {
	out := filepath.Join(t.TempDir(), "prediction.tif")
	mask := NewMask(2, 2)
	if err := WriteMask(out, mask, Georef{GeoTransform: [6]float64{0, 1, 0, 0, 0, -1}, Width: 2, Height: 2}); !errors.Is(err, ErrMissingCRS) {
		t.Errorf("got %v, want ErrMissingCRS", err)
	}
}
