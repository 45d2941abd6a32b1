package rastertools

import (
	"errors"
	"fmt"
	"math"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/sirupsen/logrus"
)

var ErrNoOverlap = errors.New("AOI does not intersect raster")

// ClippedBand is a single band cropped to the bounding window of an AOI.
// Pixels inside the window whose centre lies outside the AOI hold NoData.
type ClippedBand struct {
	Georef
	NoData float64
	Data   []float64
}

// Clip reads the window of the first band of the raster at path that covers
// aoi, masking pixels outside the polygon with nodata.
func Clip(path string, aoi orb.MultiPolygon, nodata float64) (cb ClippedBand, err error) {
	godal.RegisterAll()
	logrus.Debugf("Clipping %s", path)

	ds, err := godal.Open(path)
	if err != nil {
		return ClippedBand{}, err
	}
	defer func() {
		err = errors.Join(err, ds.Close())
	}()

	src, err := datasetGeoref(ds)
	if err != nil {
		return ClippedBand{}, fmt.Errorf("%s: %w", path, err)
	}
	rasterBands := ds.Bands()
	if len(rasterBands) == 0 {
		return ClippedBand{}, fmt.Errorf("%s: raster has no bands", path)
	}

	sr := ds.SpatialRef()
	local, err := reprojectAOI(aoi, sr)
	sr.Close()
	if err != nil {
		return ClippedBand{}, fmt.Errorf("reproject AOI: %w", err)
	}

	x0, y0, x1, y1 := pixelWindow(local.Bound(), src)
	if x1 <= x0 || y1 <= y0 {
		return ClippedBand{}, ErrNoOverlap
	}
	win := src.Window(x0, y0, x1-x0, y1-y0)

	buf := make([]float64, win.Width*win.Height)
	if err := rasterBands[0].Read(x0, y0, buf, win.Width, win.Height); err != nil {
		return ClippedBand{}, fmt.Errorf("read window [%d,%d %dx%d]: %w", x0, y0, win.Width, win.Height, err)
	}

	covered := maskOutside(buf, win, local, nodata)
	if covered == 0 {
		return ClippedBand{}, ErrNoOverlap
	}
	logrus.Debugf("Clipped %s to %dx%d, %d pixels inside AOI", path, win.Width, win.Height, covered)

	return ClippedBand{Georef: win, NoData: nodata, Data: buf}, nil
}

func datasetGeoref(ds *godal.Dataset) (Georef, error) {
	gt, err := ds.GeoTransform()
	if err != nil {
		return Georef{}, fmt.Errorf("%w: %v", ErrMissingTransform, err)
	}
	struc := ds.Structure()
	g := Georef{
		Projection:   ds.Projection(),
		GeoTransform: gt,
		Width:        struc.SizeX,
		Height:       struc.SizeY,
	}
	return g, g.Validate()
}

// pixelWindow converts a bound in raster CRS to a pixel window clamped to
// the raster. The window is empty when x1 <= x0 or y1 <= y0.
func pixelWindow(b orb.Bound, g Georef) (x0, y0, x1, y1 int) {
	gt := g.GeoTransform
	colA := (b.Min.X() - gt[0]) / gt[1]
	colB := (b.Max.X() - gt[0]) / gt[1]
	rowA := (b.Min.Y() - gt[3]) / gt[5]
	rowB := (b.Max.Y() - gt[3]) / gt[5]

	x0 = clamp(int(math.Floor(math.Min(colA, colB))), 0, g.Width)
	x1 = clamp(int(math.Ceil(math.Max(colA, colB))), 0, g.Width)
	y0 = clamp(int(math.Floor(math.Min(rowA, rowB))), 0, g.Height)
	y1 = clamp(int(math.Ceil(math.Max(rowA, rowB))), 0, g.Height)
	return x0, y0, x1, y1
}

// maskOutside sets every pixel whose centre is outside aoi to nodata and
// returns the number of pixels left untouched.
func maskOutside(buf []float64, win Georef, aoi orb.MultiPolygon, nodata float64) int {
	covered := 0
	for pix := range buf {
		// GDAL is row-major
		row := pix / win.Width
		col := pix % win.Width
		x, y := win.PixelCenter(float64(col), float64(row))
		if planar.MultiPolygonContains(aoi, orb.Point{x, y}) {
			covered++
			continue
		}
		buf[pix] = nodata
	}
	return covered
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
