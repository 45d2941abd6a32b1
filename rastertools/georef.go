package rastertools

import (
	"errors"
	"fmt"
	"math"

	"github.com/airbusgeo/godal"
)

var (
	ErrMissingCRS       = errors.New("raster has no coordinate reference system")
	ErrMissingTransform = errors.New("raster has no usable geotransform")
	ErrRotated          = errors.New("rotated geotransforms are not supported")
	ErrGeorefMismatch   = errors.New("bands disagree in CRS, resolution or grid origin")
)

// Georef is the georeferencing of a raster: CRS as WKT, the GDAL affine
// geotransform and the pixel dimensions.
type Georef struct {
	Projection   string
	GeoTransform [6]float64
	Width        int
	Height       int
}

func (g Georef) Validate() error {
	if g.Projection == "" {
		return ErrMissingCRS
	}
	if g.GeoTransform[1] == 0 || g.GeoTransform[5] == 0 {
		return ErrMissingTransform
	}
	if g.GeoTransform[2] != 0 || g.GeoTransform[4] != 0 {
		return ErrRotated
	}
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("invalid raster size %dx%d", g.Width, g.Height)
	}
	return nil
}

// PixelSize returns the signed x and y resolution in CRS units.
func (g Georef) PixelSize() (float64, float64) {
	return g.GeoTransform[1], g.GeoTransform[5]
}

// PixelCenter maps a pixel position to CRS coordinates of its centre.
func (g Georef) PixelCenter(col, row float64) (float64, float64) {
	gt := g.GeoTransform
	return gt[0] + (col+0.5)*gt[1], gt[3] + (row+0.5)*gt[5]
}

// Window returns the georef of the sub-raster starting at (x0, y0).
func (g Georef) Window(x0, y0, width, height int) Georef {
	gt := g.GeoTransform
	gt[0] += float64(x0) * g.GeoTransform[1]
	gt[3] += float64(y0) * g.GeoTransform[5]
	return Georef{
		Projection:   g.Projection,
		GeoTransform: gt,
		Width:        width,
		Height:       height,
	}
}

func (g Georef) SpatialRef() (*godal.SpatialRef, error) {
	if g.Projection == "" {
		return nil, ErrMissingCRS
	}
	return godal.NewSpatialRefFromWKT(g.Projection)
}

// SameCRS reports whether both georefs describe the same CRS.
func SameCRS(a, b Georef) (bool, error) {
	if a.Projection == b.Projection {
		return true, nil
	}
	sa, err := a.SpatialRef()
	if err != nil {
		return false, err
	}
	defer sa.Close()
	sb, err := b.SpatialRef()
	if err != nil {
		return false, err
	}
	defer sb.Close()
	return sa.IsSame(sb), nil
}

// CheckAligned returns ErrGeorefMismatch if any of others differs from ref in
// CRS, pixel size or grid origin. Bands are never reprojected or resampled to
// make them agree.
func CheckAligned(ref Georef, others ...Georef) error {
	rx, ry := ref.PixelSize()
	for i, o := range others {
		same, err := SameCRS(ref, o)
		if err != nil {
			return err
		}
		if !same {
			return fmt.Errorf("band %d: %w: CRS differs", i+1, ErrGeorefMismatch)
		}
		ox, oy := o.PixelSize()
		if !closeTo(rx, ox) || !closeTo(ry, oy) {
			return fmt.Errorf("band %d: %w: resolution %v,%v against %v,%v", i+1, ErrGeorefMismatch, ox, oy, rx, ry)
		}
		if !closeTo(ref.GeoTransform[0], o.GeoTransform[0]) || !closeTo(ref.GeoTransform[3], o.GeoTransform[3]) {
			return fmt.Errorf("band %d: %w: origin %v,%v against %v,%v", i+1, ErrGeorefMismatch,
				o.GeoTransform[0], o.GeoTransform[3], ref.GeoTransform[0], ref.GeoTransform[3])
		}
	}
	return nil
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}
