package rastertools

import (
	"errors"
	"fmt"

	"github.com/airbusgeo/godal"
	"github.com/fogleman/gg"
	"github.com/sirupsen/logrus"
)

// WriteMask persists mask as a single band Byte GeoTIFF carrying the CRS and
// geotransform of georef.
func WriteMask(path string, mask *Mask, georef Georef) (err error) {
	if err := georef.Validate(); err != nil {
		return fmt.Errorf("georef source: %w", err)
	}
	if mask.Width != georef.Width || mask.Height != georef.Height {
		return fmt.Errorf("mask is %dx%d, georef source is %dx%d", mask.Width, mask.Height, georef.Width, georef.Height)
	}
	godal.RegisterAll()

	ds, err := godal.Create(
		godal.GTiff,
		path,
		1,
		godal.Byte,
		mask.Width,
		mask.Height,
		godal.CreationOption("TILED=YES", "COMPRESS=DEFLATE"),
	)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, ds.Close())
	}()

	if err := ds.SetGeoTransform(georef.GeoTransform); err != nil {
		return err
	}
	if err := ds.SetProjection(georef.Projection); err != nil {
		return err
	}
	if err := ds.Bands()[0].Write(0, 0, mask.Data, mask.Width, mask.Height); err != nil {
		return err
	}
	logrus.Infof("Wrote %dx%d mask to %s", mask.Width, mask.Height, path)
	return nil
}

// ReadMask loads a mask written by WriteMask.
func ReadMask(path string) (mask *Mask, georef Georef, err error) {
	godal.RegisterAll()
	ds, err := godal.Open(path)
	if err != nil {
		return nil, Georef{}, err
	}
	defer func() {
		err = errors.Join(err, ds.Close())
	}()

	georef, err = datasetGeoref(ds)
	if err != nil {
		return nil, Georef{}, fmt.Errorf("%s: %w", path, err)
	}
	mask = NewMask(georef.Height, georef.Width)
	if err := ds.Bands()[0].Read(0, 0, mask.Data, mask.Width, mask.Height); err != nil {
		return nil, Georef{}, err
	}
	return mask, georef, nil
}

// WritePreview renders the mask as a PNG quicklook, built-up pixels in red.
func WritePreview(path string, mask *Mask) error {
	dc := gg.NewContext(mask.Width, mask.Height)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGB(1, 0, 0)
	for row := 0; row < mask.Height; row++ {
		for col := 0; col < mask.Width; col++ {
			if mask.At(row, col) == 1 {
				dc.SetPixel(col, row)
			}
		}
	}
	return dc.SavePNG(path)
}
