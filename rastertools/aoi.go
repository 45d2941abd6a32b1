package rastertools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

var ErrInvalidAOI = errors.New("invalid AOI")

// ParseAOI reads a GeoJSON Polygon or MultiPolygon in WGS84 lon/lat. A
// Feature, or a FeatureCollection whose first feature is a polygon, is
// accepted as well.
func ParseAOI(data []byte) (orb.MultiPolygon, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAOI, err)
	}

	var geom orb.Geometry
	switch head.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAOI, err)
		}
		geom = f.Geometry
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAOI, err)
		}
		if len(fc.Features) == 0 {
			return nil, fmt.Errorf("%w: empty feature collection", ErrInvalidAOI)
		}
		geom = fc.Features[0].Geometry
	case "Polygon", "MultiPolygon":
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAOI, err)
		}
		geom = g.Geometry()
	default:
		return nil, fmt.Errorf("%w: must be a GeoJSON Polygon, got %q", ErrInvalidAOI, head.Type)
	}

	var mp orb.MultiPolygon
	switch g := geom.(type) {
	case orb.Polygon:
		mp = orb.MultiPolygon{g}
	case orb.MultiPolygon:
		mp = g
	default:
		return nil, fmt.Errorf("%w: unsupported geometry %T", ErrInvalidAOI, geom)
	}
	if err := validateAOI(mp); err != nil {
		return nil, err
	}
	return mp, nil
}

func validateAOI(mp orb.MultiPolygon) error {
	if len(mp) == 0 {
		return fmt.Errorf("%w: no polygons", ErrInvalidAOI)
	}
	for _, poly := range mp {
		if len(poly) == 0 {
			return fmt.Errorf("%w: polygon without rings", ErrInvalidAOI)
		}
		for _, ring := range poly {
			if len(ring) < 4 {
				return fmt.Errorf("%w: ring with %d positions", ErrInvalidAOI, len(ring))
			}
			for _, p := range ring {
				if p.Lon() < -180 || p.Lon() > 180 || p.Lat() < -90 || p.Lat() > 90 {
					return fmt.Errorf("%w: position %v outside lon/lat range", ErrInvalidAOI, p)
				}
			}
		}
	}
	return nil
}

// reprojectAOI moves a WGS84 AOI into the CRS of the raster.
func reprojectAOI(aoi orb.MultiPolygon, to *godal.SpatialRef) (orb.MultiPolygon, error) {
	wgs84, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return nil, err
	}
	defer wgs84.Close()
	if to.IsSame(wgs84) {
		return aoi, nil
	}

	geom, err := godal.NewGeometryFromWKT(wkt.MarshalString(aoi), wgs84)
	if err != nil {
		return nil, err
	}
	defer geom.Close()
	if err := geom.Reproject(to); err != nil {
		return nil, err
	}
	out, err := geom.WKT()
	if err != nil {
		return nil, err
	}
	g, err := wkt.Unmarshal(out)
	if err != nil {
		return nil, fmt.Errorf("parse reprojected AOI: %w", err)
	}
	switch g := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{g}, nil
	case orb.MultiPolygon:
		return g, nil
	default:
		return nil, fmt.Errorf("reprojected AOI has unexpected type %T", g)
	}
}
