package celltools

import (
	"fmt"
	"math"

	"github.com/airbusgeo/godal"
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

const EarthRadius = 6371000

type Point struct {
	Lat float64
	Lng float64
}

func cellToWKT(cell s2.Cell) string {
	wkt := "POLYGON(("
	for k := 0; k < 4; k++ {
		latlng := s2.LatLngFromPoint(cell.Vertex(k))
		wkt += fmt.Sprintf("%v %v, ", latlng.Lng.Degrees(), latlng.Lat.Degrees())
	}
	closingPoint := s2.LatLngFromPoint(cell.Vertex(0))
	wkt += fmt.Sprintf("%v %v))", closingPoint.Lng.Degrees(), closingPoint.Lat.Degrees())

	return wkt
}

// toWGS84 reprojects points given in the CRS of sr to lat/lng.
func toWGS84(sr *godal.SpatialRef, xs, ys []float64) ([]Point, error) {
	wgs84, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return nil, err
	}
	defer wgs84.Close()

	points := make([]Point, len(xs))
	if sr.IsSame(wgs84) {
		for i := range xs {
			points[i] = Point{Lat: ys[i], Lng: xs[i]}
		}
		return points, nil
	}
	for i := range xs {
		geom, err := godal.NewGeometryFromWKT(fmt.Sprintf("POINT (%v %v)", xs[i], ys[i]), sr)
		if err != nil {
			return nil, err
		}
		if err := geom.Reproject(wgs84); err != nil {
			geom.Close()
			return nil, err
		}
		bounds, err := geom.Bounds()
		geom.Close()
		if err != nil {
			return nil, err
		}
		points[i] = Point{Lat: bounds[1], Lng: bounds[0]}
	}
	return points, nil
}

// AOIAreaHa is the geodesic area of a lon/lat AOI in hectares.
func AOIAreaHa(aoi orb.MultiPolygon) float64 {
	var steradians float64
	for _, poly := range aoi {
		for i, ring := range poly {
			loop := ringToLoop(ring)
			if loop == nil {
				continue
			}
			if i == 0 {
				steradians += loop.Area()
			} else {
				steradians -= loop.Area()
			}
		}
	}
	return steradians * EarthRadius * EarthRadius / 10000
}

func ringToLoop(ring orb.Ring) *s2.Loop {
	pts := ring
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return nil
	}
	vertices := make([]s2.Point, len(pts))
	for i, p := range pts {
		vertices[i] = s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat(), p.Lon()))
	}
	loop := s2.LoopFromPoints(vertices)
	// Ring orientation is not guaranteed, keep the smaller side.
	loop.Normalize()
	return loop
}

func pixelArea(latitude float64, xRes float64, yRes float64) float64 {
	pixWidth := haversinePixelWidth(latitude, xRes)
	pixHeight := (math.Pi / 180) * math.Abs(yRes) * EarthRadius
	return pixWidth * pixHeight
}

func haversinePixelWidth(latitude float64, resolution float64) float64 {
	latRad := latitude * math.Pi / 180
	resRad := resolution * math.Pi / 180
	a := math.Pow(math.Cos(latRad), 2) * math.Pow(math.Sin(resRad/2), 2)
	return 2 * EarthRadius * math.Asin(math.Sqrt(a))
}
