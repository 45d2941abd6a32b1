package celltools

import (
	"math"
	"strings"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"

	"urban-growth/rastertools"
)

func TestPointToS2(t *testing.T) {
	// Create a point
	latLng := s2.LatLngFromDegrees(1.0, 2.0)

	// Create a S2 point
	s2Cell := s2.CellIDFromLatLng(latLng).Parent(11)

	// Compare the two
	desiredCell := s2.CellID(1154732675135700992)
	if s2Cell != desiredCell {
		t.Errorf("S2 cells are not equal, got %v, want %v", s2Cell, desiredCell)
	}
}

func TestCellToWKT(t *testing.T) {
	cell := s2.CellFromCellID(s2.CellID(uint64(1152921779484753920)))
	wktString := cellToWKT(cell)
	if !strings.HasPrefix(wktString, "POLYGON((") || !strings.HasSuffix(wktString, "))") {
		t.Fatalf("malformed WKT %s", wktString)
	}
	coords := strings.Split(strings.TrimSuffix(strings.TrimPrefix(wktString, "POLYGON(("), "))"), ", ")
	if len(coords) != 5 {
		t.Fatalf("got %d positions, want 5", len(coords))
	}
	if coords[0] != coords[4] {
		t.Errorf("ring not closed: %s", wktString)
	}
}

func wkt(t testing.TB, epsg int) string {
	t.Helper()
	godal.RegisterAll()
	sr, err := godal.NewSpatialRefFromEPSG(epsg)
	if err != nil {
		t.Fatal(err)
	}
	defer sr.Close()
	s, err := sr.WKT()
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestTileCells(t *testing.T) {
	georef := rastertools.Georef{
		Projection:   wkt(t, 4326),
		GeoTransform: [6]float64{36.8, 0.0001, 0, -1.2, 0, -0.0001},
		Width:        70,
		Height:       130,
	}
	mask := rastertools.NewMask(130, 70)
	for i := 0; i < 10; i++ {
		mask.Data[(64+i)*70+i] = 1
	}

	cells, err := TileCells(mask, georef, 64, 11, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(cells) != 2 {
		t.Fatalf("got %d cells, want 2", len(cells))
	}
	if cells[0].BuiltUpPixels != 0 || cells[1].BuiltUpPixels != 10 {
		t.Errorf("got pixel counts %d, %d, want 0, 10", cells[0].BuiltUpPixels, cells[1].BuiltUpPixels)
	}
	if cells[1].BuiltUpHa != 0.1 {
		t.Errorf("got %v ha, want 0.1", cells[1].BuiltUpHa)
	}
	lng, lat := georef.PixelCenter(31.5, 95.5)
	want := s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lng)).Parent(11)
	if cells[1].Cell != want {
		t.Errorf("got cell %v, want %v", cells[1].Cell, want)
	}

	summary := Summarize(cells)
	if summary.Tiles != 2 || summary.Total != 0.1 || summary.Max != 0.1 || summary.Min != 0 {
		t.Errorf("got summary %+v", summary)
	}
}

func TestAOIAreaHa(t *testing.T) {
	ccw := orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}}
	cw := orb.MultiPolygon{{{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}}}

	// One square degree at the equator, about 12364 km2.
	want := 1236400.0
	for name, aoi := range map[string]orb.MultiPolygon{"ccw": ccw, "cw": cw} {
		got := AOIAreaHa(aoi)
		if math.Abs(got-want)/want > 0.01 {
			t.Errorf("%s: got %v ha, want about %v", name, got, want)
		}
	}
}

func TestGroundPixelEdge(t *testing.T) {
	tests := []struct {
		name   string
		georef rastertools.Georef
	}{
		{"projected", rastertools.Georef{
			Projection:   wkt(t, 32737),
			GeoTransform: [6]float64{250000, 10, 0, 9870000, 0, -10},
			Width:        100,
			Height:       100,
		}},
		{"geographic", rastertools.Georef{
			Projection:   wkt(t, 4326),
			GeoTransform: [6]float64{36.8, 10.0 / 111195, 0, 0.0005, 0, -10.0 / 111195},
			Width:        100,
			Height:       100,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GroundPixelEdge(tt.georef)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-10) > 0.2 {
				t.Errorf("got %vm, want about 10m", got)
			}
		})
	}
}

func TestAggregations(t *testing.T) {
	values := []float64{-2, 4, 1}
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"mean", Mean(values...), 1},
		{"sum", Sum(values...), 3},
		{"max", Max(values...), 4},
		{"min", Min(values...), -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}
