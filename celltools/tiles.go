package celltools

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
	"github.com/sirupsen/logrus"

	"urban-growth/rastertools"
	"urban-growth/tiling"
)

// TileCell summarises one classified tile, keyed by the S2 cell holding its
// centre.
type TileCell struct {
	Cell          s2.CellID
	Row           int
	Col           int
	BuiltUpPixels int
	BuiltUpHa     float64
	GeomString    string
}

func (c TileCell) String() string {
	return fmt.Sprintf("%v;%d;%d;%d;%v;%s", int64(c.Cell), c.Row, c.Col, c.BuiltUpPixels, c.BuiltUpHa, c.GeomString)
}

// TileCells computes one TileCell per full tile of mask.
func TileCells(mask *rastertools.Mask, georef rastertools.Georef, tileSize, s2Lvl int, pixelEdgeM float64) ([]TileCell, error) {
	logrus.Debug("Entered TileCells")
	tiles := tiling.Grid(mask.Height, mask.Width, tileSize)
	if len(tiles) == 0 {
		return nil, nil
	}

	xs := make([]float64, len(tiles))
	ys := make([]float64, len(tiles))
	half := float64(tileSize)/2 - 0.5
	for i, tile := range tiles {
		xs[i], ys[i] = georef.PixelCenter(float64(tile.Col)+half, float64(tile.Row)+half)
	}

	sr, err := georef.SpatialRef()
	if err != nil {
		return nil, err
	}
	defer sr.Close()
	centres, err := toWGS84(sr, xs, ys)
	if err != nil {
		return nil, fmt.Errorf("reproject tile centres: %w", err)
	}

	cells := make([]TileCell, len(tiles))
	for i, tile := range tiles {
		cell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(centres[i].Lat, centres[i].Lng)).Parent(s2Lvl)
		pixels := mask.Count(tile.Row, tile.Col, tileSize, tileSize)
		cells[i] = TileCell{
			Cell:          cell,
			Row:           tile.Row,
			Col:           tile.Col,
			BuiltUpPixels: pixels,
			BuiltUpHa:     rastertools.Hectares(pixels, pixelEdgeM),
			GeomString:    cellToWKT(s2.CellFromCellID(cell)),
		}
	}
	logrus.Debug("Exited TileCells")
	return cells, nil
}

// TileSummary aggregates built-up hectares over tiles.
type TileSummary struct {
	Tiles int
	Mean  float64
	Min   float64
	Max   float64
	Total float64
}

func Summarize(cells []TileCell) TileSummary {
	if len(cells) == 0 {
		return TileSummary{}
	}
	values := make([]float64, len(cells))
	for i, c := range cells {
		values[i] = c.BuiltUpHa
	}
	return TileSummary{
		Tiles: len(cells),
		Mean:  Mean(values...),
		Min:   Min(values...),
		Max:   Max(values...),
		Total: Sum(values...),
	}
}

// GroundPixelEdge estimates the pixel edge in metres from the
// georeferencing. Geographic CRSs are measured at the raster centre.
func GroundPixelEdge(georef rastertools.Georef) (float64, error) {
	sr, err := georef.SpatialRef()
	if err != nil {
		return 0, err
	}
	defer sr.Close()

	xRes, yRes := georef.PixelSize()
	if !sr.Geographic() {
		return math.Sqrt(math.Abs(xRes * yRes)), nil
	}
	_, lat := georef.PixelCenter(float64(georef.Width)/2, float64(georef.Height)/2)
	return math.Sqrt(pixelArea(lat, xRes, yRes)), nil
}

// CheckResolution warns when the configured pixel edge differs from the one
// implied by the georeferencing by more than tolerance (relative).
func CheckResolution(georef rastertools.Georef, pixelEdgeM, tolerance float64) {
	edge, err := GroundPixelEdge(georef)
	if err != nil {
		logrus.Warnf("Could not derive ground resolution: %v", err)
		return
	}
	if math.Abs(edge-pixelEdgeM) > tolerance*pixelEdgeM {
		logrus.Warnf("Raster pixel edge is about %.2fm, area uses %.2fm", edge, pixelEdgeM)
	}
}
