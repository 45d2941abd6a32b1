package cellsio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/sirupsen/logrus"

	"urban-growth/celltools"
)

// CellRow is the on-disk form of a celltools.TileCell.
type CellRow struct {
	S2id          int64   `parquet:"s2_id" csv:"s2_id"`
	Row           int32   `parquet:"tile_row" csv:"tile_row"`
	Col           int32   `parquet:"tile_col" csv:"tile_col"`
	BuiltUpPixels int32   `parquet:"built_up_pixels" csv:"built_up_pixels"`
	BuiltUpHa     float64 `parquet:"built_up_ha" csv:"built_up_ha"`
	Geom          string  `parquet:"geom" csv:"geom"`
}

func toRows(cells []celltools.TileCell) []CellRow {
	rows := make([]CellRow, len(cells))
	for i, cell := range cells {
		rows[i] = CellRow{
			S2id:          int64(cell.Cell),
			Row:           int32(cell.Row),
			Col:           int32(cell.Col),
			BuiltUpPixels: int32(cell.BuiltUpPixels),
			BuiltUpHa:     cell.BuiltUpHa,
			Geom:          cell.GeomString,
		}
	}
	return rows
}

// WriteReport writes cells as Parquet or CSV depending on the extension of
// path.
func WriteReport(cells []celltools.TileCell, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return WriteToParquet(cells, path)
	case ".csv":
		return WriteToCSV(cells, path)
	default:
		return fmt.Errorf("unsupported tile report format %q, use .parquet or .csv", filepath.Ext(path))
	}
}

func WriteToParquet(cells []celltools.TileCell, path string) (err error) {
	output, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, output.Close())
	}()

	schema := parquet.SchemaOf(new(CellRow))
	writer := parquet.NewGenericWriter[CellRow](output, schema, parquet.Compression(&parquet.Snappy))
	if _, err := writer.Write(toRows(cells)); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	logrus.Infof("Wrote %d tile rows to %s", len(cells), path)
	return nil
}
