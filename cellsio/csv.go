package cellsio

import (
	"errors"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/sirupsen/logrus"

	"urban-growth/celltools"
)

func WriteToCSV(cells []celltools.TileCell, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	rows := toRows(cells)
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	logrus.Infof("Wrote %d tile rows to %s", len(cells), path)
	return nil
}
