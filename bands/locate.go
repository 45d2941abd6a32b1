package bands

import (
	"archive/zip"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// ID is a Sentinel-2 band identifier as it appears in product file names.
type ID string

const (
	B02 ID = "B02" // blue
	B03 ID = "B03" // green
	B04 ID = "B04" // red
	B08 ID = "B08" // near infrared
	B11 ID = "B11" // short-wave infrared
)

// Required lists the bands the classifier needs, in stacking order.
var Required = []ID{B04, B03, B02, B08, B11}

var ErrBandNotFound = errors.New("band not found in archive")

// Extensions accepted for band rasters.
var Extensions = []string{".jp2", ".tif", ".tiff"}

// Paths holds one GDAL-openable raster path per required band.
type Paths struct {
	Red   string
	Green string
	Blue  string
	NIR   string
	SWIR  string
}

// Locate returns a GDAL path for the first entry of archive whose base name
// contains id and has an accepted extension. archive is either a zip file
// or a directory holding an unpacked product.
func Locate(archive string, id ID) (string, error) {
	info, err := os.Stat(archive)
	if err != nil {
		return "", err
	}
	var names []string
	if info.IsDir() {
		names, err = dirEntries(archive)
	} else {
		names, err = zipEntries(archive)
	}
	if err != nil {
		return "", err
	}

	for _, name := range names {
		if !matches(name, id) {
			continue
		}
		logrus.Debugf("Band %s located at %s", id, name)
		if info.IsDir() {
			return filepath.Join(archive, name), nil
		}
		abs, err := filepath.Abs(archive)
		if err != nil {
			return "", err
		}
		return "/vsizip/" + filepath.ToSlash(abs) + "/" + name, nil
	}
	return "", fmt.Errorf("%s: %w", id, ErrBandNotFound)
}

// LocateAll finds every required band. The first missing band aborts the
// search.
func LocateAll(archive string) (Paths, error) {
	var p Paths
	slots := []struct {
		id  ID
		dst *string
	}{
		{B04, &p.Red},
		{B03, &p.Green},
		{B02, &p.Blue},
		{B08, &p.NIR},
		{B11, &p.SWIR},
	}
	for _, s := range slots {
		loc, err := Locate(archive, s.id)
		if err != nil {
			return Paths{}, err
		}
		*s.dst = loc
	}
	return p, nil
}

func matches(name string, id ID) bool {
	base := path.Base(name)
	if !strings.Contains(base, string(id)) {
		return false
	}
	ext := strings.ToLower(path.Ext(base))
	for _, accepted := range Extensions {
		if ext == accepted {
			return true
		}
	}
	return false
}

func zipEntries(archive string) ([]string, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", archive, err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			logrus.Error(err)
		}
	}()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, f.Name)
	}
	return names, nil
}

func dirEntries(root string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	return names, err
}
