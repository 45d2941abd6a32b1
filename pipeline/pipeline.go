// Package pipeline turns a scene and an area of interest into a built-up
// mask and its area.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"urban-growth/bands"
	"urban-growth/cellsio"
	"urban-growth/celltools"
	"urban-growth/predictionstore"
	"urban-growth/rastertools"
	"urban-growth/tiling"
	"urban-growth/transport"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

// resolutionTolerance is the relative disagreement between PixelEdgeM and
// the raster transform that is logged.
const resolutionTolerance = 0.05

// Recorder persists finished predictions.
type Recorder interface {
	Save(ctx context.Context, rec predictionstore.Record) error
}

type Request struct {
	// SceneLocator is a path or URL of a zip archive or directory holding
	// the band rasters.
	SceneLocator string
	// AOI is a GeoJSON Polygon, MultiPolygon or Feature in EPSG:4326.
	AOI []byte
	// JobID names the outputs. Derived from SceneLocator when empty.
	JobID string
}

type Pipeline struct {
	Config     Config
	Fetcher    transport.Fetcher
	Publisher  transport.Publisher
	Classifier tiling.Classifier
	// Recorder is optional.
	Recorder Recorder
	// WorkDir receives downloads and the local mask. A temporary directory
	// is used when empty.
	WorkDir string
	// OnTile is passed to the tile scheduler.
	OnTile func(tiling.Tile)
}

// Run executes Predict and folds any error into the Result.
func (p *Pipeline) Run(ctx context.Context, req Request) Result {
	pred, err := p.Predict(ctx, req)
	if err != nil {
		logrus.Errorf("Prediction failed: %v", err)
		return Result{Err: err}
	}
	return Result{Prediction: pred}
}

// Predict runs every stage in order and stops at the first failure. No mask
// is published unless every tile was classified.
func (p *Pipeline) Predict(ctx context.Context, req Request) (Prediction, error) {
	if err := p.Config.Validate(); err != nil {
		return Prediction{}, fail(InputError, "config", err)
	}
	if p.Fetcher == nil || p.Publisher == nil || p.Classifier == nil {
		return Prediction{}, fail(InputError, "setup", errors.New("fetcher, publisher and classifier are required"))
	}

	jobID := req.JobID
	if jobID == "" {
		jobID = transport.JobID(req.SceneLocator)
	}
	log := logrus.WithField("job", jobID)
	start := time.Now()

	aoi, err := rastertools.ParseAOI(req.AOI)
	if err != nil {
		return Prediction{}, fail(InputError, "parse AOI", err)
	}
	log.Infof("AOI covers %.2f ha", celltools.AOIAreaHa(aoi))

	workDir, cleanup, err := p.workDir()
	if err != nil {
		return Prediction{}, fail(WriteFailure, "work dir", err)
	}
	defer cleanup()

	scene, err := p.Fetcher.Fetch(ctx, req.SceneLocator, workDir)
	if err != nil {
		return Prediction{}, fail(InputError, "fetch scene", err)
	}

	paths, err := bands.LocateAll(scene)
	if errors.Is(err, bands.ErrBandNotFound) {
		return Prediction{}, fail(BandMissing, "locate bands", err)
	}
	if err != nil {
		return Prediction{}, fail(InputError, "read scene", err)
	}
	log.Debugf("Bands: %+v", paths)

	bs, err := p.clipAll(paths, aoi)
	if err != nil {
		return Prediction{}, err
	}
	stack, err := rastertools.NewStack(bs)
	if err != nil {
		return Prediction{}, fail(ShapeMismatch, "stack bands", err)
	}
	georef := bs.Red.Georef
	celltools.CheckResolution(georef, p.Config.PixelEdgeM, resolutionTolerance)
	log.Infof("Stacked %dx%d pixels", stack.Width, stack.Height)

	mask, err := tiling.Run(ctx, stack, p.Classifier, tiling.Options{
		TileSize: p.Config.TileSize,
		Workers:  p.Config.Workers,
		OnTile:   p.OnTile,
	})
	if err != nil {
		return Prediction{}, fail(ClassificationFailure, "classify tiles", err)
	}

	name := jobID + "_pred.tif"
	local := filepath.Join(workDir, name)
	if err := rastertools.WriteMask(local, mask, georef); err != nil {
		return Prediction{}, fail(WriteFailure, "write mask", err)
	}
	p.writeDiagnostics(mask, georef, log)

	url, err := p.Publisher.Publish(ctx, local, name)
	if err != nil {
		return Prediction{}, fail(WriteFailure, "publish mask", err)
	}

	pred := Prediction{
		ResultURL:     url,
		BuiltUpAreaHa: round2(rastertools.BuiltUpHectares(mask, p.Config.PixelEdgeM)),
		Confidence:    p.Config.Confidence,
	}
	log.WithField("elapsed", time.Since(start)).Infof("Built-up area %.2f ha at %s", pred.BuiltUpAreaHa, url)

	if p.Recorder != nil {
		rec := predictionstore.Record{
			JobID:         jobID,
			AOI:           string(req.AOI),
			BuiltUpAreaHa: pred.BuiltUpAreaHa,
			GrowthPercent: pred.GrowthPercent,
			IoU:           pred.IoU,
			Confidence:    pred.Confidence,
			ResultURL:     pred.ResultURL,
			ProcessedAt:   time.Now().UTC(),
		}
		// The mask is already published, a lost record is only logged.
		if err := p.Recorder.Save(ctx, rec); err != nil {
			log.Warnf("Could not record prediction: %v", err)
		}
	}
	return pred, nil
}

// clipAll clips the bands one after the other and stops at the first
// failure.
func (p *Pipeline) clipAll(paths bands.Paths, aoi orb.MultiPolygon) (rastertools.BandSet, error) {
	var bs rastertools.BandSet
	slots := []struct {
		id   bands.ID
		path string
		dst  *rastertools.NormalizedBand
	}{
		{bands.B04, paths.Red, &bs.Red},
		{bands.B03, paths.Green, &bs.Green},
		{bands.B02, paths.Blue, &bs.Blue},
		{bands.B08, paths.NIR, &bs.NIR},
		{bands.B11, paths.SWIR, &bs.SWIR},
	}

	var ref rastertools.Georef
	for i, s := range slots {
		clipped, err := rastertools.Clip(s.path, aoi, p.Config.NoData)
		if err != nil {
			return bs, fail(ClipFailure, fmt.Sprintf("clip %s", s.id), err)
		}
		if i == 0 {
			ref = clipped.Georef
		} else if err := rastertools.CheckAligned(ref, clipped.Georef); err != nil {
			return bs, fail(GeorefMismatch, fmt.Sprintf("align %s", s.id), err)
		}
		*s.dst = rastertools.Normalize(clipped, p.Config.ReflectanceScale)
	}
	return bs, nil
}

func (p *Pipeline) writeDiagnostics(mask *rastertools.Mask, georef rastertools.Georef, log *logrus.Entry) {
	if p.Config.PreviewPath != "" {
		if err := rastertools.WritePreview(p.Config.PreviewPath, mask); err != nil {
			log.Warnf("Could not write preview: %v", err)
		}
	}
	if p.Config.TileReportPath == "" {
		return
	}
	cells, err := celltools.TileCells(mask, georef, p.Config.TileSize, p.Config.S2Level, p.Config.PixelEdgeM)
	if err != nil {
		log.Warnf("Could not index tiles: %v", err)
		return
	}
	if err := cellsio.WriteReport(cells, p.Config.TileReportPath); err != nil {
		log.Warnf("Could not write tile report: %v", err)
		return
	}
	s := celltools.Summarize(cells)
	log.Infof("Tiles: %d, built-up ha per tile mean %.2f min %.2f max %.2f", s.Tiles, s.Mean, s.Min, s.Max)
}

func (p *Pipeline) workDir() (string, func(), error) {
	if p.WorkDir != "" {
		if err := os.MkdirAll(p.WorkDir, 0o755); err != nil {
			return "", nil, err
		}
		return p.WorkDir, func() {}, nil
	}
	dir, err := os.MkdirTemp("", "urban-growth-")
	if err != nil {
		return "", nil, err
	}
	return dir, func() {
		if err := os.RemoveAll(dir); err != nil {
			logrus.Warnf("Could not remove %s: %v", dir, err)
		}
	}, nil
}
