package tiling

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"urban-growth/rastertools"
)

var ErrInvalidTile = errors.New("classifier returned an invalid tile")

// Classifier maps a square patch to a binary mask of the same edge, row-major,
// one value per pixel.
type Classifier interface {
	Classify(ctx context.Context, patch rastertools.Patch) ([]uint8, error)
}

type ClassifierFunc func(ctx context.Context, patch rastertools.Patch) ([]uint8, error)

func (f ClassifierFunc) Classify(ctx context.Context, patch rastertools.Patch) ([]uint8, error) {
	return f(ctx, patch)
}

// Tile is the top-left pixel of a full tile.
type Tile struct {
	Row int
	Col int
}

// TileError records which tile failed.
type TileError struct {
	Tile Tile
	Err  error
}

func (e *TileError) Error() string {
	return fmt.Sprintf("tile [%d, %d]: %v", e.Tile.Row, e.Tile.Col, e.Err)
}

func (e *TileError) Unwrap() error { return e.Err }

type Options struct {
	TileSize int
	// Workers bounds concurrent Classify calls. Zero means runtime.NumCPU.
	Workers int
	// OnTile, if set, is called after each tile is written. Calls may be
	// concurrent.
	OnTile func(Tile)
}

// Grid lists the full size x size tiles of a height x width raster, stepping
// by size from (0, 0). Tiles that would cross the bottom or right edge are
// left out.
func Grid(height, width, size int) []Tile {
	if size <= 0 {
		return nil
	}
	var tiles []Tile
	for row := 0; row+size <= height; row += size {
		for col := 0; col+size <= width; col += size {
			tiles = append(tiles, Tile{row, col})
		}
	}
	return tiles
}

// Run classifies every full tile of stack and stitches the results into a
// mask. Pixels of incomplete edge tiles stay 0. The first failing tile
// cancels the remaining work and no mask is returned.
func Run(ctx context.Context, stack *rastertools.Stack, classifier Classifier, opts Options) (*rastertools.Mask, error) {
	logrus.Debug("Entered tiling.Run")
	size := opts.TileSize
	if size <= 0 {
		return nil, fmt.Errorf("invalid tile size %d", size)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	mask := rastertools.NewMask(stack.Height, stack.Width)
	tiles := Grid(stack.Height, stack.Width, size)
	if dropRows, dropCols := stack.Height%size, stack.Width%size; dropRows > 0 || dropCols > 0 {
		logrus.Warnf("Stack %dx%d is not a multiple of tile size %d: last %d rows and %d columns are not classified",
			stack.Width, stack.Height, size, dropRows, dropCols)
	}
	logrus.Infof("Classifying %d tiles with %d workers", len(tiles), workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, tile := range tiles {
		tile := tile
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := classifyTile(gctx, stack, classifier, tile, size, mask); err != nil {
				return &TileError{Tile: tile, Err: err}
			}
			if opts.OnTile != nil {
				opts.OnTile(tile)
			}
			return nil
		})
	}
	// Tiles write disjoint regions of mask, Wait is the only barrier needed.
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logrus.Debug("Exited tiling.Run")
	return mask, nil
}

func classifyTile(ctx context.Context, stack *rastertools.Stack, classifier Classifier, tile Tile, size int, mask *rastertools.Mask) error {
	logrus.Debugf("Processing tile at [%v, %v]", tile.Row, tile.Col)
	patch, ok := stack.Patch(tile.Row, tile.Col, size)
	if !ok {
		return fmt.Errorf("tile does not fit in %dx%d stack", stack.Width, stack.Height)
	}
	out, err := classifier.Classify(ctx, patch)
	if err != nil {
		return err
	}
	if len(out) != size*size {
		return fmt.Errorf("%w: %d values, want %d", ErrInvalidTile, len(out), size*size)
	}
	for i, v := range out {
		if v > 1 {
			return fmt.Errorf("%w: value %d at %d", ErrInvalidTile, v, i)
		}
	}
	return mask.SetTile(tile.Row, tile.Col, size, out)
}
