package pipeline

import (
	"fmt"
	"runtime"
)

// Config holds the domain constants of a run.
type Config struct {
	// TileSize is the classifier input edge in pixels.
	TileSize int
	// ReflectanceScale maps digital numbers to reflectance.
	ReflectanceScale float64
	// PixelEdgeM is the ground sample distance used for areas.
	PixelEdgeM float64
	// Confidence is reported as is, it is not a calibrated probability.
	Confidence float64
	NoData     float64
	Workers    int

	// Optional diagnostics.
	TileReportPath string
	PreviewPath    string
	S2Level        int
}

func DefaultConfig() Config {
	return Config{
		TileSize:         64,
		ReflectanceScale: 10000,
		PixelEdgeM:       10,
		Confidence:       0.9,
		NoData:           0,
		Workers:          runtime.NumCPU(),
		S2Level:          13,
	}
}

func (c Config) Validate() error {
	if c.TileSize <= 0 {
		return fmt.Errorf("tile size must be positive, got %d", c.TileSize)
	}
	if c.ReflectanceScale <= 0 {
		return fmt.Errorf("reflectance scale must be positive, got %v", c.ReflectanceScale)
	}
	if c.PixelEdgeM <= 0 {
		return fmt.Errorf("pixel edge must be positive, got %v", c.PixelEdgeM)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence must be in [0, 1], got %v", c.Confidence)
	}
	if c.S2Level < 0 || c.S2Level > 30 {
		return fmt.Errorf("S2 level must be in [0, 30], got %d", c.S2Level)
	}
	return nil
}
