package service

import (
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-engine/internal/catalog"
)

// Calibrator maps raw confidence scores onto empirically calibrated
// values through the catalog's piecewise-constant bins. The bin map is
// validated monotonic at catalog load, so calibration preserves score
// ordering. An empty bin map degrades to identity.
type Calibrator struct {
	logger *logrus.Logger
	bins   []catalog.CalibrationBin
}

// NewCalibrator creates a calibrator from the catalog's bins.
func NewCalibrator(cat *catalog.Catalog, logger *logrus.Logger) *Calibrator {
	return &Calibrator{logger: logger, bins: cat.CalibrationBins()}
}

// Calibrate maps a raw score to its calibrated value. Bins are
// half-open [low, high); the final bin includes its upper edge so a
// raw 1.0 calibrates.
func (c *Calibrator) Calibrate(raw float64) float64 {
	if len(c.bins) == 0 {
		return raw
	}
	for i, bin := range c.bins {
		last := i == len(c.bins)-1
		if raw >= bin.Low && (raw < bin.High || (last && raw <= bin.High)) {
			return bin.Calibrated
		}
	}
	return raw
}
