package returns

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/openquant/tidemark/internal/common"
)

// CleanerConfig holds the tunable parameters of outlier cleaning. The pass
// cap and mask threshold are empirical constants, not semantic guarantees.
type CleanerConfig struct {
	MaxPasses  int     // iteration cap per column
	ZMax       float64 // |z-score| above which a residual is an outlier
	MaskMin    float64 // filtered-mask value below which a point is rescued-flagged
	MinSamples int     // series shorter than this are returned unchanged
}

// DefaultCleanerConfig returns the standard cleaning parameters.
func DefaultCleanerConfig() CleanerConfig {
	return CleanerConfig{
		MaxPasses:  10,
		ZMax:       3.0,
		MaskMin:    -1.5,
		MinSamples: 7,
	}
}

// Cleaner removes outliers from a numeric series by iterative zero-phase
// filtering and linear interpolation. Iteration matters: masking one outlier
// can reveal the true magnitude of an adjacent point as also anomalous.
type Cleaner struct {
	cfg    CleanerConfig
	logger *common.Logger
}

// NewCleaner creates a cleaner with the given configuration.
func NewCleaner(cfg CleanerConfig, logger *common.Logger) *Cleaner {
	if cfg.MaxPasses < 1 {
		cfg.MaxPasses = 1
	}
	if cfg.MinSamples < 2 {
		cfg.MinSamples = 2
	}
	return &Cleaner{cfg: cfg, logger: logger}
}

// Clean returns a cleaned copy of the column. The input is never modified.
// A column is resolved once a pass flags no new outliers; cleaning stops
// then, or after the pass cap regardless.
func (c *Cleaner) Clean(column []float64) []float64 {
	out := slices.Clone(column)
	if len(out) < c.cfg.MinSamples {
		return out
	}

	for pass := 0; pass < c.cfg.MaxPasses; pass++ {
		next, flagged := c.pass(out)
		if flagged == 0 {
			break
		}
		c.logger.Debug().Int("pass", pass+1).Int("flagged", flagged).Msg("Outlier pass")
		out = next
	}

	return out
}

// CleanColumns cleans each column independently over an aligned index.
func (c *Cleaner) CleanColumns(columns [][]float64) [][]float64 {
	out := make([][]float64, len(columns))
	for i, col := range columns {
		out[i] = c.Clean(col)
	}
	return out
}

// pass performs one detect-mask-interpolate cycle and reports how many
// positions it flagged.
func (c *Cleaner) pass(column []float64) ([]float64, int) {
	resid := zeroPhaseDiff(column)

	mean, std := stat.MeanStdDev(resid, nil)
	if std == 0 || math.IsNaN(std) {
		return column, 0
	}

	mask := make([]float64, len(column))
	for i, r := range resid {
		if math.Abs((r-mean)/std) > c.cfg.ZMax {
			mask[i] = 1
		}
	}

	// Filtering the mask itself recovers isolated good points sandwiched
	// between outliers, which would otherwise survive as spurious
	// single-point spikes.
	filteredMask := zeroPhaseDiff(mask)
	for i := range mask {
		if filteredMask[i] < c.cfg.MaskMin {
			mask[i] = 1
		}
	}

	flagged := 0
	out := slices.Clone(column)
	for i := range out {
		if mask[i] == 1 {
			out[i] = math.NaN()
			flagged++
		}
	}
	if flagged == 0 || flagged == len(out) {
		return column, 0
	}

	interpolateNaN(out)
	return out, flagged
}

// zeroPhaseDiff applies a first-difference filter forward, then backward over
// the reversed signal, cancelling phase lag. The first output of each
// direction replicates the adjacent difference so a trend with no outliers
// yields a near-zero residual instead of edge transients.
func zeroPhaseDiff(x []float64) []float64 {
	y := firstDiff(x)
	reverse(y)
	y = firstDiff(y)
	reverse(y)
	return y
}

func firstDiff(x []float64) []float64 {
	y := make([]float64, len(x))
	if len(x) < 2 {
		copy(y, x)
		return y
	}
	y[0] = x[1] - x[0]
	for i := 1; i < len(x); i++ {
		y[i] = x[i] - x[i-1]
	}
	return y
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

// interpolateNaN fills NaN positions by one-dimensional linear interpolation
// against the remaining defined positions, using the position index as the
// x-axis. Gaps touching a series end are clamped to the nearest defined
// value.
func interpolateNaN(x []float64) {
	n := len(x)
	prev := -1
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) {
			continue
		}
		if prev == -1 && i > 0 {
			// Leading gap: clamp to the first defined value.
			for j := 0; j < i; j++ {
				x[j] = x[i]
			}
		} else if prev >= 0 && i-prev > 1 {
			step := (x[i] - x[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				x[j] = x[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
	if prev >= 0 && prev < n-1 {
		// Trailing gap: clamp to the last defined value.
		for j := prev + 1; j < n; j++ {
			x[j] = x[prev]
		}
	}
}
