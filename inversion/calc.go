/*
Copyright © 2026 the eocalc authors.
This file is part of eocalc.

eocalc is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

eocalc is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with eocalc.  If not, see <http://www.gnu.org/licenses/>.
*/

package inversion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/eocalc"
	"github.com/spatialmodel/eocalc/grid"
	"github.com/spatialmodel/eocalc/obs"
)

func init() {
	eocalc.Register("multisource", func() eocalc.Calculator { return NewMultiSource() })
}

// DefaultResolution is the source grid cell size [degrees].
const DefaultResolution = 0.2

// DefaultDataDir is the directory the registry-default calculator
// reads daily observation subsets from.
const DefaultDataDir = "eocalc_data"

// Default observation file variable names.
const (
	DefaultLonVar  = "Longitude"
	DefaultLatVar  = "Latitude"
	DefaultConcVar = "vcd"
)

// products names the observation data product for each supported
// pollutant.
var products = map[eocalc.Pollutant]string{
	eocalc.NOx: "no2",
	eocalc.SO2: "so2",
	eocalc.NH3: "nh3",
}

// MultiSource estimates gridded emissions by fitting plume kernels for
// all grid cells to all observations simultaneously. Unlike point-source
// methods it needs no prior source locations: every cell of a regular
// grid over the region is a candidate source, and damping suppresses
// the cells the observations cannot constrain.
type MultiSource struct {
	eocalc.Tracker

	// Resolution is the source grid cell size [degrees].
	Resolution float64 `toml:"resolution"`

	// OffsetLon and OffsetLat widen the source grid beyond the region
	// bounds [degrees], so that sources just outside the region can
	// explain columns observed inside it.
	OffsetLon float64 `toml:"offset_lon"`
	OffsetLat float64 `toml:"offset_lat"`

	// SkipMissingDays controls the missing-data policy: if true, days
	// without observations are skipped and counted; if false, any
	// missing day aborts the run.
	SkipMissingDays bool `toml:"skip_missing_days"`

	// Kernel holds the plume model parameters.
	Kernel Kernel `toml:"kernel"`

	// Solver holds the least-squares settings.
	Solver SolverConfig `toml:"solver"`

	// Observations maps each pollutant to its observation cache.
	Observations map[eocalc.Pollutant]*obs.MonthCache

	// Log receives progress messages and diagnostics.
	Log logrus.FieldLogger
}

// FileObservations builds the per-pollutant observation caches for
// daily subset files stored under dir.
func FileObservations(dir string) map[eocalc.Pollutant]*obs.MonthCache {
	m := make(map[eocalc.Pollutant]*obs.MonthCache)
	for pol, product := range products {
		m[pol] = &obs.MonthCache{
			Source: obs.NewRetryingSource(&obs.FileSource{
				Dir:     dir,
				Product: product,
				LonVar:  DefaultLonVar,
				LatVar:  DefaultLatVar,
				ConcVar: DefaultConcVar,
			}),
			Product: product,
		}
	}
	return m
}

// NewMultiSource returns a multi-source calculator with default
// parameters, reading observations from DefaultDataDir.
func NewMultiSource() *MultiSource {
	return &MultiSource{
		Resolution:      DefaultResolution,
		SkipMissingDays: true,
		Kernel:          NewKernel(),
		Solver:          DefaultSolverConfig(),
		Observations:    FileObservations(DefaultDataDir),
		Log:             logrus.StandardLogger(),
	}
}

func (c *MultiSource) MinimumAreaSize() float64 { return 1e4 }
func (c *MultiSource) MinimumPeriodLength() int { return 1 }

// Coverage is bounded by the latitudes where sun-synchronous
// observations have usable quality year round.
func (c *MultiSource) Coverage() geom.Polygonal { return eocalc.LatitudeBand(-60, 60) }

// EarliestStartDate is the start of routine TROPOMI data availability.
func (c *MultiSource) EarliestStartDate() time.Time {
	return time.Date(2018, time.May, 1, 0, 0, 0, 0, time.UTC)
}

// LatestEndDate is the last day of the month before the previous
// month, leaving time for upstream processing of recent observations.
func (c *MultiSource) LatestEndDate() time.Time {
	now := time.Now().UTC()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, -1, -1)
}

// Supports reports true for the pollutants with a known molar mass;
// particulate matter columns cannot be converted to emitted mass.
func (c *MultiSource) Supports(pol eocalc.Pollutant) bool {
	_, ok := molarMass[pol]
	return ok
}

// Run estimates emissions of pol over region during period.
func (c *MultiSource) Run(ctx context.Context, region geom.Polygonal, period eocalc.DateRange, pol eocalc.Pollutant) (*eocalc.Result, error) {
	if err := eocalc.Validate(c, region, period, pol); err != nil {
		return nil, err
	}
	if err := c.Begin(); err != nil {
		return nil, err
	}
	defer c.Done()
	log := c.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	convFactor, err := ConversionFactor(pol, c.Kernel.Decay)
	if err != nil {
		return nil, err
	}

	// Candidate sources: a regular grid over the region bounds plus
	// the configured margin, snapped to whole cells.
	b := region.Bounds()
	b.Min.X -= c.OffsetLon
	b.Max.X += c.OffsetLon
	b.Min.Y -= c.OffsetLat
	b.Max.Y += c.OffsetLat
	d, err := grid.NewRegular("multisource", b, c.Resolution, c.Resolution, true)
	if err != nil {
		return nil, err
	}
	c.Update(5)

	observations, missingDays, err := c.collectObservations(ctx, d.Extent, period, pol)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"method":      "multisource",
		"pollutant":   pol.String(),
		"cells":       d.Len(),
		"obs":         len(observations),
		"missingDays": missingDays,
	}).Info("observations collected")
	c.Update(40)

	a, err := BuildMatrix(d, observations, c.Kernel)
	if err != nil {
		return nil, err
	}
	c.Update(60)

	bias, err := EstimateBias(d, observations, log)
	if err != nil {
		return nil, err
	}
	rhs := bias.RHS(observations)
	c.Update(65)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sol, err := Solve(a, rhs, c.Solver)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"method":     "multisource",
		"iterations": sol.Iterations,
		"residual":   sol.Residual,
		"nnz":        a.NNZ(),
	}).Info("inversion solved")
	c.Update(85)

	// The relative residual of the fit, as a percentage, is the
	// uncertainty attached to every cell.
	var uncertainty float64
	if sol.BNorm > 0 {
		uncertainty = 100 * sol.Residual / sol.BNorm
	}

	obsPerCell := make([]int, d.Len())
	for _, o := range observations {
		if i := d.CellIndex(geom.Point{X: o.Lon, Y: o.Lat}); i >= 0 {
			obsPerCell[i]++
		}
	}

	clipped, err := d.Clip(region)
	if err != nil {
		return nil, err
	}
	eg := &eocalc.EmissionsGrid{Pollutant: pol}
	for _, cl := range clipped {
		density := sol.X[cl.Cell.Index] * convFactor
		eg.Cells = append(eg.Cells, &eocalc.EmissionsCell{
			Geom:      cl.Geom,
			Emissions: MassKt(density, cl.Area, period.Days()),
			Area:      cl.Area,
			Umin:      uncertainty,
			Umax:      uncertainty,
			Values:    obsPerCell[cl.Cell.Index],
			Missing:   missingDays,
		})
	}
	c.Update(100)
	return eocalc.AssembleResult(eg)
}

// collectObservations gathers the period's observations through the
// month cache. The cache loads whole calendar months; observations and
// missing days outside the period are discarded here.
func (c *MultiSource) collectObservations(ctx context.Context, region geom.Polygonal, period eocalc.DateRange, pol eocalc.Pollutant) ([]obs.Observation, int, error) {
	cache := c.Observations[pol]
	if cache == nil {
		return nil, 0, &eocalc.DataUnavailableError{
			Source: pol.String(),
			Err:    errors.New("no observation source configured"),
		}
	}
	var observations []obs.Observation
	var missingDays int
	months := period.Months()
	for i, m := range months {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		md, err := cache.Month(ctx, region, m.Year(), m.Month())
		if err != nil {
			return nil, 0, err
		}
		for _, o := range md.Observations {
			if period.Contains(o.Day) {
				observations = append(observations, o)
			}
		}
		for _, day := range md.Missing {
			if period.Contains(day) {
				missingDays++
			}
		}
		c.Update(5 + 35*float64(i+1)/float64(len(months)))
	}
	if !c.SkipMissingDays && missingDays > 0 {
		return nil, 0, &eocalc.DataUnavailableError{
			Source: cache.Product,
			Err:    fmt.Errorf("%d days without observations", missingDays),
		}
	}
	return observations, missingDays, nil
}
