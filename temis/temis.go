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

// Package temis estimates emissions by aggregating the TEMIS monthly
// mean NOx emission product (www.temis.nl), a global gridded field of
// daily mean emission densities derived from TROPOMI NO₂ columns.
package temis

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/requestcache"
	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/eocalc"
	"github.com/spatialmodel/eocalc/grid"
	"github.com/spatialmodel/eocalc/internal/hash"
)

func init() {
	gob.Register(sparse.DenseArray{})
	eocalc.Register("temis", func() eocalc.Calculator { return NewMonthlyMean() })
}

const (
	// DefaultDataDir is the default directory holding the monthly
	// ASCII fields.
	DefaultDataDir = "eocalc_data/temis"

	// DefaultPerDayUncertainty is the default relative uncertainty of
	// a single day of the monthly mean product [%].
	DefaultPerDayUncertainty = 20.

	// ktPerKg converts mass from kg to kt.
	ktPerKg = 1e-6
)

// MonthlyMean estimates emissions over a region by summing the TEMIS
// monthly mean emission density fields over the days of the
// calculation period. Every day of a calendar month shares that
// month's mean field.
type MonthlyMean struct {
	eocalc.Tracker

	// DataDir is the directory holding the monthly fields, one file
	// per month named no2_YYYYMM.asc.
	DataDir string `toml:"data_dir"`

	// PerDayUncertainty is the relative uncertainty of a single day
	// of the product [%]. The reported uncertainty shrinks with the
	// square root of the number of days with data.
	PerDayUncertainty float64 `toml:"per_day_uncertainty"`

	// CacheLoc specifies the location for caching loaded monthly
	// fields: "" for memory only, a directory path, an HTTP address,
	// or a Google Cloud Storage bucket (gs://bucketname/subdir).
	CacheLoc string `toml:"cache_loc"`

	// MaxCacheEntries is the maximum number of monthly fields to hold
	// in the memory cache; zero means no limit.
	MaxCacheEntries int `toml:"max_cache_entries"`

	// Log receives progress and diagnostics. If nil, the logrus
	// standard logger is used.
	Log logrus.FieldLogger `toml:"-"`

	cache     *requestcache.Cache
	cacheOnce sync.Once
}

// NewMonthlyMean returns a calculator with the default configuration.
func NewMonthlyMean() *MonthlyMean {
	return &MonthlyMean{
		DataDir:           DefaultDataDir,
		PerDayUncertainty: DefaultPerDayUncertainty,
	}
}

func (c *MonthlyMean) MinimumAreaSize() float64 { return 1e5 }

func (c *MonthlyMean) MinimumPeriodLength() int { return 1 }

// Coverage is the latitude band of the underlying data product.
func (c *MonthlyMean) Coverage() geom.Polygonal { return eocalc.LatitudeBand(-60, 60) }

// EarliestStartDate returns the first day covered by the data
// product.
func (c *MonthlyMean) EarliestStartDate() time.Time {
	return time.Date(2018, time.February, 1, 0, 0, 0, 0, time.UTC)
}

// LatestEndDate returns the last day of the month before the previous
// month. The monthly means appear on the data server with up to a
// month of delay, after the month they cover has ended.
func (c *MonthlyMean) LatestEndDate() time.Time { return latestEnd(time.Now().UTC()) }

func latestEnd(now time.Time) time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -1, -1)
}

// Supports reports whether the calculator supports pol. Only NOx
// fields are published.
func (c *MonthlyMean) Supports(pol eocalc.Pollutant) bool { return pol == eocalc.NOx }

// Run estimates emissions of pol over region during period.
func (c *MonthlyMean) Run(ctx context.Context, region geom.Polygonal, period eocalc.DateRange, pol eocalc.Pollutant) (*eocalc.Result, error) {
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

	d, err := grid.NewRegular("temis", region.Bounds(), binWidth, binWidth, true)
	if err != nil {
		return nil, err
	}
	c.Update(5)

	// Accumulate the per-cell emission density over the days of the
	// period [kg km⁻²]. Months whose field is unavailable are skipped
	// and their days counted as missing.
	sum := make([]float64, d.Len())
	var present, missing int
	months := period.Months()
	for i, first := range months {
		days := overlapDays(first, period)
		field, err := c.field(ctx, d, first.Year(), first.Month())
		if err != nil {
			var unavail *eocalc.DataUnavailableError
			if !errors.As(err, &unavail) {
				return nil, err
			}
			missing += days
			log.WithFields(logrus.Fields{
				"method": "temis",
				"month":  first.Format("2006-01"),
				"days":   days,
			}).Warn("monthly field unavailable, skipping month")
			c.Update(5 + 55*float64(i+1)/float64(len(months)))
			continue
		}
		for j, v := range field.Elements {
			sum[j] += v * float64(days)
		}
		present += days
		c.Update(5 + 55*float64(i+1)/float64(len(months)))
	}
	if present == 0 {
		return nil, &eocalc.DataUnavailableError{
			Source: "temis",
			Err:    fmt.Errorf("no monthly fields for %s", period),
		}
	}
	log.WithFields(logrus.Fields{
		"method":      "temis",
		"cells":       d.Len(),
		"days":        present,
		"missingDays": missing,
	}).Info("monthly fields aggregated")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clipped, err := d.Clip(region)
	if err != nil {
		return nil, err
	}
	c.Update(90)

	// n days of the mean field shrink the single-day uncertainty
	// by √n.
	uncertainty := c.PerDayUncertainty / math.Sqrt(float64(present))

	eg := &eocalc.EmissionsGrid{Pollutant: pol}
	for _, cl := range clipped {
		eg.Cells = append(eg.Cells, &eocalc.EmissionsCell{
			Geom:      cl.Geom,
			Emissions: sum[cl.Cell.Index] * cl.Area * ktPerKg,
			Area:      cl.Area,
			Umin:      uncertainty,
			Umax:      uncertainty,
			Values:    present,
			Missing:   missing,
		})
	}
	c.Update(100)
	return eocalc.AssembleResult(eg)
}

// overlapDays counts the days of the calendar month starting at first
// that fall within period.
func overlapDays(first time.Time, period eocalc.DateRange) int {
	last := first.AddDate(0, 1, -1)
	if period.Start().After(first) {
		first = period.Start()
	}
	if period.End().Before(last) {
		last = period.End()
	}
	if last.Before(first) {
		return 0
	}
	return int(last.Sub(first).Hours()/24) + 1
}

// fieldRequest is the payload for loading one monthly field.
type fieldRequest struct {
	d     *grid.Def
	year  int
	month time.Month
}

// fieldKey identifies a cached monthly field. The grid window is part
// of the identity so that cache entries persisted across runs never
// leak between regions.
type fieldKey struct {
	Dir         string
	X0, Y0      float64
	Nx, Ny      int
	Year, Month int
}

// field returns the monthly mean density field for the grid window,
// loading it from the data directory if it is not already cached.
func (c *MonthlyMean) field(ctx context.Context, d *grid.Def, year int, month time.Month) (*sparse.DenseArray, error) {
	c.cacheOnce.Do(func() {
		c.cache = newCache(c.loadField, runtime.GOMAXPROCS(-1), c.MaxCacheEntries, c.CacheLoc)
	})
	req := &fieldRequest{d: d, year: year, month: month}
	key := hash.Key(fmt.Sprintf("temis_no2_%04d%02d", year, int(month)),
		fieldKey{
			Dir: c.DataDir,
			X0:  d.X0, Y0: d.Y0,
			Nx: d.Nx, Ny: d.Ny,
			Year: year, Month: int(month),
		})
	result, err := c.cache.NewRequest(ctx, req, key).Result()
	if err != nil {
		return nil, err
	}
	switch result.(type) {
	case *sparse.DenseArray:
		return result.(*sparse.DenseArray), nil
	case sparse.DenseArray:
		f := result.(sparse.DenseArray)
		return &f, nil
	default:
		panic(fmt.Errorf("temis: field cache result is invalid type: %#v", result))
	}
}

// loadField reads the requested month's field from the data
// directory. A file that is missing or cannot be read is reported as
// unavailable data; the caller decides whether that aborts the
// calculation.
func (c *MonthlyMean) loadField(ctx context.Context, req interface{}) (interface{}, error) {
	r := req.(*fieldRequest)
	name := filepath.Join(c.DataDir, fmt.Sprintf("no2_%04d%02d.asc", r.year, int(r.month)))
	f, err := os.Open(name)
	if err != nil {
		return nil, &eocalc.DataUnavailableError{
			Source: "temis",
			Err:    fmt.Errorf("opening monthly field: %v", err),
		}
	}
	defer f.Close()
	field, err := ReadField(f, r.d)
	if err != nil {
		return nil, &eocalc.DataUnavailableError{
			Source: "temis",
			Err:    fmt.Errorf("%s: %v", name, err),
		}
	}
	return field, nil
}

// newCache initializes a request cache.
func newCache(f requestcache.ProcessFunc, workers, memCacheSize int, cacheLoc string) *requestcache.Cache {
	if cacheLoc == "" {
		return requestcache.NewCache(f, workers, requestcache.Deduplicate(),
			requestcache.Memory(memCacheSize))
	} else if strings.HasPrefix(cacheLoc, "http") {
		return requestcache.NewCache(f, workers, requestcache.Deduplicate(),
			requestcache.Memory(memCacheSize), requestcache.HTTP(cacheLoc, requestcache.UnmarshalGob))
	} else if strings.HasPrefix(cacheLoc, "gs://") {
		loc, err := url.Parse(cacheLoc)
		if err != nil {
			panic(err)
		}
		cf, err := requestcache.GoogleCloudStorage(context.TODO(), loc.Host,
			strings.TrimLeft(loc.Path, "/"), requestcache.MarshalGob, requestcache.UnmarshalGob)
		if err != nil {
			panic(err)
		}
		return requestcache.NewCache(f, workers, requestcache.Deduplicate(),
			requestcache.Memory(memCacheSize), cf)
	}
	return requestcache.NewCache(f, workers, requestcache.Deduplicate(),
		requestcache.Memory(memCacheSize),
		requestcache.Disk(cacheLoc, requestcache.MarshalGob, requestcache.UnmarshalGob))
}
