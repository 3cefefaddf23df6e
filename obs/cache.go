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

package obs

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/eocalc"
	"github.com/spatialmodel/eocalc/internal/hash"
)

func init() {
	// These are the types that will be stored in the cache.
	gob.Register(MonthData{})
}

// MonthData holds one calendar month of observations for a region.
type MonthData struct {
	// Observations holds the observations for all available days of
	// the month, in day order.
	Observations []Observation

	// Missing holds the UTC dates of the days of the month that the
	// source reported as unavailable, in ascending order. Callers that
	// only cover part of the month filter it to their own period.
	Missing []time.Time
}

// MonthCache loads whole calendar months of observations and caches
// them so that overlapping calculation periods read each month only
// once. Concurrent requests for the same month are deduplicated, and
// cached months are immutable once loaded.
type MonthCache struct {
	// Source supplies the daily observations.
	Source Source

	// Product distinguishes cache entries from different data
	// products.
	Product string

	// CacheLoc specifies the location for storing loaded months:
	// "" for memory only, a directory path, an HTTP address, or a
	// Google Cloud Storage bucket (gs://bucketname/subdir).
	CacheLoc string

	// MaxCacheEntries is the maximum number of months to hold in the
	// memory cache; zero means no limit.
	MaxCacheEntries int

	// Log receives diagnostics about missing days.
	Log logrus.FieldLogger

	cache     *requestcache.Cache
	cacheOnce sync.Once
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

// monthRequest is the payload for loading one month.
type monthRequest struct {
	region geom.Polygonal
	year   int
	month  time.Month
}

// monthKey identifies a cached month.
type monthKey struct {
	Product     string
	Bounds      *geom.Bounds
	Year, Month int
}

// Month returns the observations for the given calendar month that fall
// within the bounding box of region, loading them from the underlying
// Source if they are not already cached. Days the source reports as
// unavailable are skipped and counted in the result; any other fetch
// error aborts the load.
func (c *MonthCache) Month(ctx context.Context, region geom.Polygonal, year int, month time.Month) (*MonthData, error) {
	c.cacheOnce.Do(func() {
		if c.Log == nil {
			c.Log = logrus.StandardLogger()
		}
		c.cache = newCache(c.loadMonth, runtime.GOMAXPROCS(-1), c.MaxCacheEntries, c.CacheLoc)
	})
	req := &monthRequest{region: region, year: year, month: month}
	key := hash.Key(fmt.Sprintf("%s_%04d%02d", c.Product, year, int(month)),
		monthKey{Product: c.Product, Bounds: region.Bounds(), Year: year, Month: int(month)})
	r := c.cache.NewRequest(ctx, req, key)
	result, err := r.Result()
	if err != nil {
		return nil, err
	}
	switch result.(type) {
	case *MonthData:
		return result.(*MonthData), nil
	case MonthData:
		d := result.(MonthData)
		return &d, nil
	default:
		panic(fmt.Errorf("obs: month cache result is invalid type: %#v", result))
	}
}

// loadMonth fetches every day of the requested month from the
// underlying source.
func (c *MonthCache) loadMonth(ctx context.Context, req interface{}) (interface{}, error) {
	r := req.(*monthRequest)
	var d MonthData
	first := time.Date(r.year, r.month, 1, 0, 0, 0, 0, time.UTC)
	for day := first; day.Month() == r.month; day = day.AddDate(0, 0, 1) {
		o, err := c.Source.Fetch(ctx, r.region, day)
		if err != nil {
			var unavail *eocalc.DataUnavailableError
			if errors.As(err, &unavail) {
				d.Missing = append(d.Missing, day)
				c.Log.WithFields(logrus.Fields{
					"product": c.Product,
					"day":     day.Format("2006-01-02"),
				}).Info("observations unavailable, skipping day")
				continue
			}
			return nil, err
		}
		d.Observations = append(d.Observations, o...)
	}
	return d, nil
}
