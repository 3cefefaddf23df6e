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
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/eocalc"
)

func box(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{{
		geom.Point{X: x0, Y: y0},
		geom.Point{X: x1, Y: y0},
		geom.Point{X: x1, Y: y1},
		geom.Point{X: x0, Y: y1},
	}}
}

// testSource returns one observation at the region center for every
// day except the ones listed as missing.
type testSource struct {
	mu       sync.Mutex
	fetches  int
	missing  map[string]bool
	failures int
}

func (s *testSource) Fetch(ctx context.Context, region geom.Polygonal, day time.Time) ([]Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.failures > 0 {
		s.failures--
		return nil, fmt.Errorf("temporary failure")
	}
	if s.missing[day.Format("20060102")] {
		return nil, &eocalc.DataUnavailableError{Day: day, Source: "test"}
	}
	b := region.Bounds()
	return []Observation{{
		Lon:  (b.Min.X + b.Max.X) / 2,
		Lat:  (b.Min.Y + b.Max.Y) / 2,
		Day:  day,
		Conc: float64(day.Day()),
	}}, nil
}

func (s *testSource) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func TestMonthCache(t *testing.T) {
	src := &testSource{missing: map[string]bool{"20190105": true, "20190110": true}}
	c := &MonthCache{Source: src, Product: "test"}
	region := box(0, 0, 1, 1)

	d, err := c.Month(context.Background(), region, 2019, time.January)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Observations) != 29 {
		t.Errorf("observations: %d, want 29", len(d.Observations))
	}
	if len(d.Missing) != 2 {
		t.Fatalf("missing days: %d, want 2", len(d.Missing))
	}
	want5 := time.Date(2019, time.January, 5, 0, 0, 0, 0, time.UTC)
	want10 := time.Date(2019, time.January, 10, 0, 0, 0, 0, time.UTC)
	if !d.Missing[0].Equal(want5) || !d.Missing[1].Equal(want10) {
		t.Errorf("missing days %v, want [%v %v]", d.Missing, want5, want10)
	}
	if src.fetchCount() != 31 {
		t.Errorf("fetches: %d, want 31", src.fetchCount())
	}

	// The second request for the same month must be served from the
	// cache without touching the source.
	d2, err := c.Month(context.Background(), region, 2019, time.January)
	if err != nil {
		t.Fatal(err)
	}
	if src.fetchCount() != 31 {
		t.Errorf("fetches after cached request: %d, want 31", src.fetchCount())
	}
	if len(d2.Observations) != len(d.Observations) || len(d2.Missing) != len(d.Missing) {
		t.Errorf("cached result doesn't match original: %d/%d, want %d/%d",
			len(d2.Observations), len(d2.Missing), len(d.Observations), len(d.Missing))
	}

	// Concurrent requests for an uncached month must share one load.
	src2 := &testSource{}
	c2 := &MonthCache{Source: src2, Product: "test"}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c2.Month(context.Background(), region, 2019, time.March); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if src2.fetchCount() != 31 {
		t.Errorf("fetches from concurrent requests: %d, want 31", src2.fetchCount())
	}
}

func TestMonthCache_abort(t *testing.T) {
	src := &testSource{failures: 1}
	c := &MonthCache{Source: src, Product: "test"}

	_, err := c.Month(context.Background(), box(0, 0, 1, 1), 2019, time.February)
	if err == nil {
		t.Fatal("expected an error from a failing source")
	}
	var unavail *eocalc.DataUnavailableError
	if errors.As(err, &unavail) {
		t.Errorf("a transient failure should not be reported as unavailable data")
	}
}

func TestMonthCache_disk(t *testing.T) {
	dir := t.TempDir()
	region := box(0, 0, 1, 1)

	src := &testSource{}
	c := &MonthCache{Source: src, Product: "test", CacheLoc: dir}
	d, err := c.Month(context.Background(), region, 2020, time.April)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Observations) != 30 {
		t.Errorf("observations: %d, want 30", len(d.Observations))
	}

	// A fresh cache sharing the same directory must read the stored
	// month instead of the source.
	src2 := &testSource{}
	c2 := &MonthCache{Source: src2, Product: "test", CacheLoc: dir}
	d2, err := c2.Month(context.Background(), region, 2020, time.April)
	if err != nil {
		t.Fatal(err)
	}
	if src2.fetchCount() != 0 {
		t.Errorf("fetches from disk-cached month: %d, want 0", src2.fetchCount())
	}
	if len(d2.Observations) != 30 {
		t.Errorf("disk-cached observations: %d, want 30", len(d2.Observations))
	}
	if len(d2.Missing) != 0 {
		t.Errorf("disk-cached missing days: %d, want 0", len(d2.Missing))
	}
}

func TestRetryingSource(t *testing.T) {
	src := &testSource{failures: 1}
	r := NewRetryingSource(src)

	day := time.Date(2019, time.June, 3, 0, 0, 0, 0, time.UTC)
	o, err := r.Fetch(context.Background(), box(0, 0, 1, 1), day)
	if err != nil {
		t.Fatal(err)
	}
	if len(o) != 1 {
		t.Errorf("observations: %d, want 1", len(o))
	}
	if src.fetchCount() != 2 {
		t.Errorf("fetches: %d, want 2", src.fetchCount())
	}
}

func TestRetryingSource_unavailable(t *testing.T) {
	day := time.Date(2019, time.June, 3, 0, 0, 0, 0, time.UTC)
	src := &testSource{missing: map[string]bool{"20190603": true}}
	r := NewRetryingSource(src)

	_, err := r.Fetch(context.Background(), box(0, 0, 1, 1), day)
	var unavail *eocalc.DataUnavailableError
	if !errors.As(err, &unavail) {
		t.Fatalf("want DataUnavailableError, got %v", err)
	}
	// Unavailable days are definitive; they must not be retried.
	if src.fetchCount() != 1 {
		t.Errorf("fetches: %d, want 1", src.fetchCount())
	}
}
