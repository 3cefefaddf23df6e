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

package eocalc

import (
	"context"
	"math/rand"
	"time"

	"github.com/ctessum/geom"

	"github.com/spatialmodel/eocalc/grid"
)

func init() {
	Register("random", func() Calculator { return NewRandom(1) })
}

// Random is a calculator returning random nonsense: every GNFR
// sector gets a random value and uncertainty bounds. Useful for
// exercising result handling end to end.
type Random struct {
	Tracker
	seed int64
}

// NewRandom returns a Random calculator. Runs with the same seed
// produce identical results.
func NewRandom(seed int64) *Random {
	return &Random{seed: seed}
}

func (c *Random) MinimumAreaSize() float64 { return 1 }
func (c *Random) MinimumPeriodLength() int { return 1 }
func (c *Random) Coverage() geom.Polygonal { return LatitudeBand(-90, 90) }
func (c *Random) EarliestStartDate() time.Time {
	return time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
}
func (c *Random) LatestEndDate() time.Time {
	return time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
}
func (c *Random) Supports(Pollutant) bool { return true }

// Run fills every sector row with random values (value < 100 kt,
// Umin < 18%, Umax < 22%) and aggregates them into the Totals row and
// a single-row grid covering the region.
func (c *Random) Run(ctx context.Context, region geom.Polygonal, period DateRange, pol Pollutant) (*Result, error) {
	if err := Validate(c, region, period, pol); err != nil {
		return nil, err
	}
	if err := c.Begin(); err != nil {
		return nil, err
	}
	defer c.Done()

	rng := rand.New(rand.NewSource(c.seed))
	table := NewGNFRTable()
	values := make([]float64, 0, len(Sectors))
	umins := make([]float64, 0, len(Sectors))
	umaxs := make([]float64, 0, len(Sectors))
	for _, s := range Sectors {
		row := GNFRRow{
			Value: rng.Float64() * 100,
			Umin:  rng.Float64() * 18,
			Umax:  rng.Float64() * 22,
		}
		table.Rows[s] = row
		values = append(values, row.Value)
		umins = append(umins, row.Umin)
		umaxs = append(umaxs, row.Umax)
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	umin, err := CombineUncertainties(values, umins)
	if err != nil {
		return nil, err
	}
	umax, err := CombineUncertainties(values, umaxs)
	if err != nil {
		return nil, err
	}
	table.Totals = GNFRRow{Value: total, Umin: umin, Umax: umax}

	area, err := grid.AreaKm2(region)
	if err != nil {
		return nil, err
	}
	eg := &EmissionsGrid{
		Pollutant: pol,
		Cells: []*EmissionsCell{{
			Geom:      region,
			Emissions: total,
			Area:      area,
			Umin:      umin,
			Umax:      umax,
			Values:    period.Days(),
		}},
	}
	c.Update(100)
	return &Result{Totals: table, Grid: eg}, nil
}
