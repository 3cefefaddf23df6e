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
	"time"

	"github.com/ctessum/geom"

	"github.com/spatialmodel/eocalc/grid"
)

func init() {
	Register("dummy", func() Calculator { return NewDummy() })
}

// Dummy is a calculator that accepts everything and returns a fixed
// answer. It exists to exercise the calculator contract in tests and
// pipelines without any data dependencies.
type Dummy struct {
	Tracker
}

// NewDummy returns a new Dummy calculator.
func NewDummy() *Dummy { return new(Dummy) }

func (c *Dummy) MinimumAreaSize() float64 { return 0 }
func (c *Dummy) MinimumPeriodLength() int { return 0 }
func (c *Dummy) Coverage() geom.Polygonal { return LatitudeBand(-90, 90) }
func (c *Dummy) EarliestStartDate() time.Time {
	return time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
}
func (c *Dummy) LatestEndDate() time.Time {
	return time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
}
func (c *Dummy) Supports(Pollutant) bool { return true }

const dummyEmissionsKt = 42

// Run returns a fixed total of 42 kt attributed to the unassigned
// sector, on a single-cell grid covering the whole region.
func (c *Dummy) Run(ctx context.Context, region geom.Polygonal, period DateRange, pol Pollutant) (*Result, error) {
	if err := Validate(c, region, period, pol); err != nil {
		return nil, err
	}
	if err := c.Begin(); err != nil {
		return nil, err
	}
	defer c.Done()

	area, err := grid.AreaKm2(region)
	if err != nil {
		return nil, err
	}
	eg := &EmissionsGrid{
		Pollutant: pol,
		Cells: []*EmissionsCell{{
			Geom:      region,
			Emissions: dummyEmissionsKt,
			Area:      area,
			Values:    period.Days(),
		}},
	}
	c.Update(100)
	return AssembleResult(eg)
}
