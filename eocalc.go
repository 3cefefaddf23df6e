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

// Package eocalc estimates surface pollutant emissions from
// satellite-derived atmospheric column observations. Emission
// calculation methods implement the Calculator interface and report
// results both as a sector-aggregated GNFR table and as a spatial
// emissions grid with uncertainty bounds.
package eocalc

import (
	"context"
	"time"

	"github.com/ctessum/geom"

	"github.com/spatialmodel/eocalc/grid"
)

// Version gives the version number.
const Version = "0.3.1"

// Calculator is the capability contract implemented by every emission
// calculation method. Capability accessors describe the envelope the
// method can reliably work in; Run performs one batch calculation.
type Calculator interface {
	// MinimumAreaSize returns the smallest region [km²] the method can
	// reliably work on.
	MinimumAreaSize() float64

	// MinimumPeriodLength returns the shortest usable period [days].
	MinimumPeriodLength() int

	// Coverage returns the polygon of spatial applicability in
	// geographic coordinates.
	Coverage() geom.Polygonal

	// EarliestStartDate and LatestEndDate bound the usable period.
	EarliestStartDate() time.Time
	LatestEndDate() time.Time

	// Supports reports whether the method can estimate emissions of
	// the given pollutant.
	Supports(pol Pollutant) bool

	// Status reports whether the calculator is Ready or Running, and
	// Progress the completion percentage of a running calculation.
	Status() Status
	Progress() float64

	// Run estimates emissions of pol over region during period. The
	// region is never mutated. Concurrent calls on the same instance
	// are rejected.
	Run(ctx context.Context, region geom.Polygonal, period DateRange, pol Pollutant) (*Result, error)
}

// Result holds the output of one calculation. The field names are the
// fixed keys of the serialized output contract.
type Result struct {
	Totals GNFRTable      `json:"totals"`
	Grid   *EmissionsGrid `json:"grid"`
}

// LatitudeBand returns the global longitude extent clipped to the
// given latitudes, the usual shape of a satellite product's coverage.
func LatitudeBand(south, north float64) geom.Polygon {
	return geom.Polygon{{
		{X: -180, Y: south}, {X: 180, Y: south},
		{X: 180, Y: north}, {X: -180, Y: north},
		{X: -180, Y: south},
	}}
}

// Covers reports whether region lies fully within the calculator's
// coverage. Regions touching the coverage boundary count as covered.
func Covers(c Calculator, region geom.Polygonal) bool {
	if region == nil {
		return false
	}
	cov := c.Coverage()
	if cov == nil {
		return false
	}
	// Covered when no part of the region falls outside the coverage.
	// The tolerance absorbs clipping slivers along shared edges.
	return region.Difference(cov).Area() <= 1e-9
}

// Validate is the gate run before any computation: it checks region,
// period, and pollutant against the calculator's capability envelope
// and returns a ValidationError on the first violation. It has no
// side effects.
func Validate(c Calculator, region geom.Polygonal, period DateRange, pol Pollutant) error {
	if region == nil {
		return newValidationError("no region given")
	}
	if region.Area() <= 0 {
		return newValidationError("degenerate region: zero area")
	}
	area, err := grid.AreaKm2(region)
	if err != nil {
		return newValidationError("measuring region area: %v", err)
	}
	if area < c.MinimumAreaSize() {
		return newValidationError("region area %.0f km² is below the method minimum of %.0f km²", area, c.MinimumAreaSize())
	}
	if !Covers(c, region) {
		return newValidationError("region is not fully inside the method coverage")
	}
	if period.IsZero() {
		return newValidationError("no period given")
	}
	if period.Days() < c.MinimumPeriodLength() {
		return newValidationError("period %s is shorter than the method minimum of %d days", period, c.MinimumPeriodLength())
	}
	if period.Start().Before(c.EarliestStartDate()) || period.End().After(c.LatestEndDate()) {
		return newValidationError("period %s is outside the usable window [%s, %s]", period,
			c.EarliestStartDate().Format("2006-01-02"), c.LatestEndDate().Format("2006-01-02"))
	}
	if !c.Supports(pol) {
		return newValidationError("pollutant %s is not supported by this method", pol)
	}
	return nil
}
