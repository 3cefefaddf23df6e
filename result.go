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
	"github.com/ctessum/geom"
)

// EmissionsCell is one row of an EmissionsGrid: a cell geometry
// clipped to the requested region, annotated with the emission mass
// estimated for the period and its uncertainty bounds.
type EmissionsCell struct {
	Geom geom.Polygonal

	// Emissions is the estimated emission mass in the cell over the
	// calculation period [kt].
	Emissions float64

	// Area is the clipped cell area [km²], measured in an equal-area
	// projection.
	Area float64

	// Umin and Umax are the lower and upper relative uncertainty of
	// Emissions [%].
	Umin, Umax float64

	// Values is the number of per-day values that contributed to the
	// cell; Missing counts the days without usable data.
	Values, Missing int
}

// EmissionsGrid is the gridded output of a calculation.
type EmissionsGrid struct {
	Pollutant Pollutant
	Cells     []*EmissionsCell
}

// Total sums the emission mass over all cells [kt].
func (g *EmissionsGrid) Total() float64 {
	var sum float64
	for _, c := range g.Cells {
		sum += c.Emissions
	}
	return sum
}

// CombinedUncertainties aggregates the per-cell uncertainty bounds
// into grid-level relative uncertainties for the total.
func (g *EmissionsGrid) CombinedUncertainties() (umin, umax float64, err error) {
	values := make([]float64, len(g.Cells))
	umins := make([]float64, len(g.Cells))
	umaxs := make([]float64, len(g.Cells))
	for i, c := range g.Cells {
		values[i] = c.Emissions
		umins[i] = c.Umin
		umaxs[i] = c.Umax
	}
	umin, err = CombineUncertainties(values, umins)
	if err != nil {
		return 0, 0, err
	}
	umax, err = CombineUncertainties(values, umaxs)
	if err != nil {
		return 0, 0, err
	}
	return umin, umax, nil
}

// AssembleResult builds the final Result from a filled emissions
// grid: the grid total goes to the unassigned "Other" GNFR row (the
// engine is not sector-resolved) and to the Totals row, with
// grid-level uncertainties combined from the per-cell bounds.
func AssembleResult(g *EmissionsGrid) (*Result, error) {
	umin, umax, err := g.CombinedUncertainties()
	if err != nil {
		return nil, err
	}
	return &Result{
		Totals: NewUnassignedGNFRTable(g.Total(), umin, umax),
		Grid:   g,
	}, nil
}
