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

// Package obs retrieves satellite column observations for emission
// calculations. A Source supplies single days of data; MonthCache
// aggregates days into calendar months and caches the results so that
// overlapping calculation periods do not re-read the same files.
package obs

import (
	"context"
	"time"

	"github.com/ctessum/geom"
)

// An Observation is a single satellite ground-pixel retrieval.
type Observation struct {
	// Lon and Lat give the pixel center location in WGS84 degrees.
	Lon, Lat float64

	// Day is the UTC date of the overpass, truncated to midnight.
	Day time.Time

	// Conc is the retrieved vertical column density [mol m-2].
	Conc float64
}

// A Source supplies observations for single days. Implementations own
// all file and network access; the inversion itself never touches
// storage directly.
type Source interface {
	// Fetch returns the observations for the given day that fall
	// within the bounding box of region. If the day is not available
	// it returns an error that matches eocalc.DataUnavailableError;
	// the caller decides whether a missing day is fatal.
	Fetch(ctx context.Context, region geom.Polygonal, day time.Time) ([]Observation, error)
}
