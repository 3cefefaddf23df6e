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

package grid

import (
	"fmt"
	"sync"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// Albers equal-area conic on a sphere. Albers preserves area for any
// choice of standard parallels, so one fixed projection serves every
// region without special cases.
const albersProj = "+proj=aea +lat_1=29.5 +lat_2=45.5 +lat_0=23 +lon_0=0 " +
	"+x_0=0 +y_0=0 +a=6378137 +b=6378137 +units=m"

var (
	equalAreaOnce sync.Once
	equalAreaCT   proj.Transformer
	equalAreaErr  error
)

func equalAreaTransform() (proj.Transformer, error) {
	equalAreaOnce.Do(func() {
		var longlat, albers *proj.SR
		longlat, equalAreaErr = proj.Parse("+proj=longlat")
		if equalAreaErr != nil {
			return
		}
		albers, equalAreaErr = proj.Parse(albersProj)
		if equalAreaErr != nil {
			return
		}
		equalAreaCT, equalAreaErr = longlat.NewTransform(albers)
	})
	return equalAreaCT, equalAreaErr
}

// AreaKm2 measures a geographic (longitude/latitude) geometry's area
// in km² by projecting it to an equal-area projection.
func AreaKm2(g geom.Polygonal) (float64, error) {
	ct, err := equalAreaTransform()
	if err != nil {
		return 0, fmt.Errorf("grid: preparing equal-area projection: %v", err)
	}
	gg, err := g.Transform(ct)
	if err != nil {
		return 0, fmt.Errorf("grid: projecting to equal-area: %v", err)
	}
	return gg.(geom.Polygonal).Area() / 1e6, nil
}
