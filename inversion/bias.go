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
	"errors"
	"sort"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/eocalc"
	"github.com/spatialmodel/eocalc/grid"
	"github.com/spatialmodel/eocalc/obs"
)

var errNoObservations = errors.New("no observations within the calculation grid")

// biasPercentile is the per-cell concentration percentile taken as the
// local background: the lowest observations in a cell are assumed to
// be upwind of its sources.
const biasPercentile = 0.05

// MinBinSamples is the cell observation count below which the
// background estimate is considered statistically noisy.
const MinBinSamples = 10

// Bias holds per-cell background column densities. Cells without
// observations hold no estimate; their lookup returns zero so that
// observations there pass through unchanged.
type Bias struct {
	d     *grid.Def
	field *sparse.SparseArray
}

// EstimateBias computes the background column density for each grid
// cell holding observations, as the 5th percentile of the cell's
// concentrations. If no cell contains any observation it returns an
// eocalc.DataUnavailableError. Cells with fewer than MinBinSamples
// observations are reported to log with their concentration mean and
// standard deviation; their percentile is used regardless.
func EstimateBias(d *grid.Def, observations []obs.Observation, log logrus.FieldLogger) (*Bias, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	bins := make(map[int][]float64)
	for _, o := range observations {
		i := d.CellIndex(geom.Point{X: o.Lon, Y: o.Lat})
		if i < 0 {
			continue
		}
		bins[i] = append(bins[i], o.Conc)
	}
	if len(bins) == 0 {
		return nil, &eocalc.DataUnavailableError{
			Source: "bias estimate",
			Err:    errNoObservations,
		}
	}
	b := &Bias{d: d, field: sparse.ZerosSparse(d.Ny, d.Nx)}
	cells := make([]int, 0, len(bins))
	for i := range bins {
		cells = append(cells, i)
	}
	sort.Ints(cells)
	for _, i := range cells {
		conc := bins[i]
		if len(conc) < MinBinSamples {
			var s stats.Stats
			for _, c := range conc {
				s.Update(c)
			}
			log.WithFields(logrus.Fields{
				"cell":  i,
				"count": s.Count(),
				"mean":  s.Mean(),
				"sd":    s.SampleStandardDeviation(),
			}).Warn("few observations for background estimate")
		}
		b.field.Set(percentile(conc, biasPercentile), i/d.Nx, i%d.Nx)
	}
	return b, nil
}

// At returns the background estimate covering point p, or zero if the
// point is outside the grid or its cell holds no estimate.
func (b *Bias) At(p geom.Point) float64 {
	i := b.d.CellIndex(p)
	if i < 0 {
		return 0
	}
	return b.field.Get(i/b.d.Nx, i%b.d.Nx)
}

// RHS returns the right-hand side of the linear system: each
// observation's column density minus the local background.
func (b *Bias) RHS(observations []obs.Observation) []float64 {
	rhs := make([]float64, len(observations))
	for i, o := range observations {
		rhs[i] = o.Conc - b.At(geom.Point{X: o.Lon, Y: o.Lat})
	}
	return rhs
}

// percentile returns percentile p (range [0,1]) of the given data.
func percentile(data []float64, p float64) float64 {
	tmp := make([]float64, len(data))
	copy(tmp, data)
	sort.Float64s(tmp)
	i := roundInt(p*float64(len(tmp))) - 1
	if i < 0 {
		i = 0
	}
	return tmp[i]
}

// roundInt rounds a float to an integer.
func roundInt(x float64) int {
	return int(x + 0.5)
}
