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
	"fmt"
	"sort"

	"github.com/ctessum/geom"

	"github.com/spatialmodel/eocalc/grid"
	"github.com/spatialmodel/eocalc/obs"
)

// Matrix is a sparse design matrix in compressed sparse row form.
// Row i holds the kernel values relating observation i to every grid
// cell within the kernel truncation radius.
type Matrix struct {
	// Rows and Cols are the matrix dimensions: observations by grid
	// cells.
	Rows, Cols int

	// RowPtr[i]:RowPtr[i+1] bound the entries of row i in Col and
	// Val. len(RowPtr) == Rows+1.
	RowPtr []int

	// Col holds the column index of each entry, ascending within
	// each row.
	Col []int

	// Val holds the entry values.
	Val []float64
}

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int { return len(m.Val) }

// MatVec computes out = M·x.
func (m *Matrix) MatVec(out, x []float64) {
	if len(out) != m.Rows || len(x) != m.Cols {
		panic(fmt.Errorf("inversion: matrix-vector dimension mismatch: (%d×%d)·%d = %d",
			m.Rows, m.Cols, len(x), len(out)))
	}
	for i := 0; i < m.Rows; i++ {
		var sum float64
		for j := m.RowPtr[i]; j < m.RowPtr[i+1]; j++ {
			sum += m.Val[j] * x[m.Col[j]]
		}
		out[i] = sum
	}
}

// MatTVec computes out = Mᵀ·x.
func (m *Matrix) MatTVec(out, x []float64) {
	if len(out) != m.Cols || len(x) != m.Rows {
		panic(fmt.Errorf("inversion: matrix-vector dimension mismatch: (%d×%d)ᵀ·%d = %d",
			m.Rows, m.Cols, len(x), len(out)))
	}
	for i := range out {
		out[i] = 0
	}
	for i := 0; i < m.Rows; i++ {
		for j := m.RowPtr[i]; j < m.RowPtr[i+1]; j++ {
			out[m.Col[j]] += m.Val[j] * x[i]
		}
	}
}

// BuildMatrix assembles the design matrix relating per-cell emission
// rates to the given observations. Candidate cells for each
// observation are found with the grid's spatial index; cells beyond
// the kernel truncation radius contribute nothing and are not stored.
// Rows with no nearby cells are legal and stay empty.
func BuildMatrix(d *grid.Def, observations []obs.Observation, k Kernel) (*Matrix, error) {
	if err := k.check(); err != nil {
		return nil, err
	}
	m := &Matrix{
		Rows:   len(observations),
		Cols:   d.Len(),
		RowPtr: make([]int, 1, len(observations)+1),
	}
	type entry struct {
		col int
		val float64
	}
	var row []entry
	for _, o := range observations {
		row = row[:0]
		dlon, dlat := k.cutoffDegrees(o.Lat)
		b := &geom.Bounds{
			Min: geom.Point{X: o.Lon - dlon, Y: o.Lat - dlat},
			Max: geom.Point{X: o.Lon + dlon, Y: o.Lat + dlat},
		}
		for _, c := range d.CellsIntersecting(b) {
			ctr := c.Center()
			if v := k.Value(ctr.X, ctr.Y, o.Lon, o.Lat); v > 0 {
				row = append(row, entry{col: c.Index, val: v})
			}
		}
		sort.Slice(row, func(i, j int) bool { return row[i].col < row[j].col })
		for _, e := range row {
			m.Col = append(m.Col, e.col)
			m.Val = append(m.Val, e.val)
		}
		m.RowPtr = append(m.RowPtr, len(m.Col))
	}
	return m, nil
}
