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
	"math"
	"testing"

	"github.com/ctessum/geom"

	"github.com/spatialmodel/eocalc/grid"
	"github.com/spatialmodel/eocalc/obs"
)

func testGrid(t *testing.T, x0, y0, x1, y1, res float64) *grid.Def {
	t.Helper()
	b := &geom.Bounds{Min: geom.Point{X: x0, Y: y0}, Max: geom.Point{X: x1, Y: y1}}
	d, err := grid.NewRegular("test", b, res, res, false)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// denseRow evaluates the kernel against every grid cell, the slow way
// the design matrix must agree with.
func denseRow(d *grid.Def, k Kernel, o obs.Observation) []float64 {
	row := make([]float64, d.Len())
	for _, c := range d.Cells {
		ctr := c.Center()
		row[c.Index] = k.Value(ctr.X, ctr.Y, o.Lon, o.Lat)
	}
	return row
}

func TestBuildMatrix(t *testing.T) {
	d := testGrid(t, 0, 0, 2, 2, 0.5)
	k := NewKernel()
	k.PlumeWidth = 40 // truncation radius 140 km reaches every cell center
	observations := []obs.Observation{
		{Lon: 1, Lat: 1, Conc: 1},
		{Lon: 0.3, Lat: 1.8, Conc: 1},
		{Lon: 10, Lat: 10, Conc: 1}, // far outside: an empty row
	}
	m, err := BuildMatrix(d, observations, k)
	if err != nil {
		t.Fatal(err)
	}
	if m.Rows != len(observations) || m.Cols != d.Len() {
		t.Fatalf("matrix is %d×%d, want %d×%d", m.Rows, m.Cols, len(observations), d.Len())
	}
	if len(m.RowPtr) != m.Rows+1 {
		t.Fatalf("len(RowPtr) = %d, want %d", len(m.RowPtr), m.Rows+1)
	}
	if m.NNZ() != len(m.Val) || len(m.Col) != len(m.Val) {
		t.Fatalf("inconsistent storage: %d cols, %d vals", len(m.Col), len(m.Val))
	}
	for i, o := range observations {
		want := denseRow(d, k, o)
		got := make([]float64, d.Len())
		for j := m.RowPtr[i]; j < m.RowPtr[i+1]; j++ {
			if j > m.RowPtr[i] && m.Col[j] <= m.Col[j-1] {
				t.Errorf("row %d: columns not ascending at entry %d", i, j)
			}
			if m.Val[j] <= 0 {
				t.Errorf("row %d: stored a non-positive entry %g", i, m.Val[j])
			}
			got[m.Col[j]] = m.Val[j]
		}
		for c := range want {
			if got[c] != want[c] {
				t.Errorf("row %d cell %d: got %g, want %g", i, c, got[c], want[c])
			}
		}
	}
	if m.RowPtr[3] != m.RowPtr[2] {
		t.Errorf("out-of-range observation produced %d entries", m.RowPtr[3]-m.RowPtr[2])
	}
	if m.RowPtr[1] != 16 {
		t.Errorf("central observation sees %d cells, want all 16", m.RowPtr[1])
	}
}

func TestMatrixVectorProducts(t *testing.T) {
	d := testGrid(t, 0, 0, 2, 2, 0.5)
	k := NewKernel()
	k.PlumeWidth = 25
	observations := []obs.Observation{
		{Lon: 0.6, Lat: 0.4}, {Lon: 1.2, Lat: 1.5}, {Lon: 1.9, Lat: 0.1},
	}
	m, err := BuildMatrix(d, observations, k)
	if err != nil {
		t.Fatal(err)
	}
	x := make([]float64, m.Cols)
	for i := range x {
		x[i] = float64(i%5) + 0.5
	}
	got := make([]float64, m.Rows)
	m.MatVec(got, x)
	for i, o := range observations {
		var want float64
		for c, v := range denseRow(d, k, o) {
			want += v * x[c]
		}
		if math.Abs(got[i]-want) > 1e-15 {
			t.Errorf("MatVec row %d: got %g, want %g", i, got[i], want)
		}
	}

	y := []float64{1, -2, 3}
	gotT := make([]float64, m.Cols)
	m.MatTVec(gotT, y)
	wantT := make([]float64, m.Cols)
	for i, o := range observations {
		for c, v := range denseRow(d, k, o) {
			wantT[c] += v * y[i]
		}
	}
	for c := range wantT {
		if math.Abs(gotT[c]-wantT[c]) > 1e-15 {
			t.Errorf("MatTVec col %d: got %g, want %g", c, gotT[c], wantT[c])
		}
	}
}

func TestMatrixDimensionPanic(t *testing.T) {
	m := &Matrix{Rows: 2, Cols: 3, RowPtr: []int{0, 0, 0}}
	defer func() {
		if recover() == nil {
			t.Error("mismatched dimensions did not panic")
		}
	}()
	m.MatVec(make([]float64, 2), make([]float64, 2))
}

func TestBuildMatrixBadKernel(t *testing.T) {
	d := testGrid(t, 0, 0, 1, 1, 0.5)
	k := NewKernel()
	k.PlumeWidth = -1
	if _, err := BuildMatrix(d, nil, k); err == nil {
		t.Error("expected an error for an invalid kernel")
	}
}
