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
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/spatialmodel/eocalc"
)

// denseToCSR converts a dense row-major matrix to the sparse form the
// solver works on, dropping exact zeros.
func denseToCSR(rows [][]float64) *Matrix {
	m := &Matrix{
		Rows:   len(rows),
		Cols:   len(rows[0]),
		RowPtr: make([]int, 1, len(rows)+1),
	}
	for _, r := range rows {
		for j, v := range r {
			if v != 0 {
				m.Col = append(m.Col, j)
				m.Val = append(m.Val, v)
			}
		}
		m.RowPtr = append(m.RowPtr, len(m.Col))
	}
	return m
}

// tightConfig converges far enough that comparisons against a direct
// dense solve are limited by the test tolerance, not the solver.
func tightConfig(damp float64) SolverConfig {
	return SolverConfig{Damp: damp, AbsTol: 1e-12, RelTol: 1e-12, MaxIter: 200}
}

// overdetermined is a full-rank 5×3 system with no exact solution.
var overdetermined = [][]float64{
	{1.0, 0.5, 0.0},
	{0.2, 2.0, 0.3},
	{0.0, 1.0, 1.5},
	{1.1, 0.0, 0.7},
	{0.4, 0.6, 2.2},
}

var overdeterminedRHS = []float64{1, 2, 3, 4, 5}

func TestSolveSquare(t *testing.T) {
	a := denseToCSR([][]float64{
		{2, 1, 0},
		{1, 3, 1},
		{0, 1, 2},
	})
	// b = A·[1 2 3].
	b := []float64{4, 10, 8}
	sol, err := Solve(a, b, tightConfig(0))
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []float64{1, 2, 3} {
		if different(sol.X[i], want, 1e-6) {
			t.Errorf("x[%d] = %g, want %g", i, sol.X[i], want)
		}
	}
	if sol.Iterations <= 0 {
		t.Errorf("iterations = %d", sol.Iterations)
	}
	if different(sol.BNorm, math.Sqrt(180), 1e-9) {
		t.Errorf("BNorm = %g, want %g", sol.BNorm, math.Sqrt(180))
	}
	if sol.Residual > 1e-9 {
		t.Errorf("residual %g for a consistent system", sol.Residual)
	}
}

// TestSolveLeastSquares checks the minimizer of an inconsistent system
// against a dense QR solve of the same system.
func TestSolveLeastSquares(t *testing.T) {
	a := denseToCSR(overdetermined)
	sol, err := Solve(a, overdeterminedRHS, tightConfig(0))
	if err != nil {
		t.Fatal(err)
	}

	ad := mat.NewDense(5, 3, nil)
	for i, r := range overdetermined {
		for j, v := range r {
			ad.Set(i, j, v)
		}
	}
	var want mat.VecDense
	if err := want.SolveVec(ad, mat.NewVecDense(5, overdeterminedRHS)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if different(sol.X[i], want.AtVec(i), 1e-6) {
			t.Errorf("x[%d] = %g, want %g", i, sol.X[i], want.AtVec(i))
		}
	}

	// The reported residual must match ‖Ax−b‖ recomputed directly.
	r := make([]float64, a.Rows)
	a.MatVec(r, sol.X)
	var rnorm float64
	for i, v := range r {
		rnorm += (v - overdeterminedRHS[i]) * (v - overdeterminedRHS[i])
	}
	rnorm = math.Sqrt(rnorm)
	if different(sol.Residual, rnorm, 1e-6) {
		t.Errorf("residual %g, recomputed %g", sol.Residual, rnorm)
	}
}

// TestSolveDamped checks the damped minimizer against a dense solve of
// the augmented system [A; λI]x = [b; 0].
func TestSolveDamped(t *testing.T) {
	const damp = 0.5
	a := denseToCSR(overdetermined)
	sol, err := Solve(a, overdeterminedRHS, tightConfig(damp))
	if err != nil {
		t.Fatal(err)
	}

	aug := mat.NewDense(8, 3, nil)
	baug := make([]float64, 8)
	for i, r := range overdetermined {
		for j, v := range r {
			aug.Set(i, j, v)
		}
		baug[i] = overdeterminedRHS[i]
	}
	for j := 0; j < 3; j++ {
		aug.Set(5+j, j, damp)
	}
	var want mat.VecDense
	if err := want.SolveVec(aug, mat.NewVecDense(8, baug)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if different(sol.X[i], want.AtVec(i), 1e-6) {
			t.Errorf("x[%d] = %g, want %g", i, sol.X[i], want.AtVec(i))
		}
	}

	// The residual includes the damping contribution: it is the
	// augmented-system residual norm.
	var rnorm float64
	r := make([]float64, a.Rows)
	a.MatVec(r, sol.X)
	for i, v := range r {
		rnorm += (v - overdeterminedRHS[i]) * (v - overdeterminedRHS[i])
	}
	for _, v := range sol.X {
		rnorm += damp * damp * v * v
	}
	rnorm = math.Sqrt(rnorm)
	if different(sol.Residual, rnorm, 1e-6) {
		t.Errorf("damped residual %g, recomputed %g", sol.Residual, rnorm)
	}
}

func TestSolveZeroRHS(t *testing.T) {
	a := denseToCSR(overdetermined)
	sol, err := Solve(a, make([]float64, 5), tightConfig(0.1))
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range sol.X {
		if v != 0 {
			t.Errorf("x[%d] = %g, want 0", i, v)
		}
	}
	if sol.Iterations != 0 || sol.BNorm != 0 {
		t.Errorf("iterations %d, BNorm %g", sol.Iterations, sol.BNorm)
	}
}

func TestSolveDivergence(t *testing.T) {
	a := denseToCSR(overdetermined)
	cfg := SolverConfig{MaxIter: 1} // zero tolerances cannot be met
	_, err := Solve(a, overdeterminedRHS, cfg)
	var divErr *eocalc.SolverDivergenceError
	if !errors.As(err, &divErr) {
		t.Fatalf("got %v, want a SolverDivergenceError", err)
	}
	if divErr.Iterations != 1 {
		t.Errorf("reported %d iterations, want 1", divErr.Iterations)
	}
	if !(divErr.Residual > 0) {
		t.Errorf("reported residual %g", divErr.Residual)
	}
}

func TestSolveDimensionMismatch(t *testing.T) {
	a := denseToCSR(overdetermined)
	_, err := Solve(a, make([]float64, 4), tightConfig(0))
	var consErr *eocalc.NumericConsistencyError
	if !errors.As(err, &consErr) {
		t.Fatalf("got %v, want a NumericConsistencyError", err)
	}
}

func TestSolveBadConfig(t *testing.T) {
	a := denseToCSR(overdetermined)
	if _, err := Solve(a, overdeterminedRHS, SolverConfig{Damp: -1}); err == nil {
		t.Error("negative damping accepted")
	}
	if _, err := Solve(a, overdeterminedRHS, SolverConfig{AbsTol: -1}); err == nil {
		t.Error("negative tolerance accepted")
	}
}

// TestSolveDeterministic checks that repeated solves of the same
// system produce bit-identical results.
func TestSolveDeterministic(t *testing.T) {
	a := denseToCSR(overdetermined)
	first, err := Solve(a, overdeterminedRHS, tightConfig(0.007))
	if err != nil {
		t.Fatal(err)
	}
	second, err := Solve(a, overdeterminedRHS, tightConfig(0.007))
	if err != nil {
		t.Fatal(err)
	}
	if first.Iterations != second.Iterations {
		t.Errorf("iteration counts differ: %d, %d", first.Iterations, second.Iterations)
	}
	for i := range first.X {
		if first.X[i] != second.X[i] {
			t.Errorf("x[%d] differs between runs: %g, %g", i, first.X[i], second.X[i])
		}
	}
}
