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
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/spatialmodel/eocalc"
)

// Default solver settings. The damping factor is an empirical value
// for continental-scale NO2 inversions; it depends on the domain size
// and the number of observations.
const (
	DefaultDamp   = 0.007
	DefaultAbsTol = 1e-8
	DefaultRelTol = 1e-8
)

// SolverConfig configures the damped least-squares solver.
type SolverConfig struct {
	// Damp is the damping factor λ: the solver minimizes
	// ‖Ax−b‖² + λ²‖x‖².
	Damp float64 `toml:"damp"`

	// AbsTol and RelTol are the stopping tolerances. The iteration
	// stops when ‖r‖ ≤ RelTol·‖b‖ + AbsTol·‖A‖·‖x‖ or when
	// ‖Aᵀr‖ ≤ AbsTol·‖A‖·‖r‖, with ‖A‖ estimated as the iteration
	// proceeds.
	AbsTol float64 `toml:"abs_tol"`
	RelTol float64 `toml:"rel_tol"`

	// MaxIter caps the number of iterations; zero means twice the
	// number of matrix columns.
	MaxIter int `toml:"max_iter"`
}

// DefaultSolverConfig returns the default solver settings.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{Damp: DefaultDamp, AbsTol: DefaultAbsTol, RelTol: DefaultRelTol}
}

func (c SolverConfig) check() error {
	if c.Damp < 0 || math.IsNaN(c.Damp) {
		return fmt.Errorf("inversion: damping factor %g must be non-negative", c.Damp)
	}
	if c.AbsTol < 0 || c.RelTol < 0 {
		return fmt.Errorf("inversion: solver tolerances (%g, %g) must be non-negative",
			c.AbsTol, c.RelTol)
	}
	return nil
}

// A Solution holds the result of a least-squares fit.
type Solution struct {
	// X is the fitted coefficient vector.
	X []float64

	// Iterations is the number of iterations performed.
	Iterations int

	// Residual is the final residual norm ‖Ax−b‖ of the damped
	// system, including the λ‖x‖ contribution.
	Residual float64

	// BNorm is ‖b‖, for relative residual reporting.
	BNorm float64
}

// Solve finds x minimizing ‖Ax−b‖² + λ²‖x‖² using the LSQR
// bidiagonalization algorithm of Paige and Saunders (1982). The
// computation is deterministic: same inputs, same iterates. If the
// iteration cap is reached before the stopping tests are satisfied it
// returns an eocalc.SolverDivergenceError and no solution.
func Solve(a *Matrix, b []float64, cfg SolverConfig) (*Solution, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	if len(b) != a.Rows {
		return nil, &eocalc.NumericConsistencyError{
			Reason: fmt.Sprintf("solving %d×%d system with %d observations", a.Rows, a.Cols, len(b)),
		}
	}
	maxIter := cfg.MaxIter
	if maxIter <= 0 {
		maxIter = 2 * a.Cols
	}

	x := make([]float64, a.Cols)
	u := make([]float64, a.Rows)
	v := make([]float64, a.Cols)
	w := make([]float64, a.Cols)
	tmpRow := make([]float64, a.Rows)
	tmpCol := make([]float64, a.Cols)

	// Initialize the bidiagonalization: u₁β = b, v₁α = Aᵀu₁.
	copy(u, b)
	bnorm := floats.Norm(u, 2)
	if bnorm == 0 {
		// A zero right-hand side has the exact solution x = 0.
		return &Solution{X: x, BNorm: 0}, nil
	}
	beta := bnorm
	floats.Scale(1/beta, u)
	a.MatTVec(v, u)
	alpha := floats.Norm(v, 2)
	if alpha > 0 {
		floats.Scale(1/alpha, v)
	}
	copy(w, v)

	phibar := beta
	rhobar := alpha
	var anorm, res2 float64
	rnorm := beta

	if alpha*beta == 0 {
		// Aᵀb = 0: x = 0 already minimizes the system.
		return &Solution{X: x, Residual: rnorm, BNorm: bnorm}, nil
	}

	for itn := 1; itn <= maxIter; itn++ {
		// Continue the bidiagonalization:
		// βu = Av − αu, αv = Aᵀu − βv.
		a.MatVec(tmpRow, v)
		floats.Scale(-alpha, u)
		floats.Add(u, tmpRow)
		beta = floats.Norm(u, 2)
		if beta > 0 {
			floats.Scale(1/beta, u)
			anorm = math.Sqrt(anorm*anorm + alpha*alpha + beta*beta + cfg.Damp*cfg.Damp)
			a.MatTVec(tmpCol, u)
			floats.Scale(-beta, v)
			floats.Add(v, tmpCol)
			alpha = floats.Norm(v, 2)
			if alpha > 0 {
				floats.Scale(1/alpha, v)
			}
		}

		// Rotation eliminating the damping parameter.
		rhobar1 := rhobar
		psi := 0.
		if cfg.Damp > 0 {
			rhobar1 = math.Hypot(rhobar, cfg.Damp)
			cs1 := rhobar / rhobar1
			psi = (cfg.Damp / rhobar1) * phibar
			phibar = cs1 * phibar
		}

		// Rotation eliminating the lower-bidiagonal element.
		rho := math.Hypot(rhobar1, beta)
		cs := rhobar1 / rho
		sn := beta / rho
		theta := sn * alpha
		rhobar = -cs * alpha
		phi := cs * phibar
		phibar = sn * phibar
		tau := sn * phi

		// x = x + (φ/ρ)w, w = v − (θ/ρ)w.
		floats.AddScaled(x, phi/rho, w)
		floats.Scale(-theta/rho, w)
		floats.Add(w, v)

		res2 += psi * psi
		rnorm = math.Sqrt(phibar*phibar + res2)
		arnorm := alpha * math.Abs(tau)
		xnorm := floats.Norm(x, 2)

		if rnorm <= cfg.RelTol*bnorm+cfg.AbsTol*anorm*xnorm {
			return &Solution{X: x, Iterations: itn, Residual: rnorm, BNorm: bnorm}, nil
		}
		if arnorm <= cfg.AbsTol*anorm*rnorm {
			return &Solution{X: x, Iterations: itn, Residual: rnorm, BNorm: bnorm}, nil
		}
	}
	return nil, &eocalc.SolverDivergenceError{Iterations: maxIter, Residual: rnorm}
}
