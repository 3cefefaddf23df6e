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
	"fmt"
	"math"

	"github.com/gonum/floats"
)

// CombineUncertainties combines per-item relative uncertainties [%]
// into one relative uncertainty for the aggregate, following the
// root-sum-square error-propagation rule for weighted sums:
//
//	U = sqrt(Σ (vᵢ·uᵢ)²) / Σ vᵢ
//
// Pairs whose value is NaN are excluded before combining. A negative
// or NaN uncertainty among the remaining pairs is a
// NumericConsistencyError, as are mismatched input lengths. Empty
// input, all-missing values, and a zero value sum yield 0: no
// detectable signal carries no reportable uncertainty.
func CombineUncertainties(values, uncertainties []float64) (float64, error) {
	if len(values) != len(uncertainties) {
		return 0, &NumericConsistencyError{Reason: fmt.Sprintf(
			"combining uncertainties: %d values but %d uncertainties",
			len(values), len(uncertainties))}
	}
	v := make([]float64, 0, len(values))
	w := make([]float64, 0, len(values))
	for i, val := range values {
		if math.IsNaN(val) {
			continue
		}
		u := uncertainties[i]
		if u < 0 || math.IsNaN(u) {
			return 0, &NumericConsistencyError{Reason: fmt.Sprintf(
				"combining uncertainties: invalid uncertainty %g at index %d", u, i)}
		}
		v = append(v, val)
		w = append(w, val*u)
	}
	sum := floats.Sum(v)
	if len(v) == 0 || sum == 0 {
		return 0, nil
	}
	return math.Sqrt(floats.Dot(w, w)) / sum, nil
}
