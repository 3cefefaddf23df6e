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
	"math"
	"testing"
)

func TestCombineUncertainties(t *testing.T) {
	nan := math.NaN()
	cases := []struct {
		name          string
		values        []float64
		uncertainties []float64
		want          float64
	}{
		// sqrt((2·10)² + (3·20)²) / 5
		{"weighted", []float64{2, 3}, []float64{10, 20}, 12.649110640673518},
		// Two equal contributions reduce the relative uncertainty by √2.
		{"equal", []float64{1, 1}, []float64{10, 10}, 10 / math.Sqrt2},
		{"single", []float64{5}, []float64{12}, 12},
		{"single large", []float64{10}, []float64{2}, 2},
		// sqrt((10·2)² + (10·4)²) / 20
		{"unequal pair", []float64{10, 10}, []float64{2, 4}, math.Sqrt(2000) / 20},
		// NaN values are excluded together with their uncertainties.
		{"missing value", []float64{2, nan, 3}, []float64{10, 99, 20}, 12.649110640673518},
		{"empty", nil, nil, 0},
		{"all missing", []float64{nan, nan}, []float64{10, 10}, 0},
		{"zero sum", []float64{2, -2}, []float64{10, 10}, 0},
	}
	for _, c := range cases {
		got, err := CombineUncertainties(c.values, c.uncertainties)
		if err != nil {
			t.Errorf("%s: %v", c.name, err)
			continue
		}
		if got != c.want && different(got, c.want, testTolerance) {
			t.Errorf("%s: got %g, want %g", c.name, got, c.want)
		}
	}
}

func TestCombineUncertaintiesErrors(t *testing.T) {
	cases := []struct {
		name          string
		values        []float64
		uncertainties []float64
	}{
		{"mismatched lengths", []float64{1, 2}, []float64{10}},
		{"negative uncertainty", []float64{1, 2}, []float64{10, -5}},
		{"NaN uncertainty", []float64{1, 2}, []float64{10, math.NaN()}},
	}
	for _, c := range cases {
		_, err := CombineUncertainties(c.values, c.uncertainties)
		if err == nil {
			t.Errorf("%s: expected an error", c.name)
			continue
		}
		if _, ok := err.(*NumericConsistencyError); !ok {
			t.Errorf("%s: error type %T, want *NumericConsistencyError", c.name, err)
		}
	}

	// A NaN uncertainty paired with a NaN value is excluded, not an
	// error.
	got, err := CombineUncertainties([]float64{1, math.NaN()}, []float64{10, math.NaN()})
	if err != nil {
		t.Errorf("NaN pair: %v", err)
	}
	if got != 10 {
		t.Errorf("NaN pair: got %g, want 10", got)
	}
}
