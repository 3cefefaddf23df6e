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
)

const testTolerance = 1e-3

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

// kmNorth converts a northward displacement [km] to degrees of
// latitude.
func kmNorth(km float64) float64 {
	return km / (earthRadius * degToRad)
}

func TestKernelValue(t *testing.T) {
	k := NewKernel()
	// Expected values evaluated by hand from the plume formulas with
	// the default parameters (w=7 km, decay=1/3 h⁻¹, speed=18 km/h).
	cases := []struct {
		name     string
		lon, lat float64
		want     float64
	}{
		{"at source", 0, 0, 4.7727e-4},
		{"10 km upwind", 0, kmNorth(10), 7.6330e-5},
		{"10 km downwind", 0, kmNorth(-10), 6.9879e-4},
	}
	for _, c := range cases {
		v := k.Value(0, 0, c.lon, c.lat)
		if different(v, c.want, testTolerance) {
			t.Errorf("%s: got %g, want %g", c.name, v, c.want)
		}
	}
}

func TestKernelDownwindAsymmetry(t *testing.T) {
	// With the default northerly wind the plume extends south: the
	// column enhancement south of the source must exceed the
	// enhancement the same distance north of it.
	k := NewKernel()
	south := k.Value(0, 0, 0, kmNorth(-10))
	north := k.Value(0, 0, 0, kmNorth(10))
	if south <= north {
		t.Errorf("downwind value %g not greater than upwind value %g", south, north)
	}
}

func TestKernelCrosswindSymmetry(t *testing.T) {
	k := NewKernel()
	dlon := 5 / (earthRadius * degToRad) // cos(0°) = 1 at the equator
	lat := kmNorth(-10)
	east := k.Value(0, 0, dlon, lat)
	west := k.Value(0, 0, -dlon, lat)
	if different(east, west, 1e-12) {
		t.Errorf("across-wind values differ: %g east, %g west", east, west)
	}
}

func TestKernelRotation(t *testing.T) {
	// A wind from the east carries the plume west, so an observation
	// west of the source must see what an observation south of it
	// sees under the default northerly wind.
	k := NewKernel()
	k.WindDirection = 90
	west := k.Value(0, 0, -kmNorth(10), 0)
	k.WindDirection = 0
	south := k.Value(0, 0, 0, kmNorth(-10))
	if different(west, south, 1e-9) {
		t.Errorf("rotated value %g does not match unrotated %g", west, south)
	}
}

func TestKernelCutoff(t *testing.T) {
	// The default truncation radius is 3.5·7 = 24.5 km. Inside it the
	// kernel is positive; beyond it the kernel is exactly zero, which
	// keeps the design matrix sparse.
	k := NewKernel()
	if v := k.Value(0, 0, 0, kmNorth(24.4)); !(v > 0) {
		t.Errorf("kernel zero at 24.4 km: %g", v)
	}
	if v := k.Value(0, 0, 0, kmNorth(24.6)); v != 0 {
		t.Errorf("kernel not truncated at 24.6 km: %g", v)
	}
}

func TestKernelSigma(t *testing.T) {
	k := NewKernel()
	if s := k.sigma(10); different(s, 7, 1e-9) {
		t.Errorf("upwind width %g, want 7", s)
	}
	// Downwind the width broadens: sqrt(7² + 1.5·10) = 8.
	if s := k.sigma(-10); different(s, 8, 1e-9) {
		t.Errorf("downwind width %g, want 8", s)
	}
}

func TestKernelCheck(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*Kernel)
	}{
		{"zero width", func(k *Kernel) { k.PlumeWidth = 0 }},
		{"negative width", func(k *Kernel) { k.PlumeWidth = -1 }},
		{"zero speed", func(k *Kernel) { k.WindSpeed = 0 }},
		{"negative decay", func(k *Kernel) { k.Decay = -0.1 }},
		{"NaN decay", func(k *Kernel) { k.Decay = math.NaN() }},
		{"zero cutoff", func(k *Kernel) { k.CutoffFactor = 0 }},
	}
	for _, c := range cases {
		k := NewKernel()
		c.modify(&k)
		if err := k.check(); err == nil {
			t.Errorf("%s: expected an error", c.name)
		}
	}
	if err := NewKernel().check(); err != nil {
		t.Errorf("default parameters rejected: %v", err)
	}
}

func TestKernelCutoffDegrees(t *testing.T) {
	k := NewKernel()
	dlon, dlat := k.cutoffDegrees(0)
	if different(dlat, 0.22009, testTolerance) {
		t.Errorf("equator dlat %g, want 0.22009", dlat)
	}
	if dlon < dlat {
		t.Errorf("dlon %g smaller than dlat %g", dlon, dlat)
	}
	dlon60, _ := k.cutoffDegrees(60)
	if different(dlon60, 0.4431, testTolerance) {
		t.Errorf("60°N dlon %g, want 0.4431", dlon60)
	}
	// Near the pole the longitude half-width stays finite.
	dlonPole, _ := k.cutoffDegrees(89.9)
	if math.IsNaN(dlonPole) || math.IsInf(dlonPole, 0) || dlonPole <= 0 {
		t.Errorf("polar dlon %g", dlonPole)
	}
}
