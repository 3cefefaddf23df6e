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

// Package inversion estimates gridded surface emissions from satellite
// column observations by fitting an exponentially modified Gaussian
// plume model for every grid cell simultaneously, following Fioletov
// et al. (2017, https://doi.org/10.5194/acp-17-12597-2017) and Dammers
// et al. (2021). Every column density is modeled as
//
//	VCD(x, y) = Σ_i kernel_i(x, y)·E_i + bias
//
// where E_i are the unknown per-cell emission rates, and the resulting
// sparse linear system is solved with damped least squares.
package inversion

import (
	"fmt"
	"math"
)

// earthRadius is the radius used to convert angular displacements to
// plume coordinates [km].
const earthRadius = 6378.

const degToRad = math.Pi / 180.

// Default plume model parameters, chosen for NO2 plumes observed by
// TROPOMI at midday.
const (
	DefaultPlumeWidth    = 7.      // km
	DefaultDecay         = 1. / 3. // 1/h
	DefaultWindSpeed     = 18.     // km/h
	DefaultWindDirection = 0.      // degrees clockwise from north
	DefaultCutoffFactor  = 3.5
)

// A Kernel gives the column density contribution of a unit emission
// source to downwind observation locations. It is an exponentially
// modified Gaussian plume: Gaussian spread across the wind combined
// with advection and first-order decay along it.
type Kernel struct {
	// PlumeWidth is the across-wind spread parameter w [km].
	PlumeWidth float64 `toml:"plume_width"`

	// Decay is the first-order removal rate of the pollutant [1/h].
	Decay float64 `toml:"decay"`

	// WindSpeed is the plume advection speed [km/h].
	WindSpeed float64 `toml:"wind_speed"`

	// WindDirection is the direction the wind comes from
	// [degrees clockwise from north], the meteorological convention.
	WindDirection float64 `toml:"wind_direction"`

	// CutoffFactor sets the truncation radius of the kernel as a
	// multiple of PlumeWidth. Contributions from farther away are
	// exactly zero, which keeps the design matrix sparse.
	CutoffFactor float64 `toml:"cutoff_factor"`
}

// NewKernel returns a kernel with the default parameters.
func NewKernel() Kernel {
	return Kernel{
		PlumeWidth:    DefaultPlumeWidth,
		Decay:         DefaultDecay,
		WindSpeed:     DefaultWindSpeed,
		WindDirection: DefaultWindDirection,
		CutoffFactor:  DefaultCutoffFactor,
	}
}

// check returns an error if the kernel parameters are physically
// meaningless.
func (k Kernel) check() error {
	if !(k.PlumeWidth > 0) {
		return fmt.Errorf("inversion: plume width %g must be positive", k.PlumeWidth)
	}
	if !(k.WindSpeed > 0) {
		return fmt.Errorf("inversion: wind speed %g must be positive", k.WindSpeed)
	}
	if k.Decay < 0 || math.IsNaN(k.Decay) {
		return fmt.Errorf("inversion: decay %g must be non-negative", k.Decay)
	}
	if !(k.CutoffFactor > 0) {
		return fmt.Errorf("inversion: cutoff factor %g must be positive", k.CutoffFactor)
	}
	return nil
}

// plumeCoords converts the displacement from the source to an
// observation into plume-aligned coordinates [km]. The rotated y axis
// points into the wind, so the plume extends toward negative y.
func (k Kernel) plumeCoords(srcLon, srcLat, lon, lat float64) (x, y float64) {
	xg := earthRadius * degToRad * (lon - srcLon) * math.Cos(srcLat*degToRad)
	yg := earthRadius * degToRad * (lat - srcLat)
	sinwd, coswd := math.Sincos(-k.WindDirection * degToRad)
	x = xg*coswd + yg*sinwd
	y = -xg*sinwd + yg*coswd
	return x, y
}

// sigma is the across-wind plume width at along-wind position y.
// Downwind of the source (y < 0) the width grows with distance, which
// has been shown to fit observed plumes better than a constant.
func (k Kernel) sigma(y float64) float64 {
	if y > 0 {
		return k.PlumeWidth
	}
	return math.Sqrt(k.PlumeWidth*k.PlumeWidth - 1.5*y)
}

// crosswind is the Gaussian diffusion term f.
func (k Kernel) crosswind(x, y float64) float64 {
	s := k.sigma(y)
	return math.Exp(-(x*x)/(2*s*s)) / (s * math.Sqrt(2*math.Pi))
}

// alongwind is the advection-decay term g. It peaks just downwind of
// the source and falls off with the e-folding length WindSpeed/Decay.
func (k Kernel) alongwind(y float64) float64 {
	a := k.Decay / k.WindSpeed
	w := k.PlumeWidth
	val := (a / 2) * math.Exp(a*(a*w*w+2*y)/2)
	return val * math.Erfc((a*w*w+y)/(math.Sqrt2*w))
}

// Value returns the kernel value for a unit source at (srcLon, srcLat)
// and an observation at (lon, lat), both in WGS84 degrees. It is
// exactly zero beyond CutoffFactor·PlumeWidth from the source.
func (k Kernel) Value(srcLon, srcLat, lon, lat float64) float64 {
	x, y := k.plumeCoords(srcLon, srcLat, lon, lat)
	if math.Hypot(x, y) > k.CutoffFactor*k.PlumeWidth {
		return 0
	}
	return k.crosswind(x, y) * k.alongwind(y)
}

// cutoffDegrees returns half-widths in degrees of a box guaranteed to
// contain the truncation radius around a point at the given latitude.
func (k Kernel) cutoffDegrees(lat float64) (dlon, dlat float64) {
	r := k.CutoffFactor * k.PlumeWidth
	dlat = r / (earthRadius * degToRad)
	coslat := math.Cos((math.Abs(lat) + dlat) * degToRad)
	if coslat < 1e-3 {
		coslat = 1e-3
	}
	dlon = r / (earthRadius * degToRad * coslat)
	return dlon, dlat
}
