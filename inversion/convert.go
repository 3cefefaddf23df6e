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

	"github.com/ctessum/unit"

	"github.com/spatialmodel/eocalc"
)

// Atomic masses [kg/mol].
const (
	xmH = 1.00790e-3
	xmN = 14.00670e-3
	xmS = 32.06400e-3
	xmO = 15.99940e-3
)

// molarMass gives the molar mass of the column species observed for
// each pollutant [kg/mol]. NOx columns are retrieved as NO2.
var molarMass = map[eocalc.Pollutant]float64{
	eocalc.NOx: xmN + 2*xmO,
	eocalc.SO2: xmS + 2*xmO,
	eocalc.NH3: xmN + 3*xmH,
}

// mole is the dimension for amount of substance, which the unit
// package does not predefine.
var mole = unit.NewDimension("mole")

const (
	m2PerKm2  = 1.0e6
	hoursYear = 365. * 24.
	secsHour  = 3600.
)

// ConversionFactor returns the factor turning a fitted column density
// coefficient [mol m-2] into an emission density [kg km-2 yr-1]:
// steady state relates the column to the emission rate through the
// decay lifetime, so
//
//	density = coeff · decay [1/h] · 1e6 [m²/km²] · M [kg/mol] · 365·24 [h/yr].
//
// The dimension algebra is verified with the unit package; a pollutant
// without a molar mass (particulate matter) is not convertible and
// returns an error.
func ConversionFactor(pol eocalc.Pollutant, decay float64) (float64, error) {
	m, ok := molarMass[pol]
	if !ok {
		return 0, fmt.Errorf("inversion: no molar mass for pollutant %v", pol)
	}
	if decay < 0 {
		return 0, fmt.Errorf("inversion: decay %g must be non-negative", decay)
	}
	// Column [mol/m²] times decay [1/s] times molar mass [kg/mol]
	// must come out as a mass flux density [kg m-2 s-1].
	flux := unit.Mul(
		unit.New(1, unit.Dimensions{mole: 1, unit.LengthDim: -2}),
		unit.New(decay/secsHour, unit.Dimensions{unit.TimeDim: -1}),
		unit.New(m, unit.Dimensions{unit.MassDim: 1, mole: -1}),
	)
	if err := flux.Check(unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -2, unit.TimeDim: -1}); err != nil {
		return 0, fmt.Errorf("inversion: conversion factor: %v", err)
	}
	return decay * m2PerKm2 * m * hoursYear, nil
}

// MassKt returns the mass emitted over a period [kt] by a cell with
// the given emission density [kg km-2 yr-1] and area [km²].
func MassKt(density, areaKm2 float64, days int) float64 {
	return density * areaKm2 * float64(days) / 365. * 1e-6
}
