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

import "fmt"

// Pollutant is an air pollutant whose surface emissions can be
// estimated.
type Pollutant int

const (
	NOx Pollutant = iota
	SO2
	NH3
	PM25
)

// Pollutants lists all pollutants in declaration order.
var Pollutants = []Pollutant{NOx, SO2, NH3, PM25}

func (p Pollutant) String() string {
	switch p {
	case NOx:
		return "NOx"
	case SO2:
		return "SO2"
	case NH3:
		return "NH3"
	case PM25:
		return "PM2_5"
	default:
		return fmt.Sprintf("Pollutant(%d)", int(p))
	}
}

// ParsePollutant converts a pollutant name as produced by String back
// to its constant.
func ParsePollutant(s string) (Pollutant, error) {
	for _, p := range Pollutants {
		if s == p.String() {
			return p, nil
		}
	}
	return -1, fmt.Errorf("eocalc: unknown pollutant %q", s)
}
