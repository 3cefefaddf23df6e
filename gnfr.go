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

// Sector is one of the fixed GNFR (Gridded Nomenclature For
// Reporting) emission sectors used for national and regional
// emission inventories.
type Sector int

const (
	PublicPower Sector = iota
	IndustrialComb
	SmallComb
	IndProcess
	Fugitive
	Solvents
	RoadRail
	Shipping
	OffRoadMob
	AviLTO
	CivilAviCruise
	OtherWasteDisp
	WasteWater
	WasteIncin
	AgriLivestock
	AgriOther
	AgriWastes
	Other
	Natural
	IntAviCruise
	Memo
)

// Sectors lists all GNFR sectors in reporting order.
var Sectors = []Sector{
	PublicPower, IndustrialComb, SmallComb, IndProcess, Fugitive,
	Solvents, RoadRail, Shipping, OffRoadMob, AviLTO, CivilAviCruise,
	OtherWasteDisp, WasteWater, WasteIncin, AgriLivestock, AgriOther,
	AgriWastes, Other, Natural, IntAviCruise, Memo,
}

var sectorNames = []string{
	"A_PublicPower", "B_IndustrialComb", "C_SmallComb", "D_IndProcess",
	"E_Fugitive", "F_Solvents", "G_RoadRail", "H_Shipping",
	"I_OffRoadMob", "J_AviLTO", "K_CivilAviCruise", "L_OtherWasteDisp",
	"M_WasteWater", "N_WasteIncin", "O_AgriLivestock", "P_AgriOther",
	"Q_AgriWastes", "R_Other", "S_Natural", "T_IntAviCruise", "z_Memo",
}

func (s Sector) String() string {
	if s < 0 || int(s) >= len(sectorNames) {
		return "invalid GNFR sector"
	}
	return sectorNames[s]
}

// GNFRRow holds one reporting row: an emission value [kt] and its
// lower and upper relative uncertainty [%].
type GNFRRow struct {
	Value float64 // kt
	Umin  float64 // percent
	Umax  float64 // percent
}

// GNFRTable is the sector-aggregated reporting artifact. Sectors that
// were not estimated are absent from Rows, which distinguishes "not
// estimated" from an estimated zero. The synthetic Totals row is
// always present once the table is filled.
type GNFRTable struct {
	Rows   map[Sector]GNFRRow `json:"rows"`
	Totals GNFRRow            `json:"Totals"`
}

// NewGNFRTable returns an empty table with every sector row
// undefined.
func NewGNFRTable() GNFRTable {
	return GNFRTable{Rows: make(map[Sector]GNFRRow, len(Sectors))}
}

// Defined reports whether the given sector row carries an estimate.
func (t GNFRTable) Defined(s Sector) bool {
	_, ok := t.Rows[s]
	return ok
}

// NewUnassignedGNFRTable builds the table for a method that does not
// resolve sectors: the entire estimate is attributed to the "Other"
// row and mirrored in Totals, and every remaining sector row stays
// undefined.
func NewUnassignedGNFRTable(value, umin, umax float64) GNFRTable {
	t := NewGNFRTable()
	row := GNFRRow{Value: value, Umin: umin, Umax: umax}
	t.Rows[Other] = row
	t.Totals = row
	return t
}
