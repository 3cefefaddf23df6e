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

import "testing"

func TestSectorString(t *testing.T) {
	cases := []struct {
		sector Sector
		want   string
	}{
		{PublicPower, "A_PublicPower"},
		{RoadRail, "G_RoadRail"},
		{Other, "R_Other"},
		{Memo, "z_Memo"},
		{Sector(-1), "invalid GNFR sector"},
		{Sector(1000), "invalid GNFR sector"},
	}
	for _, c := range cases {
		if got := c.sector.String(); got != c.want {
			t.Errorf("Sector(%d).String() = %q, want %q", c.sector, got, c.want)
		}
	}
	if len(Sectors) != 21 {
		t.Errorf("%d sectors, want 21", len(Sectors))
	}
}

// An estimated zero and a missing estimate are different things: only
// rows that were actually set count as defined.
func TestGNFRTableDefined(t *testing.T) {
	table := NewGNFRTable()
	for _, s := range Sectors {
		if table.Defined(s) {
			t.Errorf("new table: sector %s defined", s)
		}
	}
	table.Rows[Shipping] = GNFRRow{}
	if !table.Defined(Shipping) {
		t.Error("zero-valued row not defined")
	}
	if table.Defined(Natural) {
		t.Error("unset row defined")
	}
}

func TestNewUnassignedGNFRTable(t *testing.T) {
	table := NewUnassignedGNFRTable(42.5, 3, 7)
	want := GNFRRow{Value: 42.5, Umin: 3, Umax: 7}
	if table.Rows[Other] != want {
		t.Errorf("Other row = %+v, want %+v", table.Rows[Other], want)
	}
	if table.Totals != want {
		t.Errorf("Totals = %+v, want %+v", table.Totals, want)
	}
	for _, s := range Sectors {
		if s != Other && table.Defined(s) {
			t.Errorf("sector %s should be undefined", s)
		}
	}
}
