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

package temis

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ctessum/sparse"

	"github.com/spatialmodel/eocalc/grid"
)

const (
	// binWidth is the cell size of the global data grid [degrees].
	binWidth = 0.125

	// valuesPerRow is the number of values on one data line.
	valuesPerRow = 20

	// fieldWidth is the fixed width of one value on a data line.
	fieldWidth = 4
)

// ReadField reads one monthly mean emission density field in the
// TEMIS ASCII format, keeping the values that fall inside grid d.
//
// The format is line based: header lines are skipped until a line of
// the form "lat=<center>" opens a latitude band; the lines that
// follow each hold fixed-width integer values whose longitudes
// advance from -180° in steps of the bin width. Values are daily mean
// emission densities [kg km⁻² day⁻¹]; negative values mark missing
// data and read as zero.
//
// d must be aligned with the global data bins (a snapped grid with
// the bin cell size), so that file values map one to one onto cells.
func ReadField(r io.Reader, d *grid.Def) (*sparse.DenseArray, error) {
	if err := checkAligned(d); err != nil {
		return nil, err
	}
	field := sparse.ZerosDense(d.Ny, d.Nx)
	row := -1
	lon := 0.0
	bands := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "lat=") {
			center, err := strconv.ParseFloat(strings.TrimSpace(line[len("lat="):]), 64)
			if err != nil {
				return nil, fmt.Errorf("temis: parsing latitude line %q: %v", line, err)
			}
			// The line gives the band center, possibly rounded for
			// printing; binIndex snaps the south edge back onto the
			// bin grid.
			row = binIndex(center-binWidth/2, d.Y0, d.Ny)
			lon = -180
			bands++
			continue
		}
		if row < 0 || !isDataLine(line) {
			continue
		}
		for k := 0; k < valuesPerRow; k++ {
			end := (k + 1) * fieldWidth
			if end > len(line) {
				break
			}
			col := binIndex(lon+float64(k)*binWidth, d.X0, d.Nx)
			if col < 0 {
				continue
			}
			v, err := strconv.Atoi(strings.TrimSpace(line[k*fieldWidth : end]))
			if err != nil {
				return nil, fmt.Errorf("temis: parsing value %d of line %q: %v", k, line, err)
			}
			if v < 0 {
				v = 0
			}
			field.Set(float64(v), row, col)
		}
		lon += valuesPerRow * binWidth
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("temis: reading field: %v", err)
	}
	if bands == 0 {
		return nil, fmt.Errorf("temis: no latitude bands found")
	}
	return field, nil
}

// checkAligned verifies that the grid cells coincide with the global
// data bins.
func checkAligned(d *grid.Def) error {
	if d.Dx != binWidth || d.Dy != binWidth {
		return fmt.Errorf("temis: grid cell size %g×%g does not match the %g° data bins", d.Dx, d.Dy, binWidth)
	}
	if math.Abs(math.Remainder(d.X0, binWidth)) > 1e-9 ||
		math.Abs(math.Remainder(d.Y0, binWidth)) > 1e-9 {
		return fmt.Errorf("temis: grid origin (%g, %g) is not aligned with the %g° data bins", d.X0, d.Y0, binWidth)
	}
	return nil
}

// binIndex returns the bin index of the cell whose lower edge is at
// the given coordinate, or -1 if it is outside [origin, origin+n*bin).
// Rounding absorbs the limited precision of coordinates printed in
// the files.
func binIndex(edge, origin float64, n int) int {
	i := int(math.Round((edge - origin) / binWidth))
	if i < 0 || i >= n {
		return -1
	}
	return i
}

// isDataLine reports whether line starts with a fixed-width integer
// value, distinguishing data rows from header text.
func isDataLine(line string) bool {
	if len(line) < fieldWidth {
		return false
	}
	_, err := strconv.Atoi(strings.TrimSpace(line[:fieldWidth]))
	return err == nil
}
