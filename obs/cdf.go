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

package obs

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom"
	"github.com/spatialmodel/eocalc"
)

// FileSource reads pre-downloaded daily observation subsets from NetCDF
// files in a directory. The file for a day is named
// <Product>_<YYYYMMDD>.nc; each file holds one-dimensional variables of
// equal length giving the pixel longitudes, latitudes, and column
// densities.
type FileSource struct {
	// Dir is the directory holding the daily files.
	Dir string

	// Product is the data product name used in file names and in
	// error reports.
	Product string

	// LonVar, LatVar, and ConcVar name the NetCDF variables holding
	// pixel longitudes [degrees], latitudes [degrees], and vertical
	// column densities [mol m-2].
	LonVar, LatVar, ConcVar string
}

// fileName returns the path of the file holding the given day.
func (s *FileSource) fileName(day time.Time) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%s.nc", s.Product, day.Format("20060102")))
}

// Fetch reads the file for the given day and returns the observations
// within the bounding box of region. A missing file is reported as an
// eocalc.DataUnavailableError; pixels with NaN concentrations (fill
// values) are dropped.
func (s *FileSource) Fetch(ctx context.Context, region geom.Polygonal, day time.Time) ([]Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fname := s.fileName(day)
	f, err := os.Open(fname)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &eocalc.DataUnavailableError{Day: day, Source: s.Product, Err: err}
		}
		return nil, fmt.Errorf("obs: opening observation file: %v", err)
	}
	defer f.Close()
	ff, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("obs: reading observation file %s: %v", fname, err)
	}

	lon, err := readFloatVar(ff, s.LonVar)
	if err != nil {
		return nil, fmt.Errorf("obs: reading %s: %v", fname, err)
	}
	lat, err := readFloatVar(ff, s.LatVar)
	if err != nil {
		return nil, fmt.Errorf("obs: reading %s: %v", fname, err)
	}
	conc, err := readFloatVar(ff, s.ConcVar)
	if err != nil {
		return nil, fmt.Errorf("obs: reading %s: %v", fname, err)
	}
	if len(lat) != len(lon) || len(conc) != len(lon) {
		return nil, fmt.Errorf("obs: reading %s: variable lengths don't match: %d, %d, %d",
			fname, len(lon), len(lat), len(conc))
	}

	b := region.Bounds()
	dayUTC := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	var o []Observation
	for i, c := range conc {
		if math.IsNaN(c) {
			continue
		}
		if lon[i] < b.Min.X || lon[i] > b.Max.X || lat[i] < b.Min.Y || lat[i] > b.Max.Y {
			continue
		}
		o = append(o, Observation{Lon: lon[i], Lat: lat[i], Day: dayUTC, Conc: c})
	}
	return o, nil
}

// readFloatVar reads a one-dimensional floating point variable from a
// NetCDF file, converting any _FillValue entries to NaN.
func readFloatVar(nc *cdf.File, v string) ([]float64, error) {
	if len(nc.Header.Lengths(v)) == 0 {
		return nil, fmt.Errorf("variable %s is not in file", v)
	}
	r := nc.Reader(v, nil, nil)
	buf := r.Zero(-1)
	switch buf.(type) {
	case []float32, []float64:
	default:
		return nil, fmt.Errorf("variable %s is not floating point", v)
	}
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("variable %s: %v", v, err)
	}
	var data []float64
	switch b := buf.(type) {
	case []float64:
		data = b
	case []float32:
		data = make([]float64, len(b))
		for i, val := range b {
			data[i] = float64(val)
		}
	}
	if fvI := nc.Header.GetAttribute(v, "_FillValue"); fvI != nil {
		var fv float64
		switch f := fvI.(type) {
		case []float32:
			fv = float64(f[0])
		case []float64:
			fv = f[0]
		default:
			return nil, fmt.Errorf("invalid type for variable %s _FillValue: %T", v, fvI)
		}
		for i, d := range data {
			if d == fv {
				data[i] = math.NaN()
			}
		}
	}
	return data, nil
}
