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

// Package grid generates the regular spatial grids that emission
// estimates are calculated on, and measures geographic geometries in
// an equal-area projection.
package grid

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/index/rtree"
	goshp "github.com/jonas-p/go-shp"
)

// Def specifies a regular rectangular grid. Cells are ordered
// row-major from the bottom-left corner: bottom to top, then left to
// right within each row. The order is stable across runs; solution
// vectors index cells by it.
type Def struct {
	Name   string
	Nx, Ny int
	Dx, Dy float64
	X0, Y0 float64
	Cells  []*Cell
	Extent geom.Polygon
	rtree  *rtree.Rtree
}

// Cell is an individual grid cell.
type Cell struct {
	geom.Polygonal
	Row, Col int

	// Index is the cell's position in Def.Cells.
	Index int
}

// Center returns the cell's center point.
func (c *Cell) Center() geom.Point {
	b := c.Bounds()
	return geom.Point{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
}

// cellCount returns ceil(extent/size) cells, treating near-integer
// ratios as exact so that an extent that is an exact multiple of the
// cell size does not gain a spurious extra cell from float rounding.
// Degenerate extents still get one cell.
func cellCount(extent, size float64) int {
	if extent <= 0 {
		return 1
	}
	ratio := extent / size
	if math.Abs(ratio-math.Round(ratio)) < 1e-9 {
		n := int(math.Round(ratio))
		if n < 1 {
			return 1
		}
		return n
	}
	return int(math.Ceil(ratio))
}

// NewRegular creates a regular grid covering the given bounds with
// cells of size w×h. If snap is false, the grid's lower-left corner
// is the bounds' lower-left corner exactly; if true, the lower-left
// corner moves down and left to the nearest multiple of (w, h) and
// the upper-right corner extends likewise, so cell edges fall on
// global grid lines independent of the exact bounds.
func NewRegular(name string, b *geom.Bounds, w, h float64, snap bool) (*Def, error) {
	if !(w > 0) || !(h > 0) {
		return nil, fmt.Errorf("grid: cell size must be positive, got %g×%g", w, h)
	}
	if b == nil || b.Empty() {
		return nil, fmt.Errorf("grid: empty bounds")
	}
	x0, y0 := b.Min.X, b.Min.Y
	x1, y1 := b.Max.X, b.Max.Y
	if snap {
		x0 = math.Floor(x0/w) * w
		y0 = math.Floor(y0/h) * h
		x1 = math.Ceil(x1/w) * w
		y1 = math.Ceil(y1/h) * h
	}
	d := &Def{
		Name: name,
		Nx:   cellCount(x1-x0, w),
		Ny:   cellCount(y1-y0, h),
		Dx:   w, Dy: h,
		X0: x0, Y0: y0,
		rtree: rtree.NewTree(25, 50),
	}
	d.Cells = make([]*Cell, 0, d.Nx*d.Ny)
	for iy := 0; iy < d.Ny; iy++ {
		for ix := 0; ix < d.Nx; ix++ {
			x := d.X0 + float64(ix)*w
			y := d.Y0 + float64(iy)*h
			cell := &Cell{
				Row: iy, Col: ix,
				Index: len(d.Cells),
				Polygonal: geom.Polygon{{
					{X: x, Y: y}, {X: x + w, Y: y},
					{X: x + w, Y: y + h}, {X: x, Y: y + h}, {X: x, Y: y}}},
			}
			d.rtree.Insert(cell)
			d.Cells = append(d.Cells, cell)
		}
	}
	d.Extent = geom.Polygon{{
		{X: x0, Y: y0},
		{X: x0 + w*float64(d.Nx), Y: y0},
		{X: x0 + w*float64(d.Nx), Y: y0 + h*float64(d.Ny)},
		{X: x0, Y: y0 + h*float64(d.Ny)}, {X: x0, Y: y0}}}
	return d, nil
}

// Len returns the number of cells.
func (d *Def) Len() int { return len(d.Cells) }

// CellIndex returns the index of the cell containing point p by
// arithmetic binning, or -1 if p is outside the grid. Points on the
// east or north outer edge are outside.
func (d *Def) CellIndex(p geom.Point) int {
	ix := int(math.Floor((p.X - d.X0) / d.Dx))
	iy := int(math.Floor((p.Y - d.Y0) / d.Dy))
	if ix < 0 || ix >= d.Nx || iy < 0 || iy >= d.Ny {
		return -1
	}
	return iy*d.Nx + ix
}

// CellsIntersecting returns the cells whose extent overlaps b, in
// spatial-index order.
func (d *Def) CellsIntersecting(b *geom.Bounds) []*Cell {
	hits := d.rtree.SearchIntersect(b)
	cells := make([]*Cell, len(hits))
	for i, h := range hits {
		cells[i] = h.(*Cell)
	}
	return cells
}

// Clipped is a grid cell intersected with a region polygon.
type Clipped struct {
	Cell *Cell
	Geom geom.Polygonal
	Area float64 // km²
}

// Clip intersects every cell with the region, dropping cells that do
// not overlap it, and measures each clipped cell's area in an
// equal-area projection. Results keep grid order.
func (d *Def) Clip(region geom.Polygonal) ([]Clipped, error) {
	rb := region.Bounds()
	out := make([]Clipped, 0, len(d.Cells))
	for _, c := range d.Cells {
		if !c.Bounds().Overlaps(rb) {
			continue
		}
		isect := c.Polygonal.Intersection(region)
		if len(isect) == 0 {
			continue
		}
		a, err := AreaKm2(isect)
		if err != nil {
			return nil, fmt.Errorf("grid: measuring clipped cell (%d,%d): %v", c.Row, c.Col, err)
		}
		if a <= 0 {
			continue
		}
		out = append(out, Clipped{Cell: c, Geom: isect, Area: a})
	}
	return out, nil
}

// WriteShp writes the grid cells to a shapefile in directory outdir,
// named after the grid.
func (d *Def) WriteShp(outdir string) error {
	name := d.Name
	if name == "" {
		name = "grid"
	}
	for _, ext := range []string{".shp", ".prj", ".dbf", ".shx"} {
		os.Remove(filepath.Join(outdir, name+ext))
	}
	fields := []goshp.Field{
		goshp.NumberField("row", 10),
		goshp.NumberField("col", 10),
	}
	shpf, err := shp.NewEncoderFromFields(filepath.Join(outdir, name+".shp"),
		goshp.POLYGON, fields...)
	if err != nil {
		return fmt.Errorf("grid: creating shapefile: %v", err)
	}
	for _, cell := range d.Cells {
		if err := shpf.EncodeFields(cell.Polygonal, cell.Row, cell.Col); err != nil {
			return fmt.Errorf("grid: encoding cell (%d,%d): %v", cell.Row, cell.Col, err)
		}
	}
	shpf.Close()
	return nil
}
