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

package eocalcutil

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"github.com/tealeg/xlsx"

	"github.com/spatialmodel/eocalc"
)

// wgs84 is the projection definition written alongside output
// shapefiles. All calculation grids are in geographic coordinates.
const wgs84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["Degree",0.017453292519943295]]`

// cellParamNames are the built-in per-cell variables available to
// output variable expressions, in alphabetical order.
var cellParamNames = []string{"Area", "Emissions", "Missing", "Umax", "Umin", "Values"}

// cellParams returns the expression evaluation parameters for one
// grid cell. Integer counts are converted to float64 because that is
// the only numeric type the expression evaluator handles.
func cellParams(c *eocalc.EmissionsCell) map[string]interface{} {
	return map[string]interface{}{
		"Emissions": c.Emissions,
		"Area":      c.Area,
		"Umin":      c.Umin,
		"Umax":      c.Umax,
		"Values":    float64(c.Values),
		"Missing":   float64(c.Missing),
	}
}

// DefaultOutputVariables are the output variables written when the
// configuration does not specify any.
var DefaultOutputVariables = map[string]string{
	"Emissions": "Emissions",
	"Density":   "density(Emissions, Area)",
	"Umin":      "Umin",
	"Umax":      "Umax",
	"Values":    "Values",
	"Missing":   "Missing",
}

// Outputter writes calculation results to files.
//
// outputVariables maps the names of the variables for which data
// should be written to expressions that define how the requested
// data should be calculated. These expressions can utilize the
// built-in per-cell variables (Emissions [kt], Area [km²], Umin and
// Umax [%], Values and Missing [days]), other user-defined output
// variables, and functions.
//
// Functions are defined in the outputFunctions variable.
type Outputter struct {
	fileName        string
	outputVariables map[string]string
	outputFunctions map[string]govaluate.ExpressionFunction
	expressions     map[string]*govaluate.EvaluableExpression

	// varNames holds the output variable names in the order the
	// columns are written.
	varNames []string
}

// NewOutputter initializes a new Outputter holder and adds a set of
// default output functions. Default functions include:
//
// 'exp(x)' which applies the exponential function e^x.
//
// 'density(mass, area)' which converts an emission mass [kt] and an
// area [km²] to an emission density [kt km⁻²], returning zero for
// zero-area cells.
//
// If outputVariables is empty, DefaultOutputVariables is used.
func NewOutputter(fileName string, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	defaultOutputFuncs := map[string]govaluate.ExpressionFunction{
		"exp": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("eocalcutil: got %d arguments for function 'exp', but needs 1", len(arg))
			}
			return (float64)(math.Exp(arg[0].(float64))), nil
		},
		"density": func(args ...interface{}) (interface{}, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("eocalcutil: got %d arguments for function 'density', but needs 2", len(args))
			}
			area := args[1].(float64)
			if area == 0 {
				return 0., nil
			}
			return (float64)(args[0].(float64) / area), nil
		},
	}

	for key, val := range outputFunctions {
		defaultOutputFuncs[key] = val
	}

	o := Outputter{
		fileName:        fileName,
		outputVariables: make(map[string]string, len(outputVariables)),
		outputFunctions: defaultOutputFuncs,
	}
	if len(outputVariables) == 0 {
		outputVariables = DefaultOutputVariables
	}
	for key, val := range outputVariables {
		o.outputVariables[key] = val
	}

	if err := o.resolveDerivatives(); err != nil {
		return nil, err
	}
	if err := checkOutputNames(o.outputVariables); err != nil {
		return nil, err
	}

	o.expressions = make(map[string]*govaluate.EvaluableExpression, len(o.outputVariables))
	for key, val := range o.outputVariables {
		expression, err := govaluate.NewEvaluableExpressionWithFunctions(val, o.outputFunctions)
		if err != nil {
			return nil, fmt.Errorf("eocalcutil: output variable %s: %v", key, err)
		}
		if err := checkCellVars(expression.Vars()...); err != nil {
			return nil, err
		}
		o.expressions[key] = expression
		o.varNames = append(o.varNames, key)
	}
	sort.Strings(o.varNames)

	return &o, nil
}

// removeDuplicates removes all duplicated strings from a slice,
// returning a slice that contains only unique strings.
func removeDuplicates(s []string) []string {
	result := make([]string, 0, len(s))
	seen := make(map[string]string)
	for _, val := range s {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = val
		}
	}
	return result
}

// resolveDerivatives rewrites the output variable expressions so
// that any user-defined output variable appearing inside another
// expression is replaced by the parenthesized expression that
// defines it. Only whole variable names are replaced: 'Area' does
// not match inside a longer name such as 'CellArea'.
func (o *Outputter) resolveDerivatives() error {
	// Each pass inlines at least one definition, so more passes than
	// variables means the definitions form a cycle.
	for pass := 0; pass <= len(o.outputVariables); pass++ {
		replaced := false
		for key, val := range o.outputVariables {
			expression, err := govaluate.NewEvaluableExpressionWithFunctions(val, o.outputFunctions)
			if err != nil {
				return fmt.Errorf("eocalcutil: output variable %s: %v", key, err)
			}
			for _, uniqueVar := range removeDuplicates(expression.Vars()) {
				def, ok := o.outputVariables[uniqueVar]
				if !ok || def == uniqueVar || uniqueVar == key {
					continue
				}
				regx, err := regexp.Compile(`\b` + regexp.QuoteMeta(uniqueVar) + `\b`)
				if err != nil {
					return fmt.Errorf("eocalcutil: output variable %s: %v", key, err)
				}
				o.outputVariables[key] = regx.ReplaceAllString(o.outputVariables[key], "("+def+")")
				replaced = true
			}
		}
		if !replaced {
			return nil
		}
	}
	return fmt.Errorf("eocalcutil: output variable definitions form a cycle")
}

// checkCellVars checks whether the given variables are available as
// per-cell model variables.
func checkCellVars(vars ...string) error {
	for _, v := range vars {
		i := sort.SearchStrings(cellParamNames, v)
		if i == len(cellParamNames) || cellParamNames[i] != v {
			return fmt.Errorf("eocalcutil: undefined variable name '%s'", v)
		}
	}
	return nil
}

// checkOutputNames checks (1) if any output variable names exceed 10
// characters and (2) if any output variable names include characters
// that are unsupported in shapefile field names.
func checkOutputNames(o map[string]string) error {
	for key := range o {
		long := len(key) > 10
		noCharError, err := regexp.MatchString("^[A-Za-z]\\w*$", key)
		if err != nil {
			panic(err)
		}
		if long && !noCharError {
			return fmt.Errorf("eocalcutil: output variable name '%s' exceeds 10 characters and includes unsupported character(s)", key)
		} else if long {
			return fmt.Errorf("eocalcutil: output variable name '%s' exceeds 10 characters", key)
		} else if !noCharError {
			return fmt.Errorf("eocalcutil: output variable name '%s' includes unsupported characters", key)
		}
	}
	return nil
}

// results evaluates the output variable expressions for every cell
// of the grid.
func (o *Outputter) results(g *eocalc.EmissionsGrid) (map[string][]float64, error) {
	results := make(map[string][]float64, len(o.expressions))
	for v := range o.expressions {
		results[v] = make([]float64, len(g.Cells))
	}
	for i, c := range g.Cells {
		params := cellParams(c)
		for v, expression := range o.expressions {
			result, err := expression.Evaluate(params)
			if err != nil {
				return nil, fmt.Errorf("eocalcutil: evaluating output variable %s: %v", v, err)
			}
			val, ok := result.(float64)
			if !ok {
				return nil, fmt.Errorf("eocalcutil: output variable %s: result %v is not a number", v, result)
			}
			results[v][i] = val
		}
	}
	return results, nil
}

// Output writes the evaluated output variables for every grid cell
// to a shapefile, one field per variable in alphabetical order, with
// an accompanying .prj file.
func (o *Outputter) Output(g *eocalc.EmissionsGrid) error {
	results, err := o.results(g)
	if err != nil {
		return err
	}

	fields := make([]goshp.Field, len(o.varNames))
	for i, v := range o.varNames {
		fields[i] = goshp.FloatField(v, 14, 8)
	}

	// remove extension and replace it with .shp
	fileBase := strings.TrimSuffix(o.fileName, filepath.Ext(o.fileName))
	o.fileName = fileBase + ".shp"
	shape, err := shp.NewEncoderFromFields(o.fileName, goshp.POLYGON, fields...)
	if err != nil {
		return fmt.Errorf("eocalcutil: creating output shapefile: %v", err)
	}
	for i, c := range g.Cells {
		outFields := make([]interface{}, len(o.varNames))
		for j, v := range o.varNames {
			outFields[j] = results[v][i]
		}
		if err := shape.EncodeFields(c.Geom, outFields...); err != nil {
			return fmt.Errorf("eocalcutil: writing output shapefile: %v", err)
		}
	}
	shape.Close()

	f, err := os.Create(fileBase + ".prj")
	if err != nil {
		return fmt.Errorf("eocalcutil: creating output prj file: %v", err)
	}
	fmt.Fprint(f, wgs84)
	return f.Close()
}

type geoJSONFeature struct {
	Type       string             `json:"type"`
	Geometry   *geojson.Geometry  `json:"geometry"`
	Properties map[string]float64 `json:"properties"`
}

type geoJSONFeatureCollection struct {
	Type     string            `json:"type"`
	Features []*geoJSONFeature `json:"features"`
}

// OutputGeoJSON writes the evaluated output variables for every grid
// cell to a GeoJSON feature collection.
func (o *Outputter) OutputGeoJSON(g *eocalc.EmissionsGrid, fileName string) error {
	results, err := o.results(g)
	if err != nil {
		return err
	}
	fc := geoJSONFeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]*geoJSONFeature, len(g.Cells)),
	}
	for i, c := range g.Cells {
		gj, err := geojson.ToGeoJSON(flattenPolygon(c.Geom))
		if err != nil {
			return fmt.Errorf("eocalcutil: encoding grid cell %d: %v", i, err)
		}
		props := make(map[string]float64, len(o.varNames))
		for _, v := range o.varNames {
			props[v] = results[v][i]
		}
		fc.Features[i] = &geoJSONFeature{
			Type:       "Feature",
			Geometry:   gj,
			Properties: props,
		}
	}
	b, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("eocalcutil: encoding GeoJSON output: %v", err)
	}
	if err := ioutil.WriteFile(fileName, b, 0644); err != nil {
		return fmt.Errorf("eocalcutil: writing GeoJSON output: %v", err)
	}
	return nil
}

// flattenPolygon merges multi-polygon geometries, which the GeoJSON
// encoder does not handle, into a single polygon.
func flattenPolygon(p geom.Polygonal) geom.Geom {
	if mp, ok := p.(geom.MultiPolygon); ok {
		var poly geom.Polygon
		for _, pp := range mp {
			poly = append(poly, pp...)
		}
		return poly
	}
	return p
}

// WriteTotals writes a sector totals table to an xlsx workbook, one
// row per GNFR sector in reporting order plus a Totals row. Sectors
// that were not estimated keep blank value cells, which
// distinguishes them from estimated zeros.
func WriteTotals(t eocalc.GNFRTable, fileName string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("GNFR")
	if err != nil {
		return fmt.Errorf("eocalcutil: creating totals sheet: %v", err)
	}
	header := sheet.AddRow()
	for _, h := range []string{"GNFR sector", "Emissions [kt]", "Umin [%]", "Umax [%]"} {
		header.AddCell().Value = h
	}
	writeRow := func(name string, r eocalc.GNFRRow, defined bool) {
		row := sheet.AddRow()
		row.AddCell().Value = name
		if !defined {
			return
		}
		row.AddCell().SetFloat(r.Value)
		row.AddCell().SetFloat(r.Umin)
		row.AddCell().SetFloat(r.Umax)
	}
	for _, s := range eocalc.Sectors {
		writeRow(s.String(), t.Rows[s], t.Defined(s))
	}
	writeRow("Totals", t.Totals, true)
	if err := file.Save(fileName); err != nil {
		return fmt.Errorf("eocalcutil: writing totals to %s: %v", fileName, err)
	}
	return nil
}
