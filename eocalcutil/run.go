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
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/eocalc"
	"github.com/spatialmodel/eocalc/grid"
)

// progressInterval is how often a running calculation reports its
// progress to the log.
const progressInterval = 10 * time.Second

// Run executes one emission calculation and writes the output files.
//
// method selects the calculation method, built from the parameters in
// mc. regionFile is the path of a GeoJSON file holding the region
// polygon; start and end bound the calculation period (YYYY-MM-DD,
// both inclusive); pollutant names the pollutant to estimate.
//
// The gridded result is written to the shapefile outputFile with one
// field per entry in outputVariables, and additionally to geoJSONFile
// and the GNFR totals workbook totalsFile when those are nonempty.
func Run(log *logrus.Logger, method, regionFile, start, end, pollutant string,
	mc *MethodConfig, outputFile, geoJSONFile, totalsFile string,
	outputVariables map[string]string) error {

	calc, err := mc.Calculator(method, log)
	if err != nil {
		return err
	}
	region, err := ReadRegion(regionFile)
	if err != nil {
		return err
	}
	period, err := eocalc.NewDateRange(start, end)
	if err != nil {
		return err
	}
	pol, err := eocalc.ParsePollutant(pollutant)
	if err != nil {
		return err
	}
	// Create the outputter before running so that a misconfigured
	// output expression fails fast instead of after the calculation.
	o, err := NewOutputter(outputFile, outputVariables, nil)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"method":    method,
		"pollutant": pol,
		"start":     period.Start().Format("2006-01-02"),
		"end":       period.End().Format("2006-01-02"),
	}).Info("starting calculation")

	done := make(chan struct{})
	go reportProgress(calc, log, done)
	result, err := calc.Run(context.Background(), region, period, pol)
	close(done)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"cells": len(result.Grid.Cells),
		"total": result.Totals.Totals.Value,
		"umin":  result.Totals.Totals.Umin,
		"umax":  result.Totals.Totals.Umax,
	}).Info("calculation finished")

	if err := o.Output(result.Grid); err != nil {
		return err
	}
	if geoJSONFile != "" {
		if err := o.OutputGeoJSON(result.Grid, geoJSONFile); err != nil {
			return err
		}
	}
	if totalsFile != "" {
		if err := WriteTotals(result.Totals, totalsFile); err != nil {
			return err
		}
	}
	return nil
}

// reportProgress logs the status of a running calculation until done
// is closed.
func reportProgress(calc eocalc.Calculator, log logrus.FieldLogger, done chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			log.WithFields(logrus.Fields{
				"status":   calc.Status(),
				"progress": calc.Progress(),
			}).Info("calculation running")
		}
	}
}

// Grid builds the regular calculation grid covering the region in
// regionFile at the given resolution [degrees] and writes it to a
// shapefile in directory outDir.
func Grid(log *logrus.Logger, regionFile, outDir string, resolution float64) error {
	region, err := ReadRegion(regionFile)
	if err != nil {
		return err
	}
	d, err := grid.NewRegular("eocalc", region.Bounds(), resolution, resolution, true)
	if err != nil {
		return err
	}
	if err := d.WriteShp(outDir); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"cells": len(d.Cells),
		"dir":   outDir,
	}).Info("calculation grid written")
	return nil
}
