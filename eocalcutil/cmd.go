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

// Package eocalcutil holds the command line interface of the eocalc
// emission calculation engine and the configuration and output
// plumbing it is built from.
package eocalcutil

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lnashier/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/spatialmodel/eocalc"
	"github.com/spatialmodel/eocalc/inversion"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to eocalc.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel sets the verbosity of diagnostic messages: one of
              debug, info, warning, or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogJSON",
			usage: `
              LogJSON specifies whether diagnostic messages should be
              formatted as JSON instead of plain text.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path of a file to append diagnostic messages
              to. The default is to write them to standard error.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Method",
			usage: `
              Method selects the emission calculation method. Use the
              'methods' command to list the available methods.`,
			shorthand:  "m",
			defaultVal: "multisource",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "MethodConfig",
			usage: `
              MethodConfig is the path of a TOML file holding tunable
              method parameters. Parameters that are not specified keep
              their built-in defaults.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Region",
			usage: `
              Region is the path of a GeoJSON file holding the polygon of
              the region to calculate emissions for, in geographic
              coordinates.`,
			shorthand:  "r",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), gridCmd.Flags()},
		},
		{
			name: "Period.Start",
			usage: `
              Period.Start is the first day of the calculation period
              (inclusive), in YYYY-MM-DD format.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Period.End",
			usage: `
              Period.End is the last day of the calculation period
              (inclusive), in YYYY-MM-DD format.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Pollutant",
			usage: `
              Pollutant is the pollutant to estimate emissions for: one of
              NOx, SO2, NH3, or PM2_5.`,
			shorthand:  "p",
			defaultVal: "NOx",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path of the shapefile the gridded
              emissions are written to.`,
			shorthand:  "o",
			defaultVal: "eocalc_output.shp",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputGeoJSON",
			usage: `
              OutputGeoJSON is the path of a GeoJSON file to additionally
              write the gridded emissions to. No GeoJSON output is
              written if it is empty.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "TotalsFile",
			usage: `
              TotalsFile is the path of an xlsx workbook to write the
              GNFR sector totals table to. No totals workbook is written
              if it is empty.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies which variables should be written
              to the output files, as a mapping from field names to
              expressions over the built-in per-cell variables Emissions,
              Area, Umin, Umax, Values, and Missing.`,
			defaultVal: DefaultOutputVariables,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "GridRes",
			usage: `
              GridRes is the cell size [degrees] of the calculation grid
              written by the grid command.`,
			defaultVal: inversion.DefaultResolution,
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "GridDir",
			usage: `
              GridDir is the directory the grid command writes the
              calculation grid shapefile to.`,
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("EOCALC")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(gridCmd)
	Root.AddCommand(methodsCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("eocalc: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "eocalc",
	Short: "Estimate surface emissions from satellite observations.",
	Long: `eocalc estimates surface pollutant emissions from satellite-derived
atmospheric column observations. Use the subcommands specified below
to access the functionality.

Refer to the subcommand documentation for configuration options and default
settings. Configuration can be changed by using a configuration file (and
providing the path to the file using the --config flag), by using
command-line arguments, or by setting environment variables in the format
'EOCALC_var' where 'var' is the name of the variable to be set. Many
configuration variables are additionally allowed to contain environment
variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of eocalc.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("eocalc v%s\n", eocalc.Version)
	},
	DisableAutoGenTag: true,
}

// runCmd runs an emission calculation.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an emission calculation.",
	Long: `run estimates emissions of the configured pollutant over the configured
region and period using the selected calculation method, and writes the
result to the configured output files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := Logger(Cfg)
		if err != nil {
			return err
		}
		mc, err := ReadMethodConfig(Cfg.GetString("MethodConfig"))
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		outputVars := checkOutputVars(getStringMapString("OutputVariables", Cfg))
		return Run(
			log,
			Cfg.GetString("Method"),
			Cfg.GetString("Region"),
			Cfg.GetString("Period.Start"),
			Cfg.GetString("Period.End"),
			Cfg.GetString("Pollutant"),
			mc,
			outputFile,
			Cfg.GetString("OutputGeoJSON"),
			Cfg.GetString("TotalsFile"),
			outputVars)
	},
	DisableAutoGenTag: true,
}

// gridCmd writes the calculation grid for a region without running a
// calculation.
var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Write the calculation grid for a region.",
	Long: `grid builds the regular calculation grid covering the configured region
at the configured resolution and writes it to a shapefile, so that the
grid an emission calculation would work on can be inspected beforehand.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := Logger(Cfg)
		if err != nil {
			return err
		}
		return Grid(
			log,
			Cfg.GetString("Region"),
			Cfg.GetString("GridDir"),
			Cfg.GetFloat64("GridRes"))
	},
	DisableAutoGenTag: true,
}

// methodsCmd lists the registered calculation methods.
var methodsCmd = &cobra.Command{
	Use:   "methods",
	Short: "List the available calculation methods.",
	Long: `methods lists the registered emission calculation methods together
with the pollutants and date range each one supports.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range eocalc.Methods() {
			c, err := eocalc.New(name)
			if err != nil {
				return err
			}
			var pols []string
			for _, pol := range eocalc.Pollutants {
				if c.Supports(pol) {
					pols = append(pols, pol.String())
				}
			}
			cmd.Printf("%s: pollutants %v, dates %s through %s\n",
				name, pols,
				c.EarliestStartDate().Format("2006-01-02"),
				c.LatestEndDate().Format("2006-01-02"))
		}
		return nil
	},
	DisableAutoGenTag: true,
}
