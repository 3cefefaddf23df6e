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
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/spatialmodel/eocalc"
	"github.com/spatialmodel/eocalc/inversion"
	"github.com/spatialmodel/eocalc/temis"
)

// MethodConfig holds the tunable parameters of the calculation
// methods, read from a TOML file over the built-in defaults.
type MethodConfig struct {
	// MultiSource configures the "multisource" method.
	MultiSource *inversion.MultiSource `toml:"multisource"`

	// TEMIS configures the "temis" method.
	TEMIS *temis.MonthlyMean `toml:"temis"`

	// Observations says where the multi-source method reads and
	// caches its daily observation subsets.
	Observations ObservationConfig `toml:"observations"`
}

// ObservationConfig locates the daily observation subsets used by
// the observation-driven methods.
type ObservationConfig struct {
	// DataDir is the directory holding the daily subset files.
	DataDir string `toml:"data_dir"`

	// CacheLoc specifies where loaded months are cached: "" for
	// memory only, a directory path, an HTTP address, or a Google
	// Cloud Storage bucket (gs://bucketname/subdir).
	CacheLoc string `toml:"cache_loc"`

	// MaxCacheEntries is the maximum number of months to hold in
	// the memory cache; zero means no limit.
	MaxCacheEntries int `toml:"max_cache_entries"`
}

// DefaultMethodConfig returns the built-in method parameters.
func DefaultMethodConfig() *MethodConfig {
	return &MethodConfig{
		MultiSource: inversion.NewMultiSource(),
		TEMIS:       temis.NewMonthlyMean(),
		Observations: ObservationConfig{
			DataDir: inversion.DefaultDataDir,
		},
	}
}

// ReadMethodConfig reads the TOML file at path over the built-in
// method parameter defaults; an empty path keeps the defaults.
func ReadMethodConfig(path string) (*MethodConfig, error) {
	c := DefaultMethodConfig()
	if path == "" {
		return c, nil
	}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, fmt.Errorf("eocalcutil: reading method configuration %s: %v", path, err)
	}
	return c, nil
}

// Calculator builds the named calculation method using the held
// parameters and logger. Methods without tunable parameters come
// from the calculator registry.
func (c *MethodConfig) Calculator(method string, log logrus.FieldLogger) (eocalc.Calculator, error) {
	switch method {
	case "multisource":
		ms := c.MultiSource
		ms.Observations = inversion.FileObservations(os.ExpandEnv(c.Observations.DataDir))
		for _, mc := range ms.Observations {
			mc.CacheLoc = os.ExpandEnv(c.Observations.CacheLoc)
			mc.MaxCacheEntries = c.Observations.MaxCacheEntries
			mc.Log = log
		}
		ms.Log = log
		return ms, nil
	case "temis":
		t := c.TEMIS
		t.DataDir = os.ExpandEnv(t.DataDir)
		t.CacheLoc = os.ExpandEnv(t.CacheLoc)
		t.Log = log
		return t, nil
	default:
		return eocalc.New(method)
	}
}

// ReadRegion returns the calculation region polygon represented by
// the given GeoJSON file.
func ReadRegion(regionGeoJSONFile string) (geom.Polygon, error) {
	if regionGeoJSONFile == "" {
		return nil, fmt.Errorf("eocalcutil: no calculation region specified; set the Region configuration variable to a GeoJSON file")
	}
	f, err := os.Open(os.ExpandEnv(regionGeoJSONFile))
	if err != nil {
		return nil, fmt.Errorf("eocalcutil: opening region file: %v", err)
	}
	defer f.Close()
	b, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("eocalcutil: reading region file: %v", err)
	}
	j, err := geojson.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("eocalcutil: decoding region GeoJSON: %v", err)
	}
	var region geom.Polygon
	switch rgn := j.(type) {
	case geom.Polygon:
		region = rgn
	case geom.MultiPolygon:
		for _, p := range rgn {
			region = append(region, p...)
		}
	default:
		return nil, fmt.Errorf("eocalcutil: invalid region geometry type %T", j)
	}
	return region, nil
}

// checkOutputFile makes sure that the output file's directory
// exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`eocalcutil: you need to specify an output file configuration variable (for example: OutputFile="eocalc_output.shp")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("eocalcutil: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkOutputVars removes end lines and expands environment
// variables in the output variables. An empty map selects the
// default output variables downstream.
func checkOutputVars(vars map[string]string) map[string]string {
	o := make(map[string]string, len(vars))
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		o[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return o
}

// getStringMapString returns a map[string]string from a viper
// configuration, accounting for the fact that it might be a json
// object if it was set from a command line argument.
func getStringMapString(varName string, cfg *viper.Viper) map[string]string {
	i := cfg.Get(varName)
	switch i.(type) {
	case map[string]string:
		return i.(map[string]string)
	case map[string]interface{}:
		return cast.ToStringMapString(i)
	case string:
		b := bytes.NewBuffer(([]byte)(i.(string)))
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			panic(err)
		}
		return o
	default:
		panic(fmt.Errorf("eocalcutil: invalid type for configuration variable %s: %#v", varName, i))
	}
}

// Logger builds the logger configured by the LogLevel, LogJSON and
// LogFile configuration variables.
func Logger(cfg *viper.Viper) (*logrus.Logger, error) {
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.GetString("LogLevel"))
	if err != nil {
		return nil, fmt.Errorf("eocalcutil: parsing LogLevel: %v", err)
	}
	log.Level = level
	if cfg.GetBool("LogJSON") {
		log.Formatter = new(logrus.JSONFormatter)
	}
	if f := os.ExpandEnv(cfg.GetString("LogFile")); f != "" {
		w, err := os.OpenFile(f, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("eocalcutil: opening LogFile: %v", err)
		}
		log.Out = w
	}
	return log, nil
}
