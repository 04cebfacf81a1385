// Package config holds the run configuration: the sectioned parameter file
// read at startup and handed to the simulation constructor as an explicit
// value.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/spf13/viper"
)

// Thickness advection schemes.
const (
	HAdvecCentered = 1 // centered face-average flux
	HAdvecUpwind   = 2 // first-order upwind flux
)

// Elliptic solver selections for the barotropic pressure solve.
const (
	SolverSOR = "sor"
	SolverCG  = "cg"
)

// Numerics holds the [numerics] section.
type Numerics struct {
	AU             float64   `json:"au"`
	KH             []float64 `json:"kh"`
	KV             float64   `json:"kv"`
	AR             float64   `json:"ar"`
	BotDrag        float64   `json:"botDrag"`
	DT             float64   `json:"dt"`
	Slip           float64   `json:"slip"`
	NIter0         int       `json:"niter0"`
	NTimeSteps     int       `json:"nTimeSteps"`
	DumpFreq       float64   `json:"dumpFreq"`
	AvFreq         float64   `json:"avFreq"`
	CheckpointFreq float64   `json:"checkpointFreq"`
	DiagFreq       float64   `json:"diagFreq"`
	HMin           float64   `json:"hmin"`
	MaxIts         int       `json:"maxits"`
	EPS            float64   `json:"eps"`
	FreeSurfFac    float64   `json:"freesurfFac"`
	ThicknessError float64   `json:"thickness_error"`
	DebugLevel     int       `json:"debug_level"`
	HAdvecScheme   int       `json:"hAdvecScheme"`
	DumpNetCDF     bool      `json:"dumpNetCDF"`
}

// Model holds the [model] section.
type Model struct {
	HMean     []float64 `json:"hmean"`
	DepthFile string    `json:"depthFile"`
	H0        float64   `json:"H0"`
	RedGrav   bool      `json:"RedGrav"`
}

// PressureSolver holds the [pressure_solver] section.
type PressureSolver struct {
	NProcX int    `json:"nProcX"`
	NProcY int    `json:"nProcY"`
	Method string `json:"method"`
}

// Sponge holds the [sponge] section file names.
type Sponge struct {
	SpongeHTimeScaleFile string `json:"spongeHTimeScaleFile"`
	SpongeUTimeScaleFile string `json:"spongeUTimeScaleFile"`
	SpongeVTimeScaleFile string `json:"spongeVTimeScaleFile"`
	SpongeHFile          string `json:"spongeHFile"`
	SpongeUFile          string `json:"spongeUFile"`
	SpongeVFile          string `json:"spongeVFile"`
}

// Physics holds the [physics] section.
type Physics struct {
	GVec []float64 `json:"g_vec"`
	Rho0 float64   `json:"rho0"`
}

// GridSection holds the [grid] section.
type GridSection struct {
	Nx          int     `json:"nx"`
	Ny          int     `json:"ny"`
	Layers      int     `json:"layers"`
	Dx          float64 `json:"dx"`
	Dy          float64 `json:"dy"`
	FUFile      string  `json:"fUfile"`
	FVFile      string  `json:"fVfile"`
	WetMaskFile string  `json:"wetMaskFile"`
}

// InitialConditions holds the [initial_conditions] section.
type InitialConditions struct {
	InitUFile   string `json:"initUfile"`
	InitVFile   string `json:"initVfile"`
	InitHFile   string `json:"initHfile"`
	InitEtaFile string `json:"initEtaFile"`
}

// ExternalForcing holds the [external_forcing] section.
type ExternalForcing struct {
	ZonalWindFile         string  `json:"zonalWindFile"`
	MeridionalWindFile    string  `json:"meridionalWindFile"`
	RelativeWind          bool    `json:"RelativeWind"`
	Cd                    float64 `json:"Cd"`
	DumpWind              bool    `json:"DumpWind"`
	WindMagTimeSeriesFile string  `json:"wind_mag_time_series_file"`
}

// Config is the full run configuration.
type Config struct {
	Numerics          Numerics          `json:"numerics"`
	Model             Model             `json:"model"`
	PressureSolver    PressureSolver    `json:"pressure_solver"`
	Sponge            Sponge            `json:"sponge"`
	Physics           Physics           `json:"physics"`
	Grid              GridSection       `json:"grid"`
	InitialConditions InitialConditions `json:"initial_conditions"`
	ExternalForcing   ExternalForcing   `json:"external_forcing"`
}

// Default returns the configuration defaults applied before any file is
// read: every output cadence disabled, no restart, no forcing files, unit
// free-surface coupling, a serial pressure solver.
func Default() (cfg *Config) {
	cfg = &Config{}
	cfg.Numerics.FreeSurfFac = 1
	cfg.Numerics.ThicknessError = 1e-2
	cfg.Numerics.MaxIts = 1000
	cfg.Numerics.EPS = 1e-5
	cfg.Numerics.HAdvecScheme = HAdvecCentered
	cfg.Model.H0 = 0
	cfg.PressureSolver.NProcX = 1
	cfg.PressureSolver.NProcY = 1
	cfg.PressureSolver.Method = SolverSOR
	cfg.Physics.Rho0 = 1026
	return
}

// Parse fills the configuration from YAML data.
func (cfg *Config) Parse(data []byte) error {
	return yaml.Unmarshal(data, cfg)
}

// Load reads the configuration from path on top of the defaults. Files
// ending in .yaml/.yml parse as YAML; anything else is the sectioned ini
// format.
func Load(path string) (cfg *Config, err error) {
	cfg = Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err = cfg.Parse(data); err != nil {
			return nil, fmt.Errorf("%s: %v", path, err)
		}
	default:
		if err = cfg.loadINI(path); err != nil {
			return nil, err
		}
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return
}

func (cfg *Config) loadINI(path string) (err error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err = v.ReadInConfig(); err != nil {
		return
	}

	flt := func(key string, dst *float64) {
		if v.IsSet(key) {
			*dst = v.GetFloat64(key)
		}
	}
	num := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = strings.Trim(v.GetString(key), `'"`)
		}
	}
	// Booleans appear as yes/no in the classic configuration files, and as
	// .TRUE./.FALSE. in namelists converted from the old tooling.
	flag := func(key string, dst *bool) {
		if !v.IsSet(key) {
			return
		}
		switch strings.ToLower(strings.Trim(v.GetString(key), `'".`)) {
		case "yes", "true", "t", "1":
			*dst = true
		case "no", "false", "f", "0", "":
			*dst = false
		}
	}
	list := func(key string, dst *[]float64) error {
		if !v.IsSet(key) {
			return nil
		}
		vals, err := parseFloatList(v.GetString(key))
		if err != nil {
			return fmt.Errorf("%s: %v", key, err)
		}
		*dst = vals
		return nil
	}

	n := &cfg.Numerics
	flt("numerics.au", &n.AU)
	flt("numerics.kv", &n.KV)
	flt("numerics.ar", &n.AR)
	flt("numerics.botDrag", &n.BotDrag)
	flt("numerics.dt", &n.DT)
	flt("numerics.slip", &n.Slip)
	num("numerics.niter0", &n.NIter0)
	num("numerics.nTimeSteps", &n.NTimeSteps)
	flt("numerics.dumpFreq", &n.DumpFreq)
	flt("numerics.avFreq", &n.AvFreq)
	flt("numerics.checkpointFreq", &n.CheckpointFreq)
	flt("numerics.diagFreq", &n.DiagFreq)
	flt("numerics.hmin", &n.HMin)
	num("numerics.maxits", &n.MaxIts)
	flt("numerics.eps", &n.EPS)
	flt("numerics.freesurfFac", &n.FreeSurfFac)
	flt("numerics.thickness_error", &n.ThicknessError)
	num("numerics.debug_level", &n.DebugLevel)
	num("numerics.hAdvecScheme", &n.HAdvecScheme)
	flag("numerics.dumpNetCDF", &n.DumpNetCDF)
	if err = list("numerics.kh", &n.KH); err != nil {
		return
	}

	if err = list("model.hmean", &cfg.Model.HMean); err != nil {
		return
	}
	str("model.depthFile", &cfg.Model.DepthFile)
	flt("model.H0", &cfg.Model.H0)
	flag("model.RedGrav", &cfg.Model.RedGrav)

	num("pressure_solver.nProcX", &cfg.PressureSolver.NProcX)
	num("pressure_solver.nProcY", &cfg.PressureSolver.NProcY)
	str("pressure_solver.method", &cfg.PressureSolver.Method)

	str("sponge.spongeHTimeScaleFile", &cfg.Sponge.SpongeHTimeScaleFile)
	str("sponge.spongeUTimeScaleFile", &cfg.Sponge.SpongeUTimeScaleFile)
	str("sponge.spongeVTimeScaleFile", &cfg.Sponge.SpongeVTimeScaleFile)
	str("sponge.spongeHFile", &cfg.Sponge.SpongeHFile)
	str("sponge.spongeUFile", &cfg.Sponge.SpongeUFile)
	str("sponge.spongeVFile", &cfg.Sponge.SpongeVFile)

	if err = list("physics.g_vec", &cfg.Physics.GVec); err != nil {
		return
	}
	flt("physics.rho0", &cfg.Physics.Rho0)

	num("grid.nx", &cfg.Grid.Nx)
	num("grid.ny", &cfg.Grid.Ny)
	num("grid.layers", &cfg.Grid.Layers)
	flt("grid.dx", &cfg.Grid.Dx)
	flt("grid.dy", &cfg.Grid.Dy)
	str("grid.fUfile", &cfg.Grid.FUFile)
	str("grid.fVfile", &cfg.Grid.FVFile)
	str("grid.wetMaskFile", &cfg.Grid.WetMaskFile)

	str("initial_conditions.initUfile", &cfg.InitialConditions.InitUFile)
	str("initial_conditions.initVfile", &cfg.InitialConditions.InitVFile)
	str("initial_conditions.initHfile", &cfg.InitialConditions.InitHFile)
	str("initial_conditions.initEtaFile", &cfg.InitialConditions.InitEtaFile)

	str("external_forcing.zonalWindFile", &cfg.ExternalForcing.ZonalWindFile)
	str("external_forcing.meridionalWindFile", &cfg.ExternalForcing.MeridionalWindFile)
	flag("external_forcing.RelativeWind", &cfg.ExternalForcing.RelativeWind)
	flt("external_forcing.Cd", &cfg.ExternalForcing.Cd)
	flag("external_forcing.DumpWind", &cfg.ExternalForcing.DumpWind)
	str("external_forcing.wind_mag_time_series_file", &cfg.ExternalForcing.WindMagTimeSeriesFile)

	return nil
}

func parseFloatList(s string) (vals []float64, err error) {
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	}) {
		val, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("bad list entry %q", tok)
		}
		vals = append(vals, val)
	}
	return
}

// Validate checks the configuration for the errors that must abort before
// any allocation happens.
func (cfg *Config) Validate() error {
	g := cfg.Grid
	if g.Nx < 1 || g.Ny < 1 || g.Layers < 1 {
		return fmt.Errorf("nx, ny and layers must be positive, have %d, %d, %d", g.Nx, g.Ny, g.Layers)
	}
	if g.Dx <= 0 || g.Dy <= 0 {
		return fmt.Errorf("dx and dy must be positive, have %g, %g", g.Dx, g.Dy)
	}
	if cfg.Numerics.DT <= 0 {
		return fmt.Errorf("dt must be positive, have %g", cfg.Numerics.DT)
	}
	if cfg.Numerics.NTimeSteps < 0 {
		return fmt.Errorf("nTimeSteps must not be negative, have %d", cfg.Numerics.NTimeSteps)
	}
	if len(cfg.Physics.GVec) == 0 {
		return fmt.Errorf("g_vec must supply at least one reduced gravity")
	}
	if len(cfg.Physics.GVec) != 1 && len(cfg.Physics.GVec) < g.Layers {
		return fmt.Errorf("g_vec has %d entries for %d layers", len(cfg.Physics.GVec), g.Layers)
	}
	if len(cfg.Model.HMean) != 0 && len(cfg.Model.HMean) != 1 && len(cfg.Model.HMean) != g.Layers {
		return fmt.Errorf("hmean has %d entries for %d layers", len(cfg.Model.HMean), g.Layers)
	}
	if len(cfg.Numerics.KH) > 1 && len(cfg.Numerics.KH) != g.Layers {
		return fmt.Errorf("kh has %d entries for %d layers", len(cfg.Numerics.KH), g.Layers)
	}
	if cfg.PressureSolver.NProcX < 1 || cfg.PressureSolver.NProcY < 1 {
		return fmt.Errorf("nProcX and nProcY must be positive, have %d, %d",
			cfg.PressureSolver.NProcX, cfg.PressureSolver.NProcY)
	}
	switch cfg.PressureSolver.Method {
	case SolverSOR, SolverCG:
	default:
		return fmt.Errorf("unknown pressure solver %q", cfg.PressureSolver.Method)
	}
	switch cfg.Numerics.HAdvecScheme {
	case HAdvecCentered, HAdvecUpwind:
	default:
		return fmt.Errorf("unknown thickness advection scheme %d", cfg.Numerics.HAdvecScheme)
	}
	if cfg.ExternalForcing.RelativeWind && cfg.ExternalForcing.Cd <= 0 {
		return fmt.Errorf("RelativeWind needs a positive Cd, have %g", cfg.ExternalForcing.Cd)
	}
	return nil
}

// KHPerLayer expands the kh entry to one diffusivity per layer.
func (cfg *Config) KHPerLayer() (kh []float64) {
	kh = make([]float64, cfg.Grid.Layers)
	switch len(cfg.Numerics.KH) {
	case 0:
	case 1:
		for k := range kh {
			kh[k] = cfg.Numerics.KH[0]
		}
	default:
		copy(kh, cfg.Numerics.KH)
	}
	return
}

// GPerLayer expands g_vec to one reduced gravity per layer; entry 0 is the
// surface value.
func (cfg *Config) GPerLayer() (g []float64) {
	g = make([]float64, cfg.Grid.Layers)
	switch len(cfg.Physics.GVec) {
	case 1:
		for k := range g {
			g[k] = cfg.Physics.GVec[0]
		}
	default:
		copy(g, cfg.Physics.GVec)
	}
	return
}

// HMeanPerLayer expands hmean to one rest thickness per layer, falling back
// to an even split of H0 when hmean is unset.
func (cfg *Config) HMeanPerLayer() (hm []float64) {
	hm = make([]float64, cfg.Grid.Layers)
	switch len(cfg.Model.HMean) {
	case 0:
		for k := range hm {
			hm[k] = cfg.Model.H0 / float64(cfg.Grid.Layers)
		}
	case 1:
		for k := range hm {
			hm[k] = cfg.Model.HMean[0]
		}
	default:
		copy(hm, cfg.Model.HMean)
	}
	return
}
