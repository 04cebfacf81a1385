package model

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/notargets/aronnax/config"
	"github.com/notargets/aronnax/decomp"
	"github.com/notargets/aronnax/elliptic"
	"github.com/notargets/aronnax/fieldio"
	"github.com/notargets/aronnax/grid"
	"github.com/notargets/aronnax/output"
)

// Simulation carries everything one run needs: configuration resolved into
// plain values, the grid and masks, forcing and sponge fields, the state
// and tendency histories, the elliptic solver and the output scheduler.
// All arrays are allocated here, once; the time loop mutates them in place.
type Simulation struct {
	Config *config.Config
	G      *grid.Grid
	Log    *logrus.Logger

	// Physics mode and resolved per-layer parameters.
	RedGrav      bool
	GVec, KH     []float64
	HMean        []float64
	AU, KV, AR   float64
	Slip         float64
	BotDrag      float64
	Cd, Rho0     float64
	RelativeWind bool
	HAdvecScheme int

	DT                          float64
	HMin                        float64
	FreeSurfFac, ThicknessError float64

	Depth, FU, FV *grid.Field2D
	WindX, WindY  *grid.Field2D
	WindSeries    []float64

	SpongeHTS, SpongeUTS, SpongeVTS *grid.Field3D
	SpongeH, SpongeU, SpongeV       *grid.Field3D

	// Time level state and the triple-buffered tendency history. work is
	// the buffer the kernels are currently filling.
	state, next       *State
	cur, old, veryOld *Tendencies
	work              *Tendencies

	// Kernel scratch, allocated once.
	b, zeta              *grid.Field3D
	ub, vb, etaStar, rhs *grid.Field2D

	Stencil *elliptic.Stencil
	Solver  elliptic.Solver
	Coll    *decomp.Collective
	Out     *output.Scheduler
}

// NewSimulation loads every input field, allocates the state, and wires the
// solver, decomposition and output scheduler. workers is the launched
// worker count, which must match the configured process grid.
func NewSimulation(cfg *config.Config, dir string, workers int, log *logrus.Logger) (s *Simulation, err error) {
	var (
		gc         = cfg.Grid
		nx, ny, nl = gc.Nx, gc.Ny, gc.Layers
	)
	in := func(name string) string {
		if name == "" {
			return ""
		}
		return filepath.Join(dir, name)
	}

	wetmask, err := fieldio.Load2D(in(gc.WetMaskFile), nx, ny, 0, 0, 1)
	if err != nil {
		return nil, err
	}
	g, err := grid.New(nx, ny, nl, gc.Dx, gc.Dy, wetmask)
	if err != nil {
		return nil, err
	}

	s = &Simulation{
		Config:         cfg,
		G:              g,
		Log:            log,
		RedGrav:        cfg.Model.RedGrav,
		GVec:           cfg.GPerLayer(),
		KH:             cfg.KHPerLayer(),
		HMean:          cfg.HMeanPerLayer(),
		AU:             cfg.Numerics.AU,
		KV:             cfg.Numerics.KV,
		AR:             cfg.Numerics.AR,
		Slip:           cfg.Numerics.Slip,
		BotDrag:        cfg.Numerics.BotDrag,
		Cd:             cfg.ExternalForcing.Cd,
		Rho0:           cfg.Physics.Rho0,
		RelativeWind:   cfg.ExternalForcing.RelativeWind,
		HAdvecScheme:   cfg.Numerics.HAdvecScheme,
		DT:             cfg.Numerics.DT,
		HMin:           cfg.Numerics.HMin,
		FreeSurfFac:    cfg.Numerics.FreeSurfFac,
		ThicknessError: cfg.Numerics.ThicknessError,
	}

	// Resting depth: file, then H0, then the summed mean thicknesses.
	depthDefault := cfg.Model.H0
	if depthDefault == 0 {
		for _, hm := range s.HMean {
			depthDefault += hm
		}
	}
	if s.Depth, err = fieldio.Load2D(in(cfg.Model.DepthFile), nx, ny, 0, 0, depthDefault); err != nil {
		return nil, err
	}
	if !s.RedGrav {
		for j := 1; j <= ny; j++ {
			for i := 1; i <= nx; i++ {
				if g.Wet(i, j) && s.Depth.At(i, j) <= 0 {
					return nil, fmt.Errorf("depth must be strictly positive in wet cells, have %g at (%d,%d)",
						s.Depth.At(i, j), i, j)
				}
			}
		}
	}

	if s.FU, err = fieldio.Load2D(in(gc.FUFile), nx, ny, 1, 0, 0); err != nil {
		return nil, err
	}
	if s.FV, err = fieldio.Load2D(in(gc.FVFile), nx, ny, 0, 1, 0); err != nil {
		return nil, err
	}
	ef := cfg.ExternalForcing
	if s.WindX, err = fieldio.Load2D(in(ef.ZonalWindFile), nx, ny, 1, 0, 0); err != nil {
		return nil, err
	}
	if s.WindY, err = fieldio.Load2D(in(ef.MeridionalWindFile), nx, ny, 0, 1, 0); err != nil {
		return nil, err
	}
	if s.WindSeries, err = fieldio.LoadSeries(in(ef.WindMagTimeSeriesFile), cfg.Numerics.NTimeSteps, 1); err != nil {
		return nil, err
	}

	if err = s.loadSponges(cfg, dir); err != nil {
		return nil, err
	}

	// Initial conditions.
	ic := cfg.InitialConditions
	s.state = NewState(nx, ny, nl)
	s.next = NewState(nx, ny, nl)
	if s.state.H, err = fieldio.Load3D(in(ic.InitHFile), nx, ny, nl, 0, 0, s.HMean); err != nil {
		return nil, err
	}
	if s.state.U, err = fieldio.Load3D(in(ic.InitUFile), nx, ny, nl, 1, 0, []float64{0}); err != nil {
		return nil, err
	}
	if s.state.V, err = fieldio.Load3D(in(ic.InitVFile), nx, ny, nl, 0, 1, []float64{0}); err != nil {
		return nil, err
	}
	if s.state.Eta, err = fieldio.Load2D(in(ic.InitEtaFile), nx, ny, 0, 0, 0); err != nil {
		return nil, err
	}
	s.applyBoundary(s.state)
	s.state.Wrap()

	s.cur = NewTendencies(nx, ny, nl)
	s.old = NewTendencies(nx, ny, nl)
	s.veryOld = NewTendencies(nx, ny, nl)
	s.b = grid.NewField3D(nx, ny, nl)
	s.zeta = grid.NewField3D(nx, ny, nl)
	s.ub = grid.NewField2D(nx, ny)
	s.vb = grid.NewField2D(nx, ny)
	s.etaStar = grid.NewField2D(nx, ny)
	s.rhs = grid.NewField2D(nx, ny)

	layout, err := decomp.NewLayout(nx, ny, cfg.PressureSolver.NProcX, cfg.PressureSolver.NProcY, workers)
	if err != nil {
		return nil, err
	}
	s.Coll = decomp.NewCollective(layout)

	if !s.RedGrav {
		s.Stencil = elliptic.NewStencil(g, s.Depth, s.GVec[0], s.FreeSurfFac, s.DT)
		switch cfg.PressureSolver.Method {
		case config.SolverCG:
			s.Solver = elliptic.NewCG(s.Stencil, cfg.Numerics.EPS, cfg.Numerics.MaxIts)
		default:
			s.Solver = elliptic.NewSOR(s.Stencil, cfg.Numerics.EPS, cfg.Numerics.MaxIts)
		}
	}

	if s.Out, err = output.NewScheduler(g, log, output.Options{
		DT:             s.DT,
		DumpFreq:       cfg.Numerics.DumpFreq,
		AvFreq:         cfg.Numerics.AvFreq,
		CheckpointFreq: cfg.Numerics.CheckpointFreq,
		DiagFreq:       cfg.Numerics.DiagFreq,
		RedGrav:        s.RedGrav,
		DumpWind:       ef.DumpWind,
		DumpNetCDF:     cfg.Numerics.DumpNetCDF,
		DebugLevel:     cfg.Numerics.DebugLevel,
		OutDir:         filepath.Join(dir, "output"),
		CheckpointDir:  filepath.Join(dir, "checkpoints"),
	}); err != nil {
		return nil, err
	}
	s.Out.CheckpointFn = s.writeCheckpoint
	return
}

func (s *Simulation) loadSponges(cfg *config.Config, dir string) (err error) {
	var (
		gc         = cfg.Grid
		nx, ny, nl = gc.Nx, gc.Ny, gc.Layers
		sp         = cfg.Sponge
	)
	in := func(name string) string {
		if name == "" {
			return ""
		}
		return filepath.Join(dir, name)
	}
	zero := []float64{0}
	if sp.SpongeHTimeScaleFile != "" {
		if s.SpongeHTS, err = fieldio.Load3D(in(sp.SpongeHTimeScaleFile), nx, ny, nl, 0, 0, zero); err != nil {
			return
		}
		if s.SpongeH, err = fieldio.Load3D(in(sp.SpongeHFile), nx, ny, nl, 0, 0, s.HMean); err != nil {
			return
		}
	}
	if sp.SpongeUTimeScaleFile != "" {
		if s.SpongeUTS, err = fieldio.Load3D(in(sp.SpongeUTimeScaleFile), nx, ny, nl, 1, 0, zero); err != nil {
			return
		}
		if s.SpongeU, err = fieldio.Load3D(in(sp.SpongeUFile), nx, ny, nl, 1, 0, zero); err != nil {
			return
		}
	}
	if sp.SpongeVTimeScaleFile != "" {
		if s.SpongeVTS, err = fieldio.Load3D(in(sp.SpongeVTimeScaleFile), nx, ny, nl, 0, 1, zero); err != nil {
			return
		}
		if s.SpongeV, err = fieldio.Load3D(in(sp.SpongeVFile), nx, ny, nl, 0, 1, zero); err != nil {
			return
		}
	}
	return
}

// State exposes the current model state, mainly to tests.
func (s *Simulation) State() *State { return s.state }

func (s *Simulation) checkpointData() *output.CheckpointData {
	return &output.CheckpointData{
		H: s.state.H, U: s.state.U, V: s.state.V, Eta: s.state.Eta,
		DH: [3]*grid.Field3D{s.cur.DH, s.old.DH, s.veryOld.DH},
		DU: [3]*grid.Field3D{s.cur.DU, s.old.DU, s.veryOld.DU},
		DV: [3]*grid.Field3D{s.cur.DV, s.old.DV, s.veryOld.DV},
	}
}

func (s *Simulation) writeCheckpoint(n int) error {
	return output.WriteCheckpoint(s.Out.Opts.CheckpointDir, n, s.checkpointData())
}

func (s *Simulation) readCheckpoint(n int) error {
	return output.ReadCheckpoint(s.Out.Opts.CheckpointDir, n, s.checkpointData())
}
