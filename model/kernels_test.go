package model

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/aronnax/config"
	"github.com/notargets/aronnax/decomp"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func redGravConfig(nx, ny, layers int) *config.Config {
	cfg := config.Default()
	cfg.Grid = config.GridSection{Nx: nx, Ny: ny, Layers: layers, Dx: 2e4, Dy: 2e4}
	cfg.Numerics.DT = 600
	cfg.Numerics.NTimeSteps = 10
	cfg.Model.RedGrav = true
	cfg.Model.HMean = []float64{400}
	cfg.Physics.GVec = []float64{0.01}
	if layers == 2 {
		cfg.Model.HMean = []float64{400, 1600}
		cfg.Physics.GVec = []float64{9.8, 0.02}
	}
	return cfg
}

func nLayerConfig(nx, ny int) *config.Config {
	cfg := redGravConfig(nx, ny, 2)
	cfg.Model.RedGrav = false
	cfg.Model.H0 = 2000
	cfg.Numerics.DT = 100
	cfg.Numerics.EPS = 1e-10
	cfg.Numerics.MaxIts = 2000
	return cfg
}

func newTestSim(t *testing.T, cfg *config.Config, dir string) *Simulation {
	t.Helper()
	workers := cfg.PressureSolver.NProcX * cfg.PressureSolver.NProcY
	sim, err := NewSimulation(cfg, dir, workers, quietLogger())
	require.NoError(t, err)
	return sim
}

func fullTile(s *Simulation) decomp.Tile {
	return decomp.Tile{ILower: 1, IUpper: s.G.Nx, JLower: 1, JUpper: s.G.Ny}
}

func TestBernoulliReducedGravity(t *testing.T) {
	s := newTestSim(t, redGravConfig(4, 4, 2), t.TempDir())
	s.bernoulli(fullTile(s))
	// Stacked reduced gravities times cumulative thickness, no kinetic
	// energy at rest.
	assert.InDelta(t, 9.8*400+0.02*2000, s.b.At(2, 2, 0), 1e-9)
	assert.InDelta(t, 0.02*2000, s.b.At(2, 2, 1), 1e-9)
}

func TestBernoulliNLayer(t *testing.T) {
	s := newTestSim(t, nLayerConfig(4, 4), t.TempDir())
	s.bernoulli(fullTile(s))
	// Montgomery potential from the interface depths: the surface layer
	// carries none, the lower layer g_2 times the interface height.
	assert.InDelta(t, 0, s.b.At(2, 2, 0), 1e-12)
	assert.InDelta(t, 0.02*(-400), s.b.At(2, 2, 1), 1e-9)
}

func TestBernoulliKineticEnergy(t *testing.T) {
	s := newTestSim(t, redGravConfig(4, 4, 1), t.TempDir())
	for j := 0; j <= 5; j++ {
		for i := 0; i <= 5; i++ {
			s.state.U.Set(i, j, 0, 2)
		}
	}
	s.bernoulli(fullTile(s))
	// (2² + 2²)/4 = 2 on top of the resting potential.
	assert.InDelta(t, 0.01*400+2, s.b.At(2, 2, 0), 1e-9)
}

func TestVorticityShear(t *testing.T) {
	s := newTestSim(t, redGravConfig(6, 6, 1), t.TempDir())
	for j := 0; j <= 7; j++ {
		for i := 0; i <= 7; i++ {
			s.state.U.Set(i, j, 0, float64(j))
		}
	}
	s.vorticity(fullTile(s))
	// Pure shear du/dy = 1 gives zeta = -1/dy away from the wrap seam.
	assert.InDelta(t, -1/s.G.Dy, s.zeta.At(3, 3, 0), 1e-12)
}

func TestTendenciesVanishAtUniformRest(t *testing.T) {
	for _, scheme := range []int{config.HAdvecCentered, config.HAdvecUpwind} {
		cfg := redGravConfig(6, 6, 1)
		cfg.Numerics.HAdvecScheme = scheme
		cfg.Numerics.AU = 500
		cfg.Numerics.KH = []float64{250}
		s := newTestSim(t, cfg, t.TempDir())
		s.computeTendencies(1, s.cur)
		for j := 1; j <= 6; j++ {
			for i := 1; i <= 6; i++ {
				assert.Equal(t, 0.0, s.cur.DH.At(i, j, 0))
				assert.Equal(t, 0.0, s.cur.DU.At(i, j, 0))
				assert.Equal(t, 0.0, s.cur.DV.At(i, j, 0))
			}
		}
	}
}

func TestCoriolisCouplesVelocities(t *testing.T) {
	cfg := redGravConfig(6, 6, 1)
	dir := t.TempDir()
	writeConstantField(t, dir, "fU.bin", (6+1)*6, 1e-4)
	writeConstantField(t, dir, "fV.bin", 6*(6+1), 1e-4)
	cfg.Grid.FUFile = "fU.bin"
	cfg.Grid.FVFile = "fV.bin"
	s := newTestSim(t, cfg, dir)
	for j := 0; j <= 7; j++ {
		for i := 0; i <= 7; i++ {
			s.state.V.Set(i, j, 0, 0.5)
		}
	}
	s.computeTendencies(1, s.cur)
	// du/dt = +f*v; dv/dt has no -f*u term while u is still zero.
	assert.InDelta(t, 1e-4*0.5, s.cur.DU.At(3, 3, 0), 1e-12)
	assert.InDelta(t, 0.0, s.cur.DV.At(3, 3, 0), 1e-12)
}

func TestSlipTermEntersAtLandFace(t *testing.T) {
	// A pool with a dry ring; compare free-slip and no-slip viscous
	// tendencies next to the northern wall.
	run := func(slip float64) float64 {
		cfg := redGravConfig(6, 6, 1)
		cfg.Numerics.AU = 500
		cfg.Numerics.Slip = slip
		dir := t.TempDir()
		writePoolMask(t, dir, 6, 6)
		cfg.Grid.WetMaskFile = "wetmask.bin"
		s := newTestSim(t, cfg, dir)
		for j := 2; j <= 5; j++ {
			for i := 2; i <= 5; i++ {
				s.state.U.Set(i, j, 0, 0.25)
			}
		}
		s.state.U.Wrap()
		s.applyBoundary(s.state)
		s.computeTendencies(1, s.cur)
		return s.cur.DU.At(4, 5, 0)
	}
	freeSlip := run(0)
	noSlip := run(1)
	// No-slip drags the flow beside the wall; free-slip does not.
	assert.Less(t, noSlip, freeSlip)
}
