package output

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/aronnax/fieldio"
	"github.com/notargets/aronnax/grid"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testGrid(t *testing.T, nx, ny, layers int) *grid.Grid {
	t.Helper()
	g, err := grid.New(nx, ny, layers, 1e4, 1e4, nil)
	require.NoError(t, err)
	return g
}

func testSnapshot(g *grid.Grid) *Snapshot {
	return &Snapshot{
		H:     grid.NewField3DConst(g.Nx, g.Ny, g.Layers, 400),
		U:     grid.NewField3D(g.Nx, g.Ny, g.Layers),
		V:     grid.NewField3D(g.Nx, g.Ny, g.Layers),
		Eta:   grid.NewField2D(g.Nx, g.Ny),
		DH:    grid.NewField3D(g.Nx, g.Ny, g.Layers),
		DU:    grid.NewField3D(g.Nx, g.Ny, g.Layers),
		DV:    grid.NewField3D(g.Nx, g.Ny, g.Layers),
		WindX: grid.NewField2D(g.Nx, g.Ny),
		WindY: grid.NewField2D(g.Nx, g.Ny),
	}
}

func TestCadenceArithmetic(t *testing.T) {
	assert.Equal(t, 0, stepsPer(0, 600))
	assert.Equal(t, 5, stepsPer(3000, 600))
	assert.Equal(t, 1, stepsPer(600, 600))
	// Disabled cadences never fire.
	assert.False(t, fires(1, 0))
	// An enabled cadence fires at n=1, n=w+1, n=2w+1, ...
	assert.True(t, fires(1, 5))
	assert.False(t, fires(5, 5))
	assert.True(t, fires(6, 5))
	assert.True(t, fires(11, 5))
}

func TestSnapshotNaming(t *testing.T) {
	dir := t.TempDir()
	g := testGrid(t, 4, 3, 2)
	o, err := NewScheduler(g, quietLogger(), Options{
		DT: 600, DumpFreq: 600, RedGrav: true,
		OutDir:        filepath.Join(dir, "output"),
		CheckpointDir: filepath.Join(dir, "checkpoints"),
	})
	require.NoError(t, err)

	snapped, err := o.Emit(1, testSnapshot(g))
	require.NoError(t, err)
	assert.True(t, snapped)

	for _, name := range []string{"snap.h.0000000001", "snap.u.0000000001", "snap.v.0000000001"} {
		_, err := os.Stat(filepath.Join(dir, "output", name))
		assert.NoError(t, err, name)
	}
	// Reduced-gravity runs do not dump a free surface.
	_, err = os.Stat(filepath.Join(dir, "output", "snap.eta.0000000001"))
	assert.Error(t, err)

	// The u snapshot has the staggered (nx+1) x ny x layers payload.
	vals, err := fieldio.ReadFileVals(filepath.Join(dir, "output", "snap.u.0000000001"))
	require.NoError(t, err)
	assert.Len(t, vals, (4+1)*3*2)
}

func TestAveragesSkipFirstEmission(t *testing.T) {
	dir := t.TempDir()
	g := testGrid(t, 3, 3, 1)
	o, err := NewScheduler(g, quietLogger(), Options{
		DT: 600, AvFreq: 1200, // w = 2
		OutDir:        filepath.Join(dir, "output"),
		CheckpointDir: filepath.Join(dir, "checkpoints"),
	})
	require.NoError(t, err)

	s := testSnapshot(g)
	_, err = o.Emit(1, s) // fires but is skipped
	require.NoError(t, err)
	_, err = o.Emit(2, s)
	require.NoError(t, err)
	_, err = o.Emit(3, s) // fires with a two-step window
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "output", "av.h.0000000001"))
	assert.Error(t, err, "first firing is skipped")

	vals, err := fieldio.ReadFileVals(filepath.Join(dir, "output", "av.h.0000000003"))
	require.NoError(t, err)
	assert.InDelta(t, 400.0, vals[0], 1e-12)
}

func TestDiagnosticsCSV(t *testing.T) {
	dir := t.TempDir()
	g := testGrid(t, 4, 4, 2)
	o, err := NewScheduler(g, quietLogger(), Options{
		DT: 600, DiagFreq: 600, RedGrav: true,
		OutDir:        filepath.Join(dir, "output"),
		CheckpointDir: filepath.Join(dir, "checkpoints"),
	})
	require.NoError(t, err)

	s := testSnapshot(g)
	s.H.Set(2, 2, 0, 410)
	for n := 1; n <= 10; n++ {
		_, err = o.Emit(n, s)
		require.NoError(t, err)
	}
	require.NoError(t, o.Close())

	f, err := os.Open(filepath.Join(dir, "output", "diag.h.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	// Header plus one row per firing.
	require.Len(t, rows, 11)
	assert.Equal(t, []string{
		"timestep",
		"mean01", "max01", "min01", "std01",
		"mean02", "max02", "min02", "std02",
	}, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "410", rows[1][2])  // layer 1 max includes the bump
	assert.Equal(t, "400", rows[1][6])  // layer 2 stays uniform
	assert.Equal(t, "0", rows[1][8])
}

func TestCheckpointRoundTrip(t *testing.T) {
	dir := t.TempDir()
	nx, ny, nl := 4, 3, 2
	mk := func() *CheckpointData {
		d := &CheckpointData{
			H:   grid.NewField3D(nx, ny, nl),
			U:   grid.NewField3D(nx, ny, nl),
			V:   grid.NewField3D(nx, ny, nl),
			Eta: grid.NewField2D(nx, ny),
		}
		for i := 0; i < 3; i++ {
			d.DH[i] = grid.NewField3D(nx, ny, nl)
			d.DU[i] = grid.NewField3D(nx, ny, nl)
			d.DV[i] = grid.NewField3D(nx, ny, nl)
		}
		return d
	}
	src := mk()
	src.H.Set(2, 2, 1, 123.25)
	src.Eta.Set(1, 3, -0.5)
	src.DU[2].Set(3, 1, 0, 42)
	src.H.Wrap()

	require.NoError(t, WriteCheckpoint(dir, 1000, src))
	// No temporary files survive the rename.
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)

	dst := mk()
	require.NoError(t, ReadCheckpoint(dir, 1000, dst))
	assert.Equal(t, 123.25, dst.H.At(2, 2, 1))
	assert.Equal(t, -0.5, dst.Eta.At(1, 3))
	assert.Equal(t, 42.0, dst.DU[2].At(3, 1, 0))
	// Restored fields come back wrapped.
	assert.Equal(t, dst.H.At(nx, 2, 1), dst.H.At(0, 2, 1))

	assert.Error(t, ReadCheckpoint(dir, 999, mk()))
}
