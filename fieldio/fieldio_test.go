package fieldio

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	vals := []float64{1.5, -2.25, 3e10, 0}
	require.NoError(t, WriteRecord(&buf, vals))
	// 4-byte marker + payload + 4-byte marker.
	assert.Equal(t, 8*len(vals)+8, buf.Len())
	got, err := ReadRecord(&buf)
	require.NoError(t, err)
	assert.Equal(t, vals, got)
}

func TestReadRecordBadTrailer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecord(&buf, []float64{1, 2}))
	b := buf.Bytes()
	b[len(b)-1]++ // corrupt the trailing marker
	_, err := ReadRecord(bytes.NewReader(b))
	assert.Error(t, err)
}

func TestLoad2DDefaultAndFile(t *testing.T) {
	f, err := Load2D("", 3, 2, 0, 0, 7.5)
	require.NoError(t, err)
	assert.Equal(t, 7.5, f.At(2, 1))
	// The default fills the halo too, and the wrap holds.
	assert.Equal(t, f.At(3, 1), f.At(0, 1))

	name := filepath.Join(t.TempDir(), "wetmask.bin")
	vals := []float64{1, 2, 3, 4, 5, 6}
	require.NoError(t, WriteFile(name, vals))
	f, err = Load2D(name, 3, 2, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, f.At(1, 1))
	assert.Equal(t, 6.0, f.At(3, 2))
	// x varies fastest in the file.
	assert.Equal(t, 4.0, f.At(1, 2))
}

func TestLoad2DShapeMismatch(t *testing.T) {
	name := filepath.Join(t.TempDir(), "short.bin")
	require.NoError(t, WriteFile(name, []float64{1, 2, 3}))
	_, err := Load2D(name, 3, 2, 0, 0, 0)
	assert.Error(t, err)
}

func TestLoad3DDefaults(t *testing.T) {
	f, err := Load3D("", 2, 2, 3, 0, 0, []float64{100, 200, 300})
	require.NoError(t, err)
	assert.Equal(t, 100.0, f.At(1, 1, 0))
	assert.Equal(t, 300.0, f.At(2, 2, 2))

	f, err = Load3D("", 2, 2, 3, 0, 0, []float64{0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, f.At(1, 1, 2))

	_, err = Load3D("", 2, 2, 3, 0, 0, []float64{1, 2})
	assert.Error(t, err)
}

func TestLoad3DStaggered(t *testing.T) {
	// A U-point file carries (nx+1) x ny values per layer.
	nx, ny, nl := 2, 2, 2
	name := filepath.Join(t.TempDir(), "initU.bin")
	vals := make([]float64, (nx+1)*ny*nl)
	for i := range vals {
		vals[i] = float64(i)
	}
	require.NoError(t, WriteFile(name, vals))
	f, err := Load3D(name, nx, ny, nl, 1, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, f.At(1, 1, 0))
	assert.Equal(t, 4.0, f.At(2, 2, 0))
	assert.Equal(t, 6.0, f.At(1, 1, 1))
	// The wrap overwrites the nx+1 column with its periodic partner.
	assert.Equal(t, f.At(1, 2, 0), f.At(3, 2, 0))
}

func TestLoadSeries(t *testing.T) {
	vals, err := LoadSeries("", 4, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1}, vals)

	name := filepath.Join(t.TempDir(), "mag.bin")
	require.NoError(t, WriteFile(name, []float64{0.5, 1, 2}))
	vals, err = LoadSeries(name, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1}, vals)

	_, err = LoadSeries(name, 5, 1)
	assert.Error(t, err)
}

func TestDumpRoundTrip(t *testing.T) {
	name := filepath.Join(t.TempDir(), "snap.h.0000000001")
	f, err := Load2D("", 3, 3, 0, 0, 400)
	require.NoError(t, err)
	f.Set(2, 2, 401)
	require.NoError(t, Dump2D(name, f, 0, 0))
	g, err := Load2D(name, 3, 3, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 401.0, g.At(2, 2))
	assert.Equal(t, 400.0, g.At(1, 3))
}
