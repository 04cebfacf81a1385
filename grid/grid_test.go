package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestField2DWrap(t *testing.T) {
	nx, ny := 4, 3
	f := NewField2D(nx, ny)
	for j := 1; j <= ny; j++ {
		for i := 1; i <= nx; i++ {
			f.Set(i, j, float64(10*i+j))
		}
	}
	f.Wrap()
	// Periodic identity: column 0 mirrors nx, column nx+1 mirrors 1.
	for j := 1; j <= ny; j++ {
		assert.Equal(t, f.At(nx, j), f.At(0, j))
		assert.Equal(t, f.At(1, j), f.At(nx+1, j))
	}
	for i := 0; i <= nx+1; i++ {
		assert.Equal(t, f.At(i, ny), f.At(i, 0))
		assert.Equal(t, f.At(i, 1), f.At(i, ny+1))
	}
}

func TestFieldInteriorRoundTrip(t *testing.T) {
	nx, ny := 3, 2
	// A U-staggered field has nx+1 points across.
	f := NewField2D(nx, ny)
	vals := make([]float64, (nx+1)*ny)
	for i := range vals {
		vals[i] = float64(i + 1)
	}
	assert.NoError(t, f.SetInterior(1, 0, vals))
	assert.Equal(t, vals, f.Interior(1, 0))
	assert.Equal(t, 1.0, f.At(1, 1))
	assert.Equal(t, float64(nx+1), f.At(nx+1, 1))

	assert.Error(t, f.SetInterior(0, 0, vals))
}

func TestField3DLayered(t *testing.T) {
	f := NewField3DLayered(2, 2, []float64{400, 1600})
	assert.Equal(t, 400.0, f.At(1, 1, 0))
	assert.Equal(t, 1600.0, f.At(2, 2, 1))

	o := f.Copy()
	o.Set(1, 1, 0, -1)
	assert.Equal(t, 400.0, f.At(1, 1, 0))
}

func TestHasNaN(t *testing.T) {
	f := NewField3D(3, 3, 2)
	_, _, _, found := f.HasNaN()
	assert.False(t, found)
	f.Set(2, 3, 1, math.NaN())
	i, j, k, found := f.HasNaN()
	assert.True(t, found)
	assert.Equal(t, []int{2, 3, 1}, []int{i, j, k})
}

func TestFaceMasks(t *testing.T) {
	// Rectangular pool: dry ring around a wet interior.
	nx, ny := 5, 5
	wet := NewField2D(nx, ny)
	for j := 2; j <= ny-1; j++ {
		for i := 2; i <= nx-1; i++ {
			wet.Set(i, j, 1)
		}
	}
	g, err := New(nx, ny, 1, 1e4, 1e4, wet)
	assert.NoError(t, err)

	// The west face of the westernmost wet column is closed.
	assert.Equal(t, 0.0, g.HfacW.At(2, 3))
	// An interior wet-wet face stays open.
	assert.Equal(t, 1.0, g.HfacW.At(3, 3))
	// The east, north and south faces between wet cells and the dry ring
	// are closed as well.
	assert.Equal(t, 0.0, g.HfacE.At(4, 3))
	assert.Equal(t, 0.0, g.HfacN.At(3, 4))
	assert.Equal(t, 0.0, g.HfacS.At(3, 2))
	// A dry-dry face is open by convention; velocities there are zeroed
	// by the wet mask instead.
	assert.Equal(t, 1.0, g.HfacW.At(1, 1))
}

func TestGridValidation(t *testing.T) {
	_, err := New(0, 4, 1, 1, 1, nil)
	assert.Error(t, err)
	_, err = New(4, 4, 1, -1, 1, nil)
	assert.Error(t, err)
	g, err := New(4, 4, 2, 1, 1, nil)
	assert.NoError(t, err)
	assert.True(t, g.Wet(1, 1))
}
