package grid

import (
	"fmt"
	"math"
)

// Field2D is a scalar field carrying a one-cell halo on every side, so the
// addressable index range is [0..nx+1] x [0..ny+1]. The halo holds the
// periodic wrap of the interior (or exchanged neighbor columns when the
// domain is decomposed) and lets stencil loops read neighbors without edge
// special-casing.
type Field2D struct {
	Nx, Ny int
	Data   []float64
}

func NewField2D(nx, ny int) (f *Field2D) {
	f = &Field2D{
		Nx:   nx,
		Ny:   ny,
		Data: make([]float64, (nx+2)*(ny+2)),
	}
	return
}

// NewField2DConst returns a halo-padded field with every element, halo
// included, set to val.
func NewField2DConst(nx, ny int, val float64) (f *Field2D) {
	f = NewField2D(nx, ny)
	for i := range f.Data {
		f.Data[i] = val
	}
	return
}

func (f *Field2D) idx(i, j int) int { return i + j*(f.Nx+2) }

func (f *Field2D) At(i, j int) float64 { return f.Data[f.idx(i, j)] }

func (f *Field2D) Set(i, j int, val float64) { f.Data[f.idx(i, j)] = val }

func (f *Field2D) Add(i, j int, val float64) { f.Data[f.idx(i, j)] += val }

func (f *Field2D) Copy() (o *Field2D) {
	o = NewField2D(f.Nx, f.Ny)
	copy(o.Data, f.Data)
	return
}

func (f *Field2D) Zero() {
	for i := range f.Data {
		f.Data[i] = 0
	}
}

// Wrap copies the periodic partners into the halo: column nx into column 0,
// column 1 into column nx+1, and the same in y. Corners follow from the
// second pass reading already-wrapped columns.
func (f *Field2D) Wrap() {
	var (
		nx, ny = f.Nx, f.Ny
	)
	for j := 0; j <= ny+1; j++ {
		f.Set(0, j, f.At(nx, j))
		f.Set(nx+1, j, f.At(1, j))
	}
	for i := 0; i <= nx+1; i++ {
		f.Set(i, 0, f.At(i, ny))
		f.Set(i, ny+1, f.At(i, 1))
	}
}

// Interior returns the interior values in file order (x fastest), halo
// excluded, for the staggered extent (nx+dx) x (ny+dy).
func (f *Field2D) Interior(dx, dy int) (vals []float64) {
	vals = make([]float64, 0, (f.Nx+dx)*(f.Ny+dy))
	for j := 1; j <= f.Ny+dy; j++ {
		for i := 1; i <= f.Nx+dx; i++ {
			vals = append(vals, f.At(i, j))
		}
	}
	return
}

// SetInterior fills the interior from vals in file order (x fastest) for the
// staggered extent (nx+dx) x (ny+dy).
func (f *Field2D) SetInterior(dx, dy int, vals []float64) error {
	if len(vals) != (f.Nx+dx)*(f.Ny+dy) {
		return fmt.Errorf("field of %dx%d doesn't fit a %dx%d interior",
			len(vals)/(f.Ny+dy), f.Ny+dy, f.Nx+dx, f.Ny+dy)
	}
	var n int
	for j := 1; j <= f.Ny+dy; j++ {
		for i := 1; i <= f.Nx+dx; i++ {
			f.Set(i, j, vals[n])
			n++
		}
	}
	return nil
}

// HasNaN reports the first interior NaN found, if any.
func (f *Field2D) HasNaN() (i, j int, found bool) {
	for j = 1; j <= f.Ny; j++ {
		for i = 1; i <= f.Nx; i++ {
			if math.IsNaN(f.At(i, j)) {
				found = true
				return
			}
		}
	}
	return 0, 0, false
}

// Field3D is a stack of layer fields sharing one halo convention. Layers are
// stored as separate Field2D values so a whole-state swap is a slice of
// pointer copies, never an array copy.
type Field3D struct {
	Nx, Ny, Nl int
	Layers     []*Field2D
}

func NewField3D(nx, ny, nl int) (f *Field3D) {
	f = &Field3D{Nx: nx, Ny: ny, Nl: nl, Layers: make([]*Field2D, nl)}
	for k := range f.Layers {
		f.Layers[k] = NewField2D(nx, ny)
	}
	return
}

func NewField3DConst(nx, ny, nl int, val float64) (f *Field3D) {
	f = NewField3D(nx, ny, nl)
	for k := range f.Layers {
		f.Layers[k] = NewField2DConst(nx, ny, val)
	}
	return
}

// NewField3DLayered fills each layer with its entry of vals.
func NewField3DLayered(nx, ny int, vals []float64) (f *Field3D) {
	f = NewField3D(nx, ny, len(vals))
	for k := range f.Layers {
		f.Layers[k] = NewField2DConst(nx, ny, vals[k])
	}
	return
}

func (f *Field3D) Layer(k int) *Field2D { return f.Layers[k] }

func (f *Field3D) At(i, j, k int) float64 { return f.Layers[k].At(i, j) }

func (f *Field3D) Set(i, j, k int, v float64) { f.Layers[k].Set(i, j, v) }

func (f *Field3D) Copy() (o *Field3D) {
	o = &Field3D{Nx: f.Nx, Ny: f.Ny, Nl: f.Nl, Layers: make([]*Field2D, f.Nl)}
	for k := range f.Layers {
		o.Layers[k] = f.Layers[k].Copy()
	}
	return
}

func (f *Field3D) Zero() {
	for _, l := range f.Layers {
		l.Zero()
	}
}

func (f *Field3D) Wrap() {
	for _, l := range f.Layers {
		l.Wrap()
	}
}

func (f *Field3D) Interior(dx, dy int) (vals []float64) {
	for _, l := range f.Layers {
		vals = append(vals, l.Interior(dx, dy)...)
	}
	return
}

func (f *Field3D) SetInterior(dx, dy int, vals []float64) error {
	per := (f.Nx + dx) * (f.Ny + dy)
	if len(vals) != per*f.Nl {
		return fmt.Errorf("have %d values, need %d for %d layers of %dx%d",
			len(vals), per*f.Nl, f.Nl, f.Nx+dx, f.Ny+dy)
	}
	for k, l := range f.Layers {
		if err := l.SetInterior(dx, dy, vals[k*per:(k+1)*per]); err != nil {
			return err
		}
	}
	return nil
}

func (f *Field3D) HasNaN() (i, j, k int, found bool) {
	for k, l := range f.Layers {
		if i, j, ok := l.HasNaN(); ok {
			return i, j, k, true
		}
	}
	return 0, 0, 0, false
}
