package grid

import "fmt"

// Grid is the rectangular Arakawa C-grid: nx x ny interior cells of uniform
// spacing, a fixed wet mask at cell centers, and the face masks derived from
// it. The mask fields carry the same one-cell halo as every other field.
//
// Staggering convention: H-points are cell centers, U-points sit on the west
// face of their cell, V-points on the south face, Z-points on the southwest
// corner.
type Grid struct {
	Nx, Ny, Layers int
	Dx, Dy         float64

	Wetmask *Field2D
	// Face masks: 1 if mass/momentum may cross that face of cell (i,j).
	HfacW, HfacE, HfacN, HfacS *Field2D
}

func New(nx, ny, layers int, dx, dy float64, wetmask *Field2D) (g *Grid, err error) {
	if nx < 1 || ny < 1 || layers < 1 {
		return nil, fmt.Errorf("grid dimensions must be positive, have nx=%d ny=%d layers=%d", nx, ny, layers)
	}
	if dx <= 0 || dy <= 0 {
		return nil, fmt.Errorf("grid spacing must be positive, have dx=%g dy=%g", dx, dy)
	}
	if wetmask == nil {
		wetmask = NewField2DConst(nx, ny, 1)
	}
	if wetmask.Nx != nx || wetmask.Ny != ny {
		return nil, fmt.Errorf("wet mask is %dx%d, grid is %dx%d", wetmask.Nx, wetmask.Ny, nx, ny)
	}
	wetmask.Wrap()
	g = &Grid{
		Nx: nx, Ny: ny, Layers: layers,
		Dx: dx, Dy: dy,
		Wetmask: wetmask,
	}
	g.deriveFaceMasks()
	return
}

// deriveFaceMasks sets hfac = 1 on every face except those separating a wet
// cell from a dry one. The outer rows come from the periodic partners.
func (g *Grid) deriveFaceMasks() {
	var (
		nx, ny = g.Nx, g.Ny
		w      = g.Wetmask
	)
	g.HfacW = NewField2DConst(nx, ny, 1)
	g.HfacE = NewField2DConst(nx, ny, 1)
	g.HfacN = NewField2DConst(nx, ny, 1)
	g.HfacS = NewField2DConst(nx, ny, 1)
	for j := 1; j <= ny; j++ {
		for i := 1; i <= nx; i++ {
			if w.At(i-1, j) != w.At(i, j) {
				g.HfacW.Set(i, j, 0)
			}
			if w.At(i+1, j) != w.At(i, j) {
				g.HfacE.Set(i, j, 0)
			}
			if w.At(i, j+1) != w.At(i, j) {
				g.HfacN.Set(i, j, 0)
			}
			if w.At(i, j-1) != w.At(i, j) {
				g.HfacS.Set(i, j, 0)
			}
		}
	}
	g.HfacW.Wrap()
	g.HfacE.Wrap()
	g.HfacN.Wrap()
	g.HfacS.Wrap()
}

// Wet reports whether cell (i,j) is fluid.
func (g *Grid) Wet(i, j int) bool { return g.Wetmask.At(i, j) != 0 }
