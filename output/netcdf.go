package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"

	"github.com/notargets/aronnax/grid"
)

// writeNetCDF mirrors one snapshot into a NetCDF file so the dump can be
// read without knowing the raw record layout.
func (o *Scheduler) writeNetCDF(n int, s *Snapshot) (err error) {
	var (
		g  = o.G
		ff *os.File
	)
	h := cdf.NewHeader(
		[]string{"layer", "y", "x", "xp1", "yp1"},
		[]int{g.Layers, g.Ny, g.Nx, g.Nx + 1, g.Ny + 1})
	h.AddAttribute("", "comment", "aronnax snapshot")
	h.AddAttribute("", "timestep", []int32{int32(n)})
	h.AddAttribute("", "dx", []float64{g.Dx})
	h.AddAttribute("", "dy", []float64{g.Dy})
	h.AddVariable("h", []string{"layer", "y", "x"}, []float32{0})
	h.AddVariable("u", []string{"layer", "y", "xp1"}, []float32{0})
	h.AddVariable("v", []string{"layer", "yp1", "x"}, []float32{0})
	if !o.Opts.RedGrav {
		h.AddVariable("eta", []string{"y", "x"}, []float32{0})
	}
	h.Define()

	name := filepath.Join(o.Opts.OutDir, fmt.Sprintf("snap.%010d.nc", n))
	if ff, err = os.Create(name); err != nil {
		return
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		return
	}
	if err = writeNCF(f, "h", denseOf(s.H, 0, 0)); err != nil {
		return
	}
	if err = writeNCF(f, "u", denseOf(s.U, 1, 0)); err != nil {
		return
	}
	if err = writeNCF(f, "v", denseOf(s.V, 0, 1)); err != nil {
		return
	}
	if !o.Opts.RedGrav {
		eta := sparse.ZerosDense(g.Ny, g.Nx)
		copy(eta.Elements, s.Eta.Interior(0, 0))
		if err = writeNCF(f, "eta", eta); err != nil {
			return
		}
	}
	return cdf.UpdateNumRecs(ff)
}

func denseOf(f *grid.Field3D, dx, dy int) (d *sparse.DenseArray) {
	d = sparse.ZerosDense(f.Nl, f.Ny+dy, f.Nx+dx)
	copy(d.Elements, f.Interior(dx, dy))
	return
}

func writeNCF(f *cdf.File, name string, data *sparse.DenseArray) (err error) {
	data32 := make([]float32, len(data.Elements))
	for i, e := range data.Elements {
		data32[i] = float32(e)
	}
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	if _, err = w.Write(data32); err != nil {
		return fmt.Errorf("writing variable %s to netcdf file: %v", name, err)
	}
	return
}
