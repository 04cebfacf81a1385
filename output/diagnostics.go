package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GaryBoone/GoStats/stats"

	"github.com/notargets/aronnax/grid"
)

// diagWriter appends per-layer summary statistics for one field to its CSV
// file, one row per firing of the diagnostics cadence.
type diagWriter struct {
	f      *os.File
	layers int
}

func newDiagWriter(path string, layers int) (d *diagWriter, err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	cols := []string{"timestep"}
	for k := 1; k <= layers; k++ {
		cols = append(cols,
			fmt.Sprintf("mean%02d", k), fmt.Sprintf("max%02d", k),
			fmt.Sprintf("min%02d", k), fmt.Sprintf("std%02d", k))
	}
	if _, err = fmt.Fprintln(f, strings.Join(cols, ",")); err != nil {
		f.Close()
		return nil, err
	}
	return &diagWriter{f: f, layers: layers}, nil
}

func (d *diagWriter) writeRow(n int, layerVals [][]float64) (err error) {
	row := []string{fmt.Sprintf("%d", n)}
	for _, vals := range layerVals {
		var s stats.Stats
		s.UpdateArray(vals)
		row = append(row,
			fmt.Sprintf("%g", s.Mean()), fmt.Sprintf("%g", s.Max()),
			fmt.Sprintf("%g", s.Min()), fmt.Sprintf("%g", s.PopulationStandardDeviation()))
	}
	if _, err = fmt.Fprintln(d.f, strings.Join(row, ",")); err != nil {
		return
	}
	return d.f.Sync()
}

func (o *Scheduler) diagFor(field string, layers int) (d *diagWriter, err error) {
	if d = o.diag[field]; d != nil {
		return
	}
	path := filepath.Join(o.Opts.OutDir, fmt.Sprintf("diag.%s.csv", field))
	if d, err = newDiagWriter(path, layers); err != nil {
		return nil, err
	}
	o.diag[field] = d
	return
}

func layerValues(f *grid.Field3D, dx, dy int) (vals [][]float64) {
	vals = make([][]float64, f.Nl)
	for k, l := range f.Layers {
		vals[k] = l.Interior(dx, dy)
	}
	return
}

func (o *Scheduler) writeDiagnostics(n int, s *Snapshot) (err error) {
	type entry struct {
		name string
		vals [][]float64
	}
	entries := []entry{
		{"h", layerValues(s.H, 0, 0)},
		{"u", layerValues(s.U, 1, 0)},
		{"v", layerValues(s.V, 0, 1)},
	}
	if !o.Opts.RedGrav {
		entries = append(entries, entry{"eta", [][]float64{s.Eta.Interior(0, 0)}})
	}
	for _, e := range entries {
		d, err := o.diagFor(e.name, len(e.vals))
		if err != nil {
			return err
		}
		if err = d.writeRow(n, e.vals); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the diagnostics files.
func (o *Scheduler) Close() (err error) {
	for _, d := range o.diag {
		if cerr := d.f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return
}
