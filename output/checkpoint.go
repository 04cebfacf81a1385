package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/notargets/aronnax/fieldio"
	"github.com/notargets/aronnax/grid"
)

// CheckpointData is the full restart state: the prognostic fields plus the
// three tendency histories the Adams–Bashforth step needs.
type CheckpointData struct {
	H, U, V *grid.Field3D
	Eta     *grid.Field2D
	// Index 0 is the current slot, 1 the old, 2 the very old.
	DH, DU, DV [3]*grid.Field3D
}

type ckptVar struct {
	name   string
	f3     *grid.Field3D
	f2     *grid.Field2D
	dx, dy int
}

func (c *CheckpointData) vars() []ckptVar {
	vars := []ckptVar{
		{name: "h", f3: c.H},
		{name: "u", f3: c.U, dx: 1},
		{name: "v", f3: c.V, dy: 1},
		{name: "eta", f2: c.Eta},
	}
	for i := 0; i < 3; i++ {
		vars = append(vars,
			ckptVar{name: fmt.Sprintf("dhdt%d", i), f3: c.DH[i]},
			ckptVar{name: fmt.Sprintf("dudt%d", i), f3: c.DU[i], dx: 1},
			ckptVar{name: fmt.Sprintf("dvdt%d", i), f3: c.DV[i], dy: 1},
		)
	}
	return vars
}

func checkpointName(dir, field string, n int) string {
	return filepath.Join(dir, fmt.Sprintf("checkpoint.%s.%010d", field, n))
}

// WriteCheckpoint dumps data under step-numbered names. Each file lands
// via write-then-rename so a crash mid-dump never clobbers a good
// checkpoint with a partial one.
func WriteCheckpoint(dir string, n int, data *CheckpointData) (err error) {
	for _, v := range data.vars() {
		name := checkpointName(dir, v.name, n)
		tmp := name + ".tmp"
		var vals []float64
		if v.f3 != nil {
			vals = v.f3.Interior(v.dx, v.dy)
		} else {
			vals = v.f2.Interior(v.dx, v.dy)
		}
		if err = fieldio.WriteFile(tmp, vals); err != nil {
			return
		}
		if err = os.Rename(tmp, name); err != nil {
			return
		}
	}
	return
}

// ReadCheckpoint restores data in place from the step-n checkpoint files.
// All fields come back wrapped.
func ReadCheckpoint(dir string, n int, data *CheckpointData) (err error) {
	for _, v := range data.vars() {
		name := checkpointName(dir, v.name, n)
		vals, err := fieldio.ReadFileVals(name)
		if err != nil {
			return fmt.Errorf("restart from step %d: %v", n, err)
		}
		if v.f3 != nil {
			if err = v.f3.SetInterior(v.dx, v.dy, vals); err != nil {
				return fmt.Errorf("%s: %v", name, err)
			}
			v.f3.Wrap()
		} else {
			if err = v.f2.SetInterior(v.dx, v.dy, vals); err != nil {
				return fmt.Errorf("%s: %v", name, err)
			}
			v.f2.Wrap()
		}
	}
	return
}
