// Package output owns everything the model emits: step-cadenced snapshots,
// running averages, restart checkpoints and the diagnostics CSV, plus the
// optional NetCDF mirror of snapshot dumps. The scheduler writes through an
// explicit logging sink; it is not a process-wide resource.
package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/notargets/aronnax/fieldio"
	"github.com/notargets/aronnax/grid"
)

// Snapshot is the data offered to the scheduler every step.
type Snapshot struct {
	H, U, V      *grid.Field3D
	Eta          *grid.Field2D
	DH, DU, DV   *grid.Field3D // current tendencies, dumped at debug level >= 1
	WindX, WindY *grid.Field2D
}

// Options configures the scheduler cadences and extras.
type Options struct {
	DT                                         float64
	DumpFreq, AvFreq, CheckpointFreq, DiagFreq float64
	RedGrav                                    bool
	DumpWind                                   bool
	DumpNetCDF                                 bool
	DebugLevel                                 int
	OutDir, CheckpointDir                      string
}

// Scheduler fires the four independent output cadences. A cadence is the
// step count floor(freq/dt); zero disables it; an enabled cadence fires
// when (n-1) mod w == 0.
type Scheduler struct {
	Log  *logrus.Logger
	G    *grid.Grid
	Opts Options

	dumpEvery, avEvery, ckptEvery, diagEvery int

	avH, avU, avV *grid.Field3D
	avEta         *grid.Field2D
	avSteps       int

	// CheckpointFn writes the full restart state for step n; the model
	// supplies it because checkpoints include the tendency histories the
	// snapshot does not carry.
	CheckpointFn func(n int) error

	diag map[string]*diagWriter
}

func stepsPer(freq, dt float64) int {
	if freq <= 0 {
		return 0
	}
	return int(freq / dt)
}

func fires(n, every int) bool {
	return every > 0 && (n-1)%every == 0
}

func NewScheduler(g *grid.Grid, log *logrus.Logger, opts Options) (o *Scheduler, err error) {
	o = &Scheduler{
		Log:       log,
		G:         g,
		Opts:      opts,
		dumpEvery: stepsPer(opts.DumpFreq, opts.DT),
		avEvery:   stepsPer(opts.AvFreq, opts.DT),
		ckptEvery: stepsPer(opts.CheckpointFreq, opts.DT),
		diagEvery: stepsPer(opts.DiagFreq, opts.DT),
		diag:      make(map[string]*diagWriter),
	}
	if o.avEvery > 0 {
		o.avH = grid.NewField3D(g.Nx, g.Ny, g.Layers)
		o.avU = grid.NewField3D(g.Nx, g.Ny, g.Layers)
		o.avV = grid.NewField3D(g.Nx, g.Ny, g.Layers)
		o.avEta = grid.NewField2D(g.Nx, g.Ny)
	}
	for _, dir := range []string{opts.OutDir, opts.CheckpointDir} {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return
}

// Emit accumulates averages and fires whichever cadences are due at step n.
// snapped reports whether a snapshot was written, which is when the caller
// runs its NaN scan.
func (o *Scheduler) Emit(n int, s *Snapshot) (snapped bool, err error) {
	o.accumulate(s)
	if fires(n, o.dumpEvery) {
		if err = o.writeSnapshot(n, s); err != nil {
			return
		}
		snapped = true
	}
	if fires(n, o.avEvery) {
		if err = o.writeAverages(n); err != nil {
			return
		}
	}
	if fires(n, o.ckptEvery) && o.CheckpointFn != nil {
		if err = o.CheckpointFn(n); err != nil {
			return
		}
	}
	if fires(n, o.diagEvery) {
		if err = o.writeDiagnostics(n, s); err != nil {
			return
		}
	}
	return
}

func (o *Scheduler) accumulate(s *Snapshot) {
	if o.avEvery == 0 {
		return
	}
	add3 := func(dst, src *grid.Field3D) {
		for k, l := range dst.Layers {
			for i, v := range src.Layers[k].Data {
				l.Data[i] += v
			}
		}
	}
	add3(o.avH, s.H)
	add3(o.avU, s.U)
	add3(o.avV, s.V)
	for i, v := range s.Eta.Data {
		o.avEta.Data[i] += v
	}
	o.avSteps++
}

func (o *Scheduler) snapName(prefix, field string, n int) string {
	if field == "" {
		return filepath.Join(o.Opts.OutDir, fmt.Sprintf("%s.%010d", prefix, n))
	}
	return filepath.Join(o.Opts.OutDir, fmt.Sprintf("%s.%s.%010d", prefix, field, n))
}

func (o *Scheduler) writeSnapshot(n int, s *Snapshot) (err error) {
	if err = fieldio.Dump3D(o.snapName("snap", "h", n), s.H, 0, 0); err != nil {
		return
	}
	if err = fieldio.Dump3D(o.snapName("snap", "u", n), s.U, 1, 0); err != nil {
		return
	}
	if err = fieldio.Dump3D(o.snapName("snap", "v", n), s.V, 0, 1); err != nil {
		return
	}
	if !o.Opts.RedGrav {
		if err = fieldio.Dump2D(o.snapName("snap", "eta", n), s.Eta, 0, 0); err != nil {
			return
		}
	}
	if o.Opts.DumpWind {
		if err = fieldio.Dump2D(o.snapName("wind_x", "", n), s.WindX, 1, 0); err != nil {
			return
		}
		if err = fieldio.Dump2D(o.snapName("wind_y", "", n), s.WindY, 0, 1); err != nil {
			return
		}
	}
	if o.Opts.DebugLevel >= 1 {
		if err = fieldio.Dump3D(o.snapName("snap", "dhdt", n), s.DH, 0, 0); err != nil {
			return
		}
		if err = fieldio.Dump3D(o.snapName("snap", "dudt", n), s.DU, 1, 0); err != nil {
			return
		}
		if err = fieldio.Dump3D(o.snapName("snap", "dvdt", n), s.DV, 0, 1); err != nil {
			return
		}
	}
	if o.Opts.DumpNetCDF {
		if err = o.writeNetCDF(n, s); err != nil {
			return
		}
	}
	return
}

// writeAverages divides the accumulators by the window, writes them with
// the av prefix, and zeroes them. The first firing at n=1 writes nothing
// and discards the step accumulated so far.
func (o *Scheduler) writeAverages(n int) (err error) {
	if n == 1 {
		o.resetAverages()
		return nil
	}
	scale := 1 / float64(o.avSteps)
	div3 := func(f *grid.Field3D) {
		for _, l := range f.Layers {
			for i := range l.Data {
				l.Data[i] *= scale
			}
		}
	}
	div3(o.avH)
	div3(o.avU)
	div3(o.avV)
	for i := range o.avEta.Data {
		o.avEta.Data[i] *= scale
	}
	if err = fieldio.Dump3D(o.snapName("av", "h", n), o.avH, 0, 0); err != nil {
		return
	}
	if err = fieldio.Dump3D(o.snapName("av", "u", n), o.avU, 1, 0); err != nil {
		return
	}
	if err = fieldio.Dump3D(o.snapName("av", "v", n), o.avV, 0, 1); err != nil {
		return
	}
	if !o.Opts.RedGrav {
		if err = fieldio.Dump2D(o.snapName("av", "eta", n), o.avEta, 0, 0); err != nil {
			return
		}
	}
	o.resetAverages()
	return
}

func (o *Scheduler) resetAverages() {
	o.avH.Zero()
	o.avU.Zero()
	o.avV.Zero()
	o.avEta.Zero()
	o.avSteps = 0
}
