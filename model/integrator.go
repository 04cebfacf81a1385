package model

import (
	"fmt"

	"github.com/notargets/aronnax/decomp"
	"github.com/notargets/aronnax/output"
)

// computeTendencies evaluates the full right-hand side at the current state
// into dst: Bernoulli potential and vorticity first, then the three
// tendency kernels, each stage separated by a halo refresh.
func (s *Simulation) computeTendencies(n int, dst *Tendencies) {
	var (
		c = s.Coll
	)
	s.work = dst
	c.ParallelTiles(func(t decomp.Tile) {
		s.bernoulli(t)
		s.vorticity(t)
	})
	c.RefreshHalo(s.b, s.zeta)
	c.ParallelTiles(func(t decomp.Tile) {
		s.dhdt(t)
		s.dudt(n, t)
		s.dvdt(n, t)
	})
	c.RefreshHalo(dst.DH, dst.DU, dst.DV)
}

// eulerAdvance writes dst = src + dt*tend for the three prognostic fields
// and carries the surface over unchanged.
func eulerAdvance(dst, src *State, tend *Tendencies, dt float64) {
	for k := range dst.H.Layers {
		dH, sH, tH := dst.H.Layers[k].Data, src.H.Layers[k].Data, tend.DH.Layers[k].Data
		dU, sU, tU := dst.U.Layers[k].Data, src.U.Layers[k].Data, tend.DU.Layers[k].Data
		dV, sV, tV := dst.V.Layers[k].Data, src.V.Layers[k].Data, tend.DV.Layers[k].Data
		for i := range dH {
			dH[i] = sH[i] + dt*tH[i]
			dU[i] = sU[i] + dt*tU[i]
			dV[i] = sV[i] + dt*tV[i]
		}
	}
	copy(dst.Eta.Data, src.Eta.Data)
}

// ab3Advance writes dst = src + dt*(23*cur - 16*old + 5*veryOld)/12.
func ab3Advance(dst, src *State, cur, old, veryOld *Tendencies, dt float64) {
	var (
		c1 = 23 * dt / 12
		c2 = -16 * dt / 12
		c3 = 5 * dt / 12
	)
	for k := range dst.H.Layers {
		dH, sH := dst.H.Layers[k].Data, src.H.Layers[k].Data
		f1, f2, f3 := cur.DH.Layers[k].Data, old.DH.Layers[k].Data, veryOld.DH.Layers[k].Data
		for i := range dH {
			dH[i] = sH[i] + c1*f1[i] + c2*f2[i] + c3*f3[i]
		}
		dU, sU := dst.U.Layers[k].Data, src.U.Layers[k].Data
		f1, f2, f3 = cur.DU.Layers[k].Data, old.DU.Layers[k].Data, veryOld.DU.Layers[k].Data
		for i := range dU {
			dU[i] = sU[i] + c1*f1[i] + c2*f2[i] + c3*f3[i]
		}
		dV, sV := dst.V.Layers[k].Data, src.V.Layers[k].Data
		f1, f2, f3 = cur.DV.Layers[k].Data, old.DV.Layers[k].Data, veryOld.DV.Layers[k].Data
		for i := range dV {
			dV[i] = sV[i] + c1*f1[i] + c2*f2[i] + c3*f3[i]
		}
	}
	copy(dst.Eta.Data, src.Eta.Data)
}

// bootstrapStep advances one step with a two-stage Runge-Kutta pass:
// forward Euler to the half point, a re-evaluation there that lands in
// hist, then the full step using the re-evaluated tendency. It runs no
// barotropic correction, no thickness clip and no output; its only job is
// to leave a physically reasonable tendency in hist.
func (s *Simulation) bootstrapStep(n int, hist *Tendencies) {
	s.computeTendencies(n, hist)
	eulerAdvance(s.next, s.state, hist, s.DT/2)
	s.applyBoundary(s.next)
	s.next.Wrap()

	// Re-evaluate at the half point; this overwrites hist.
	full := s.state
	s.state = s.next
	s.computeTendencies(n, hist)
	s.state = full

	eulerAdvance(s.next, s.state, hist, s.DT)
	s.applyBoundary(s.next)
	s.next.Wrap()
	s.state, s.next = s.next, s.state
}

// clipThickness enforces the minimum layer thickness, reporting once per
// step when any cell was clipped.
func (s *Simulation) clipThickness(n int, st *State) {
	var clipped int
	for _, l := range st.H.Layers {
		for i, v := range l.Data {
			if v < s.HMin {
				l.Data[i] = s.HMin
				clipped++
			}
		}
	}
	if clipped > 0 {
		s.Log.Warnf("step %d: clipped %d thickness values up to hmin", n, clipped)
	}
}

// step advances the state from n-1 to n with the third-order
// Adams-Bashforth combination, then applies the post-step sequence in
// strict order: boundaries, barotropic correction, thickness clip, wrap,
// history rotation, state swap, then the scheduler's Emit, which
// accumulates the averages before writing any output.
func (s *Simulation) step(n int) (err error) {
	s.computeTendencies(n, s.cur)
	ab3Advance(s.next, s.state, s.cur, s.old, s.veryOld, s.DT)
	s.applyBoundary(s.next)
	if !s.RedGrav {
		if err = s.barotropic(n, s.next); err != nil {
			return
		}
	}
	s.clipThickness(n, s.next)
	s.next.Wrap()

	// Rotate the history by reference: the stale very-old buffer becomes
	// the scratch the next step writes into.
	s.cur, s.old, s.veryOld = s.veryOld, s.cur, s.old
	s.state, s.next = s.next, s.state

	snapped, err := s.Out.Emit(n, &output.Snapshot{
		H: s.state.H, U: s.state.U, V: s.state.V, Eta: s.state.Eta,
		DH: s.old.DH, DU: s.old.DU, DV: s.old.DV,
		WindX: s.WindX, WindY: s.WindY,
	})
	if err != nil {
		return
	}
	if snapped {
		if i, j, k, found := s.state.H.HasNaN(); found {
			return fmt.Errorf("step %d: NaN in layer thickness at (%d,%d) layer %d", n, i, j, k+1)
		}
	}
	return nil
}

// Run integrates from the configured start to nTimeSteps. Fresh starts
// bootstrap the tendency history with two Runge-Kutta steps; restarts load
// it from the checkpoint. A fatal error aborts the collective, which
// finalizes every worker before the non-zero exit propagates.
func (s *Simulation) Run() (err error) {
	var (
		n0     = s.Config.Numerics.NIter0
		nSteps = s.Config.Numerics.NTimeSteps
		start  int
	)
	if n0 == 0 {
		// Two RK2 passes fill the very-old then the old slot.
		s.bootstrapStep(1, s.veryOld)
		s.bootstrapStep(2, s.old)
		start = 3
	} else {
		if err = s.readCheckpoint(n0); err != nil {
			s.Coll.Abort(err)
			return s.Coll.Finalize()
		}
		start = n0 + 1
	}
	for n := start; n <= nSteps; n++ {
		if err = s.step(n); err != nil {
			s.Log.Errorf("%v", err)
			s.Coll.Abort(err)
			break
		}
	}
	if cerr := s.Out.Close(); cerr != nil && s.Coll.Err() == nil {
		s.Coll.Abort(cerr)
	}
	return s.Coll.Finalize()
}
