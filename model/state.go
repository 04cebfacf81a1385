// Package model is the numerical engine: the C-grid stencil kernels, the
// RK2 bootstrap and third-order Adams–Bashforth integrator, the
// reduced-gravity and n-layer physics variants, and the barotropic
// correction that keeps layer thicknesses consistent with the free surface.
package model

import "github.com/notargets/aronnax/grid"

// State is the prognostic model state at one time level.
type State struct {
	H   *grid.Field3D // layer thickness at H-points
	U   *grid.Field3D // zonal velocity at U-points
	V   *grid.Field3D // meridional velocity at V-points
	Eta *grid.Field2D // free-surface anomaly, meaningful in n-layer mode only
}

func NewState(nx, ny, layers int) *State {
	return &State{
		H:   grid.NewField3D(nx, ny, layers),
		U:   grid.NewField3D(nx, ny, layers),
		V:   grid.NewField3D(nx, ny, layers),
		Eta: grid.NewField2D(nx, ny),
	}
}

func (st *State) Wrap() {
	st.H.Wrap()
	st.U.Wrap()
	st.V.Wrap()
	st.Eta.Wrap()
}

// Tendencies is one snapshot of (dh/dt, du/dt, dv/dt). Three of these form
// the Adams–Bashforth history; they advance by reference rotation, never by
// copying.
type Tendencies struct {
	DH, DU, DV *grid.Field3D
}

func NewTendencies(nx, ny, layers int) *Tendencies {
	return &Tendencies{
		DH: grid.NewField3D(nx, ny, layers),
		DU: grid.NewField3D(nx, ny, layers),
		DV: grid.NewField3D(nx, ny, layers),
	}
}

func (t *Tendencies) Wrap() {
	t.DH.Wrap()
	t.DU.Wrap()
	t.DV.Wrap()
}
