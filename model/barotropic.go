package model

import (
	"fmt"
	"math"

	"github.com/notargets/aronnax/config"
)

// barotropic runs the free-surface correction on the provisional state st:
// depth-integrated velocities, a provisional surface from their divergence,
// the elliptic solve for the new surface, the velocity correction from its
// gradient, and the thickness reconciliation that keeps the column sum
// consistent with depth plus surface. etaCur is the surface before this
// step.
func (s *Simulation) barotropic(n int, st *State) (err error) {
	var (
		g      = s.G
		nx, ny = g.Nx, g.Ny
		nl     = g.Layers
		dx, dy = g.Dx, g.Dy
		dt     = s.DT
		fsf    = s.FreeSurfFac
		etaCur = s.state.Eta
	)

	// Depth-integrated face velocities, with the free surface counted in
	// the top layer.
	for j := 1; j <= ny; j++ {
		for i := 1; i <= nx; i++ {
			var ubSum, vbSum float64
			for k := 0; k < nl; k++ {
				hc := st.H.At(i, j, k)
				hw := st.H.At(i-1, j, k)
				hs := st.H.At(i, j-1, k)
				if k == 0 {
					hc += fsf * etaCur.At(i, j)
					hw += fsf * etaCur.At(i-1, j)
					hs += fsf * etaCur.At(i, j-1)
				}
				ubSum += st.U.At(i, j, k) * (hc + hw) / 2
				vbSum += st.V.At(i, j, k) * (hc + hs) / 2
			}
			s.ub.Set(i, j, ubSum)
			s.vb.Set(i, j, vbSum)
		}
	}
	s.ub.Wrap()
	s.vb.Wrap()

	// Provisional surface from the divergence of the barotropic flow.
	for j := 1; j <= ny; j++ {
		for i := 1; i <= nx; i++ {
			div := (s.ub.At(i+1, j)-s.ub.At(i, j))/dx +
				(s.vb.At(i, j+1)-s.vb.At(i, j))/dy
			s.etaStar.Set(i, j, fsf*etaCur.At(i, j)-dt*div)
		}
	}
	s.etaStar.Wrap()

	// Solve A·eta = -etaStar/dt² starting from etaStar.
	for j := 0; j <= ny+1; j++ {
		for i := 0; i <= nx+1; i++ {
			s.rhs.Set(i, j, -s.etaStar.At(i, j)/(dt*dt))
			st.Eta.Set(i, j, s.etaStar.At(i, j))
		}
	}
	its, converged := s.Solver.Solve(st.Eta, s.rhs)
	if !converged {
		if s.Config.PressureSolver.Method == config.SolverCG {
			return fmt.Errorf("step %d: pressure solver failed to converge in %d iterations", n, its)
		}
		s.Log.Warnf("step %d: SOR reached %d iterations without converging", n, its)
	}
	for j := 1; j <= ny; j++ {
		for i := 1; i <= nx; i++ {
			st.Eta.Set(i, j, st.Eta.At(i, j)*g.Wetmask.At(i, j))
		}
	}
	st.Eta.Wrap()

	// Correct the velocities with the new surface gradient.
	g1 := s.GVec[0]
	for k := 0; k < nl; k++ {
		for j := 1; j <= ny; j++ {
			for i := 1; i <= nx; i++ {
				st.U.Layers[k].Add(i, j, -dt*g1*(st.Eta.At(i, j)-st.Eta.At(i-1, j))/dx)
				st.V.Layers[k].Add(i, j, -dt*g1*(st.Eta.At(i, j)-st.Eta.At(i, j-1))/dy)
			}
		}
	}

	// Reconcile layer thicknesses with the new surface by scaling the
	// column. Drift beyond the configured tolerance is reported but the
	// run continues with the rescaled state.
	maxDrift := 0.0
	for j := 1; j <= ny; j++ {
		for i := 1; i <= nx; i++ {
			if !g.Wet(i, j) {
				continue
			}
			var sum float64
			for k := 0; k < nl; k++ {
				sum += st.H.At(i, j, k)
			}
			if sum == 0 {
				continue
			}
			r := (fsf*st.Eta.At(i, j) + s.Depth.At(i, j)) / sum
			if d := math.Abs(r - 1); d > maxDrift {
				maxDrift = d
			}
			for k := 0; k < nl; k++ {
				st.H.Set(i, j, k, st.H.At(i, j, k)*r)
			}
		}
	}
	if maxDrift > s.ThicknessError {
		s.Log.Warnf("step %d: thickness and free surface inconsistent by %g (tolerance %g)",
			n, maxDrift, s.ThicknessError)
	}

	s.applyBoundary(st)
	st.U.Wrap()
	st.V.Wrap()
	st.H.Wrap()
	return nil
}
