// Package elliptic solves the barotropic pressure equation A·eta = rhs on
// the C-grid, where A is the five-point stencil coupling the free surface to
// the depth-integrated divergence. Two interchangeable solvers are provided:
// an in-process successive over-relaxation sweep and a Jacobi-preconditioned
// conjugate-gradient solve over a CSR assembly of the same stencil. The
// caller selects one at configuration time and never learns which is active.
package elliptic

import "github.com/notargets/aronnax/grid"

// Solver iterates eta in place from an initial guess until the residual
// one-norm falls below eps times its initial value or maxits sweeps have
// run. Converged is false in the latter case and the best available eta is
// left in place.
type Solver interface {
	Solve(eta, rhs *grid.Field2D) (its int, converged bool)
}

// Stencil is the assembled five-point operator: for each wet cell,
//
//	(A·eta)[i,j] = aW·eta[i-1,j] + aE·eta[i+1,j]
//	             + aS·eta[i,j-1] + aN·eta[i,j+1] + aC·eta[i,j]
//
// with the face coefficients g·(face depth average)·hfac/dx² (or dy²) and
// the center coefficient the negative sum of the faces minus
// freesurfFac/dt². Dry cells carry an uncoupled unit diagonal so the
// operator stays invertible over the whole rectangle.
type Stencil struct {
	G                  *grid.Grid
	AW, AE, AS, AN, AC *grid.Field2D
}

// NewStencil assembles the operator from the resting depth field.
func NewStencil(g *grid.Grid, depth *grid.Field2D, g1, freesurfFac, dt float64) (s *Stencil) {
	var (
		nx, ny = g.Nx, g.Ny
		rdx2   = 1 / (g.Dx * g.Dx)
		rdy2   = 1 / (g.Dy * g.Dy)
	)
	s = &Stencil{
		G:  g,
		AW: grid.NewField2D(nx, ny),
		AE: grid.NewField2D(nx, ny),
		AS: grid.NewField2D(nx, ny),
		AN: grid.NewField2D(nx, ny),
		AC: grid.NewField2D(nx, ny),
	}
	for j := 1; j <= ny; j++ {
		for i := 1; i <= nx; i++ {
			if !g.Wet(i, j) {
				s.AC.Set(i, j, -1)
				continue
			}
			aW := g1 * 0.5 * (depth.At(i-1, j) + depth.At(i, j)) * g.HfacW.At(i, j) * rdx2
			aE := g1 * 0.5 * (depth.At(i+1, j) + depth.At(i, j)) * g.HfacE.At(i, j) * rdx2
			aS := g1 * 0.5 * (depth.At(i, j-1) + depth.At(i, j)) * g.HfacS.At(i, j) * rdy2
			aN := g1 * 0.5 * (depth.At(i, j+1) + depth.At(i, j)) * g.HfacN.At(i, j) * rdy2
			s.AW.Set(i, j, aW)
			s.AE.Set(i, j, aE)
			s.AS.Set(i, j, aS)
			s.AN.Set(i, j, aN)
			s.AC.Set(i, j, -(aW+aE+aS+aN)-freesurfFac/(dt*dt))
		}
	}
	s.AW.Wrap()
	s.AE.Wrap()
	s.AS.Wrap()
	s.AN.Wrap()
	s.AC.Wrap()
	return
}

// Apply evaluates (A·eta) at one interior cell. eta must be wrapped.
func (s *Stencil) Apply(eta *grid.Field2D, i, j int) float64 {
	return s.AW.At(i, j)*eta.At(i-1, j) +
		s.AE.At(i, j)*eta.At(i+1, j) +
		s.AS.At(i, j)*eta.At(i, j-1) +
		s.AN.At(i, j)*eta.At(i, j+1) +
		s.AC.At(i, j)*eta.At(i, j)
}

// ResidualL1 is the one-norm of A·eta − rhs over the interior.
func (s *Stencil) ResidualL1(eta, rhs *grid.Field2D) (l1 float64) {
	for j := 1; j <= s.G.Ny; j++ {
		for i := 1; i <= s.G.Nx; i++ {
			res := s.Apply(eta, i, j) - rhs.At(i, j)
			if res < 0 {
				res = -res
			}
			l1 += res
		}
	}
	return
}
