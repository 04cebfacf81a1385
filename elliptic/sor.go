package elliptic

import (
	"math"

	"github.com/notargets/aronnax/grid"
)

// SOR is the in-process successive over-relaxation solver: single
// Gauss–Seidel sweeps with in-place updates, accelerated by the Chebyshev
// omega schedule derived from the Jacobi spectral radius of the rectangle.
type SOR struct {
	S      *Stencil
	EPS    float64
	MaxIts int
	rjac   float64
}

func NewSOR(s *Stencil, eps float64, maxits int) (sor *SOR) {
	var (
		g        = s.G
		dx2, dy2 = g.Dx * g.Dx, g.Dy * g.Dy
	)
	sor = &SOR{
		S:      s,
		EPS:    eps,
		MaxIts: maxits,
		rjac: (math.Cos(math.Pi/float64(g.Nx))*dy2 +
			math.Cos(math.Pi/float64(g.Ny))*dx2) / (dx2 + dy2),
	}
	return
}

// sweep relaxes every wet interior cell once, in place, and wraps eta at the
// end of the pass so the next pass reads a current halo. Returns the
// one-norm of the pre-update residuals of the sweep.
func (sor *SOR) sweep(eta, rhs *grid.Field2D, omega float64) (l1 float64) {
	var (
		s = sor.S
		g = s.G
	)
	for j := 1; j <= g.Ny; j++ {
		for i := 1; i <= g.Nx; i++ {
			if !g.Wet(i, j) {
				continue
			}
			res := s.Apply(eta, i, j) - rhs.At(i, j)
			l1 += math.Abs(res)
			eta.Add(i, j, -omega*res/s.AC.At(i, j))
		}
	}
	// The stencil reads the halo, so the wrap happens inside every pass.
	eta.Wrap()
	return
}

// Solve iterates until the residual one-norm falls below EPS times the norm
// after the first unit-relaxation pass, or MaxIts passes have run.
func (sor *SOR) Solve(eta, rhs *grid.Field2D) (its int, converged bool) {
	var (
		omega = 1.0
		l10   float64
	)
	eta.Wrap()
	for its = 1; its <= sor.MaxIts; its++ {
		l1 := sor.sweep(eta, rhs, omega)
		switch its {
		case 1:
			l10 = l1
			omega = 1 / (1 - 0.5*sor.rjac*sor.rjac)
		default:
			omega = 1 / (1 - 0.25*sor.rjac*sor.rjac*omega)
		}
		if l1 == 0 || l1 < sor.EPS*l10 {
			return its, true
		}
	}
	return sor.MaxIts, false
}
