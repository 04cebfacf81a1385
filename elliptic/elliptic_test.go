package elliptic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/aronnax/grid"
)

// manufactured builds a uniform-depth stencil and a right-hand side
// b = A·etaTrue so the solvers can be checked against a known solution.
func manufactured(t *testing.T, nx, ny int) (s *Stencil, etaTrue, b *grid.Field2D) {
	t.Helper()
	var (
		dx, dy = 2.0e4, 2.0e4
		dt     = 600.0
		g1     = 9.8
	)
	g, err := grid.New(nx, ny, 1, dx, dy, nil)
	require.NoError(t, err)
	depth := grid.NewField2DConst(nx, ny, 400)
	s = NewStencil(g, depth, g1, 1, dt)

	etaTrue = grid.NewField2D(nx, ny)
	for j := 1; j <= ny; j++ {
		for i := 1; i <= nx; i++ {
			etaTrue.Set(i, j, math.Sin(2*math.Pi*float64(i)/float64(nx))*
				math.Cos(2*math.Pi*float64(j)/float64(ny)))
		}
	}
	etaTrue.Wrap()

	b = grid.NewField2D(nx, ny)
	for j := 1; j <= ny; j++ {
		for i := 1; i <= nx; i++ {
			b.Set(i, j, s.Apply(etaTrue, i, j))
		}
	}
	b.Wrap()
	return
}

func TestStencilRowSums(t *testing.T) {
	s, _, _ := manufactured(t, 8, 8)
	// For a fully wet uniform grid the face coefficients balance the
	// center up to the free-surface term.
	var (
		dt  = 600.0
		sum = s.AW.At(3, 3) + s.AE.At(3, 3) + s.AS.At(3, 3) + s.AN.At(3, 3) + s.AC.At(3, 3)
	)
	assert.InDelta(t, -1/(dt*dt), sum, 1e-18)
	// Symmetry: the east coefficient here is the west coefficient there.
	assert.Equal(t, s.AE.At(3, 3), s.AW.At(4, 3))
}

func TestSORRecoversManufacturedSolution(t *testing.T) {
	var (
		eps    = 1e-8
		maxits = 3000
	)
	s, etaTrue, b := manufactured(t, 32, 32)
	sor := NewSOR(s, eps, maxits)

	eta := grid.NewField2D(32, 32) // zero initial guess
	its, converged := sor.Solve(eta, b)
	assert.True(t, converged, "SOR did not converge in %d iterations", its)
	assert.LessOrEqual(t, its, maxits)

	l10 := s.ResidualL1(grid.NewField2D(32, 32), b)
	assert.Less(t, s.ResidualL1(eta, b), 10*eps*l10)
	for j := 1; j <= 32; j++ {
		for i := 1; i <= 32; i++ {
			assert.InDelta(t, etaTrue.At(i, j), eta.At(i, j), 1e-3)
		}
	}
}

func TestSORIterationCap(t *testing.T) {
	s, _, b := manufactured(t, 32, 32)
	sor := NewSOR(s, 1e-14, 2)
	eta := grid.NewField2D(32, 32)
	its, converged := sor.Solve(eta, b)
	assert.False(t, converged)
	assert.Equal(t, 2, its)
}

func TestCGRecoversManufacturedSolution(t *testing.T) {
	var (
		eps    = 1e-10
		maxits = 2000
	)
	s, etaTrue, b := manufactured(t, 16, 16)
	cg := NewCG(s, eps, maxits)
	eta := grid.NewField2D(16, 16)
	its, converged := cg.Solve(eta, b)
	assert.True(t, converged, "CG did not converge in %d iterations", its)
	for j := 1; j <= 16; j++ {
		for i := 1; i <= 16; i++ {
			assert.InDelta(t, etaTrue.At(i, j), eta.At(i, j), 1e-3)
		}
	}
	// The solution comes back wrapped.
	assert.Equal(t, eta.At(16, 3), eta.At(0, 3))
}

func TestSolversHandleDryCells(t *testing.T) {
	nx, ny := 8, 8
	wet := grid.NewField2D(nx, ny)
	for j := 2; j <= ny-1; j++ {
		for i := 2; i <= nx-1; i++ {
			wet.Set(i, j, 1)
		}
	}
	g, err := grid.New(nx, ny, 1, 1e4, 1e4, wet)
	require.NoError(t, err)
	depth := grid.NewField2DConst(nx, ny, 1000)
	s := NewStencil(g, depth, 9.8, 1, 100)

	rhs := grid.NewField2DConst(nx, ny, 1e-9)
	rhs.Wrap()
	for _, solver := range []Solver{NewSOR(s, 1e-8, 2000), NewCG(s, 1e-8, 2000)} {
		eta := grid.NewField2D(nx, ny)
		_, converged := solver.Solve(eta, rhs)
		assert.True(t, converged)
		assert.False(t, math.IsNaN(eta.At(4, 4)))
	}
}
