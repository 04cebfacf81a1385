package elliptic

import (
	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/aronnax/grid"
)

// CG is the preconditioned Krylov alternative to SOR: the same five-point
// operator assembled once into CSR form (negated, so the system is positive
// definite), solved by Jacobi-preconditioned conjugate gradients. Periodic
// coupling is part of the assembly, so no wrap is needed inside the
// iteration.
type CG struct {
	S      *Stencil
	EPS    float64
	MaxIts int
	a      *sparse.CSR
	diag   []float64
	n      int
}

func NewCG(s *Stencil, eps float64, maxits int) (cg *CG) {
	var (
		g      = s.G
		nx, ny = g.Nx, g.Ny
		n      = nx * ny
	)
	cg = &CG{
		S:      s,
		EPS:    eps,
		MaxIts: maxits,
		diag:   make([]float64, n),
		n:      n,
	}
	// Flatten (i,j) -> (i-1) + (j-1)*nx with periodic neighbor indices.
	wrapI := func(i int) int { return (i - 1 + nx) % nx }
	wrapJ := func(j int) int { return (j - 1 + ny) % ny }
	row := func(i, j int) int { return wrapI(i) + wrapJ(j)*nx }
	dok := sparse.NewDOK(n, n)
	for j := 1; j <= ny; j++ {
		for i := 1; i <= nx; i++ {
			r := row(i, j)
			dok.Set(r, r, -s.AC.At(i, j))
			if aW := s.AW.At(i, j); aW != 0 {
				dok.Set(r, row(i-1, j), -aW)
			}
			if aE := s.AE.At(i, j); aE != 0 {
				dok.Set(r, row(i+1, j), -aE)
			}
			if aS := s.AS.At(i, j); aS != 0 {
				dok.Set(r, row(i, j-1), -aS)
			}
			if aN := s.AN.At(i, j); aN != 0 {
				dok.Set(r, row(i, j+1), -aN)
			}
			cg.diag[r] = -s.AC.At(i, j)
		}
	}
	cg.a = dok.ToCSR()
	return
}

func (cg *CG) flatten(f *grid.Field2D, negate bool) (x []float64) {
	x = f.Interior(0, 0)
	if negate {
		floats.Scale(-1, x)
	}
	return
}

// Solve runs Jacobi-preconditioned CG on the negated system, then scatters
// the local solution back into eta and wraps it.
func (cg *CG) Solve(eta, rhs *grid.Field2D) (its int, converged bool) {
	var (
		n = cg.n
		x = cg.flatten(eta, false)
		b = cg.flatten(rhs, true)
		r = make([]float64, n)
		z = make([]float64, n)
		p = make([]float64, n)
		q = make([]float64, n)
	)
	mulA := func(dst, src []float64) {
		v := mat.NewVecDense(n, dst)
		v.MulVec(cg.a, mat.NewVecDense(n, src))
	}
	mulA(q, x)
	for i := range r {
		r[i] = b[i] - q[i]
	}
	l10 := floats.Norm(r, 1)
	if l10 == 0 {
		cg.scatter(eta, x)
		return 0, true
	}
	for i := range z {
		z[i] = r[i] / cg.diag[i]
	}
	copy(p, z)
	rz := floats.Dot(r, z)
	for its = 1; its <= cg.MaxIts; its++ {
		mulA(q, p)
		pq := floats.Dot(p, q)
		if pq == 0 {
			break
		}
		alpha := rz / pq
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, q)
		if floats.Norm(r, 1) < cg.EPS*l10 {
			cg.scatter(eta, x)
			return its, true
		}
		for i := range z {
			z[i] = r[i] / cg.diag[i]
		}
		rzNew := floats.Dot(r, z)
		beta := rzNew / rz
		rz = rzNew
		for i := range p {
			p[i] = z[i] + beta*p[i]
		}
	}
	cg.scatter(eta, x)
	return cg.MaxIts, floats.Norm(r, 1) < cg.EPS*l10
}

func (cg *CG) scatter(eta *grid.Field2D, x []float64) {
	var n int
	for j := 1; j <= cg.S.G.Ny; j++ {
		for i := 1; i <= cg.S.G.Nx; i++ {
			eta.Set(i, j, x[n])
			n++
		}
	}
	eta.Wrap()
}
