package model

import (
	"math"

	"github.com/ctessum/atmos/advect"

	"github.com/notargets/aronnax/config"
	"github.com/notargets/aronnax/decomp"
)

// The stencil kernels. Each writes one diagnostic or tendency field over a
// tile's interior indices from read-only inputs; the caller refreshes the
// halo of the output afterwards. Layer index 0 is the surface.

// bernoulli computes the Bernoulli potential at H-points. In reduced-gravity
// mode the potential stacks the reduced gravities times cumulative
// thickness; in n-layer mode it accumulates the Montgomery potential from
// the interface depths. Both add the kinetic energy of the four surrounding
// velocity points.
func (s *Simulation) bernoulli(t decomp.Tile) {
	var (
		g  = s.G
		nl = g.Layers
		st = s.state
		b  = s.b
	)
	zc := make([]float64, nl)
	mc := make([]float64, nl)
	cum := make([]float64, nl)
	for j := t.JLower; j <= t.JUpper; j++ {
		for i := t.ILower; i <= t.IUpper; i++ {
			if s.RedGrav {
				run := 0.0
				for l := 0; l < nl; l++ {
					run += st.H.At(i, j, l)
					cum[l] = run
				}
				sum := 0.0
				for k := nl - 1; k >= 0; k-- {
					sum += s.GVec[k] * cum[k]
					mc[k] = sum
				}
			} else {
				zc[nl-1] = -s.Depth.At(i, j)
				for l := nl - 2; l >= 0; l-- {
					zc[l] = zc[l+1] + st.H.At(i, j, l+1)
				}
				mc[0] = 0
				for k := 1; k < nl; k++ {
					mc[k] = mc[k-1] + s.GVec[k]*zc[k-1]
				}
			}
			for k := 0; k < nl; k++ {
				ke := (st.U.At(i, j, k)*st.U.At(i, j, k) +
					st.U.At(i+1, j, k)*st.U.At(i+1, j, k) +
					st.V.At(i, j, k)*st.V.At(i, j, k) +
					st.V.At(i, j+1, k)*st.V.At(i, j+1, k)) / 4
				b.Set(i, j, k, mc[k]+ke)
			}
		}
	}
}

// vorticity computes relative vorticity at Z-points.
func (s *Simulation) vorticity(t decomp.Tile) {
	var (
		g  = s.G
		st = s.state
	)
	for k := 0; k < g.Layers; k++ {
		for j := t.JLower; j <= t.JUpper; j++ {
			for i := t.ILower; i <= t.IUpper; i++ {
				zeta := (st.V.At(i, j, k)-st.V.At(i-1, j, k))/g.Dx -
					(st.U.At(i, j, k)-st.U.At(i, j-1, k))/g.Dy
				s.zeta.Set(i, j, k, zeta)
			}
		}
	}
}

// dhdt assembles the thickness tendency: masked-reflecting horizontal
// diffusion, vertical thickness diffusion, advective flux divergence and
// sponge relaxation, all multiplied by the wet mask. In n-layer mode the
// bottom layer's horizontal diffusion is replaced by the negative sum of
// the other layers' so the column-integrated diffusion vanishes.
func (s *Simulation) dhdt(t decomp.Tile) {
	var (
		g      = s.G
		nl     = g.Layers
		st     = s.state
		dh     = s.work.DH
		w      = g.Wetmask
		dx, dy = g.Dx, g.Dy
	)
	diff := make([]float64, nl)
	for j := t.JLower; j <= t.JUpper; j++ {
		for i := t.ILower; i <= t.IUpper; i++ {
			// Horizontal diffusion with dry neighbors reflecting.
			for k := 0; k < nl; k++ {
				h0 := st.H.At(i, j, k)
				hW := h0 + w.At(i-1, j)*(st.H.At(i-1, j, k)-h0)
				hE := h0 + w.At(i+1, j)*(st.H.At(i+1, j, k)-h0)
				hS := h0 + w.At(i, j-1)*(st.H.At(i, j-1, k)-h0)
				hN := h0 + w.At(i, j+1)*(st.H.At(i, j+1, k)-h0)
				diff[k] = s.KH[k] * ((hW+hE-2*h0)/(dx*dx) + (hS+hN-2*h0)/(dy*dy))
			}
			if !s.RedGrav && nl > 1 {
				sum := 0.0
				for k := 0; k < nl-1; k++ {
					sum += diff[k]
				}
				diff[nl-1] = -sum
			}
			for k := 0; k < nl; k++ {
				val := diff[k]

				// Vertical thickness diffusion between adjacent layers.
				if s.KV != 0 {
					phi := s.KV / st.H.At(i, j, k)
					if k > 0 {
						val += s.KV/st.H.At(i, j, k-1) - phi
					}
					if k < nl-1 {
						val += s.KV/st.H.At(i, j, k+1) - phi
					}
				}

				// Advective flux divergence with face-centered thickness.
				if s.HAdvecScheme == config.HAdvecUpwind {
					val -= advect.UpwindFlux(st.U.At(i+1, j, k), st.H.At(i, j, k), st.H.At(i+1, j, k), dx) -
						advect.UpwindFlux(st.U.At(i, j, k), st.H.At(i-1, j, k), st.H.At(i, j, k), dx)
					val -= advect.UpwindFlux(st.V.At(i, j+1, k), st.H.At(i, j, k), st.H.At(i, j+1, k), dy) -
						advect.UpwindFlux(st.V.At(i, j, k), st.H.At(i, j-1, k), st.H.At(i, j, k), dy)
				} else {
					huW := st.U.At(i, j, k) * (st.H.At(i, j, k) + st.H.At(i-1, j, k)) / 2
					huE := st.U.At(i+1, j, k) * (st.H.At(i+1, j, k) + st.H.At(i, j, k)) / 2
					hvS := st.V.At(i, j, k) * (st.H.At(i, j, k) + st.H.At(i, j-1, k)) / 2
					hvN := st.V.At(i, j+1, k) * (st.H.At(i, j+1, k) + st.H.At(i, j, k)) / 2
					val -= (huE-huW)/dx + (hvN-hvS)/dy
				}

				if s.SpongeHTS != nil {
					val += s.SpongeHTS.At(i, j, k) * (s.SpongeH.At(i, j, k) - st.H.At(i, j, k))
				}

				dh.Set(i, j, k, w.At(i, j)*val)
			}
		}
	}
}

// dudt assembles the zonal momentum tendency at U-points.
func (s *Simulation) dudt(n int, t decomp.Tile) {
	var (
		g      = s.G
		nl     = g.Layers
		st     = s.state
		du     = s.work.DU
		dx, dy = g.Dx, g.Dy
		slip   = s.Slip
	)
	for k := 0; k < nl; k++ {
		for j := t.JLower; j <= t.JUpper; j++ {
			for i := t.ILower; i <= t.IUpper; i++ {
				u0 := st.U.At(i, j, k)

				// Lateral viscosity; land faces blend a slip image of u
				// into the neighbor sum.
				uN := st.U.At(i, j+1, k)
				if g.HfacN.At(i, j) == 0 {
					uN += (1 - 2*slip) * u0
				}
				uS := st.U.At(i, j-1, k)
				if g.HfacS.At(i, j) == 0 {
					uS += (1 - 2*slip) * u0
				}
				val := s.AU * ((st.U.At(i+1, j, k)+st.U.At(i-1, j, k)-2*u0)/(dx*dx) +
					(uN+uS-2*u0)/(dy*dy))

				// Coriolis plus advection of relative vorticity.
				vAvg := st.V.At(i-1, j, k) + st.V.At(i, j, k) +
					st.V.At(i-1, j+1, k) + st.V.At(i, j+1, k)
				val += 0.25 * (s.FU.At(i, j) +
					0.5*(s.zeta.At(i, j, k)+s.zeta.At(i, j+1, k))) * vAvg

				// Bernoulli gradient.
				val -= (s.b.At(i, j, k) - s.b.At(i-1, j, k)) / dx

				if s.SpongeUTS != nil {
					val += s.SpongeUTS.At(i, j, k) * (s.SpongeU.At(i, j, k) - u0)
				}

				// Wind forcing enters the top layer only.
				if k == 0 {
					mag := s.windMag(n)
					hSum := st.H.At(i, j, 0) + st.H.At(i-1, j, 0)
					if s.RelativeWind {
						wx := mag*s.WindX.At(i, j) - u0
						wy := mag*s.windYAtU(i, j) - 0.25*vAvg
						val += 2 * s.Cd * wx * math.Hypot(wx, wy) / hSum
					} else {
						val += 2 * mag * s.WindX.At(i, j) / (s.Rho0 * hSum)
					}
				}

				// Vertical momentum coupling with the adjacent layers.
				if s.AR != 0 {
					if k > 0 {
						val += s.AR * (st.U.At(i, j, k-1) - u0)
					}
					if k < nl-1 {
						val += s.AR * (st.U.At(i, j, k+1) - u0)
					}
				}

				if !s.RedGrav && k == nl-1 {
					val -= s.BotDrag * u0
				}

				du.Set(i, j, k, val)
			}
		}
	}
}

// dvdt assembles the meridional momentum tendency at V-points; it mirrors
// dudt across the axes.
func (s *Simulation) dvdt(n int, t decomp.Tile) {
	var (
		g      = s.G
		nl     = g.Layers
		st     = s.state
		dv     = s.work.DV
		dx, dy = g.Dx, g.Dy
		slip   = s.Slip
	)
	for k := 0; k < nl; k++ {
		for j := t.JLower; j <= t.JUpper; j++ {
			for i := t.ILower; i <= t.IUpper; i++ {
				v0 := st.V.At(i, j, k)

				vE := st.V.At(i+1, j, k)
				if g.HfacE.At(i, j) == 0 {
					vE += (1 - 2*slip) * v0
				}
				vW := st.V.At(i-1, j, k)
				if g.HfacW.At(i, j) == 0 {
					vW += (1 - 2*slip) * v0
				}
				val := s.AU * ((vE+vW-2*v0)/(dx*dx) +
					(st.V.At(i, j+1, k)+st.V.At(i, j-1, k)-2*v0)/(dy*dy))

				uAvg := st.U.At(i, j-1, k) + st.U.At(i+1, j-1, k) +
					st.U.At(i, j, k) + st.U.At(i+1, j, k)
				val -= 0.25 * (s.FV.At(i, j) +
					0.5*(s.zeta.At(i, j, k)+s.zeta.At(i+1, j, k))) * uAvg

				val -= (s.b.At(i, j, k) - s.b.At(i, j-1, k)) / dy

				if s.SpongeVTS != nil {
					val += s.SpongeVTS.At(i, j, k) * (s.SpongeV.At(i, j, k) - v0)
				}

				if k == 0 {
					mag := s.windMag(n)
					hSum := st.H.At(i, j, 0) + st.H.At(i, j-1, 0)
					if s.RelativeWind {
						wy := mag*s.WindY.At(i, j) - v0
						wx := mag*s.windXAtV(i, j) - 0.25*uAvg
						val += 2 * s.Cd * wy * math.Hypot(wx, wy) / hSum
					} else {
						val += 2 * mag * s.WindY.At(i, j) / (s.Rho0 * hSum)
					}
				}

				if s.AR != 0 {
					if k > 0 {
						val += s.AR * (st.V.At(i, j, k-1) - v0)
					}
					if k < nl-1 {
						val += s.AR * (st.V.At(i, j, k+1) - v0)
					}
				}

				if !s.RedGrav && k == nl-1 {
					val -= s.BotDrag * v0
				}

				dv.Set(i, j, k, val)
			}
		}
	}
}

// windYAtU interpolates the meridional wind to a U-point.
func (s *Simulation) windYAtU(i, j int) float64 {
	return 0.25 * (s.WindY.At(i-1, j) + s.WindY.At(i, j) +
		s.WindY.At(i-1, j+1) + s.WindY.At(i, j+1))
}

// windXAtV interpolates the zonal wind to a V-point.
func (s *Simulation) windXAtV(i, j int) float64 {
	return 0.25 * (s.WindX.At(i, j-1) + s.WindX.At(i+1, j-1) +
		s.WindX.At(i, j) + s.WindX.At(i+1, j))
}

// windMag is the per-step wind magnitude multiplier.
func (s *Simulation) windMag(n int) float64 {
	if s.WindSeries == nil {
		return 1
	}
	if n < 1 {
		n = 1
	}
	if n > len(s.WindSeries) {
		n = len(s.WindSeries)
	}
	return s.WindSeries[n-1]
}

// applyBoundary zeroes normal flow through land faces and any velocity in a
// dry cell.
func (s *Simulation) applyBoundary(st *State) {
	var (
		g = s.G
		w = g.Wetmask
	)
	for k := 0; k < g.Layers; k++ {
		for j := 0; j <= g.Ny+1; j++ {
			for i := 0; i <= g.Nx+1; i++ {
				st.U.Set(i, j, k, st.U.At(i, j, k)*g.HfacW.At(i, j)*w.At(i, j))
				st.V.Set(i, j, k, st.V.At(i, j, k)*g.HfacS.At(i, j)*w.At(i, j))
			}
		}
	}
}
