/*
Copyright © 2018 the Aronnax authors.
This file is part of Aronnax.

Aronnax is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Aronnax is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Aronnax.  If not, see <http://www.gnu.org/licenses/>.
*/

package aronnax

import (
	"math"

	"github.com/ctessum/sparse"
)

// physics selects between the reduced-gravity and n-layer formulations.
// The two variants differ in the Bernoulli potential and in whether the
// thickness diffusion must sum to zero over the column.
type physics interface {
	bernoulli(m *Model, h, u, v, b *sparse.DenseArray, t tile)
	closeThicknessDiffusion(m *Model, t tile)
}

// scratch holds the work arrays shared by the kernels. Allocated once.
type scratch struct {
	b    *sparse.DenseArray // Bernoulli potential at H points
	zeta *sparse.DenseArray // relative vorticity at Z points
	diff *sparse.DenseArray // per-layer horizontal thickness diffusion

	hHalf, uHalf, vHalf *sparse.DenseArray // RK2 half-step state

	ub, vb  *sparse.DenseArray // barotropic velocities
	etaStar *sparse.DenseArray // provisional free surface
	rhs     *sparse.DenseArray // right-hand side for the elliptic solve
	etaNew  *sparse.DenseArray
	res     *sparse.DenseArray // solver residual
}

func newScratch(layers, ny, nx int) *scratch {
	return &scratch{
		b:       sparse.ZerosDense(layers, ny+2, nx+2),
		zeta:    sparse.ZerosDense(layers, ny+2, nx+2),
		diff:    sparse.ZerosDense(layers, ny+2, nx+2),
		hHalf:   sparse.ZerosDense(layers, ny+2, nx+2),
		uHalf:   sparse.ZerosDense(layers, ny+2, nx+2),
		vHalf:   sparse.ZerosDense(layers, ny+2, nx+2),
		ub:      sparse.ZerosDense(ny+2, nx+2),
		vb:      sparse.ZerosDense(ny+2, nx+2),
		etaStar: sparse.ZerosDense(ny+2, nx+2),
		rhs:     sparse.ZerosDense(ny+2, nx+2),
		etaNew:  sparse.ZerosDense(ny+2, nx+2),
		res:     sparse.ZerosDense(ny+2, nx+2),
	}
}

// kineticEnergy is the quarter-sum of the squared face velocities
// surrounding an H point.
func kineticEnergy(u, v *sparse.DenseArray, k, j, i int) float64 {
	uw := u.Get(k, j, i)
	ue := u.Get(k, j, i+1)
	vs := v.Get(k, j, i)
	vn := v.Get(k, j+1, i)
	return (uw*uw + ue*ue + vs*vs + vn*vn) / 4
}

// redGravPhysics implements the reduced-gravity formulation: the layer
// below the deepest active layer is infinitely thick and at rest.
type redGravPhysics struct{}

func (redGravPhysics) bernoulli(m *Model, h, u, v, b *sparse.DenseArray, t tile) {
	nl := m.Layers
	cum := make([]float64, nl) // thickness from the surface down to each layer's bottom
	for j := 1; j <= m.Ny; j++ {
		for i := t.ilower; i <= t.iupper; i++ {
			c := 0.
			for l := 0; l < nl; l++ {
				c += h.Get(l, j, i)
				cum[l] = c
			}
			// Work upward so each layer adds one term to the one below it.
			p := 0.
			for k := nl - 1; k >= 0; k-- {
				p += m.G[k] * cum[k]
				b.Set(p+kineticEnergy(u, v, k, j, i), k, j, i)
			}
		}
	}
}

func (redGravPhysics) closeThicknessDiffusion(*Model, tile) {}

// nLayerPhysics implements the n-layer isopycnal formulation with an
// active free surface.
type nLayerPhysics struct{}

func (nLayerPhysics) bernoulli(m *Model, h, u, v, b *sparse.DenseArray, t tile) {
	nl := m.Layers
	zb := make([]float64, nl)
	for j := 1; j <= m.Ny; j++ {
		for i := t.ilower; i <= t.iupper; i++ {
			// zb[k] is the elevation of the bottom interface of layer k.
			zb[nl-1] = -m.depth.Get(j, i)
			for k := nl - 2; k >= 0; k-- {
				zb[k] = zb[k+1] + h.Get(k+1, j, i)
			}
			mgy := 0. // Montgomery potential; zero in the top layer
			b.Set(mgy+kineticEnergy(u, v, 0, j, i), 0, j, i)
			for k := 1; k < nl; k++ {
				mgy += m.G[k] * zb[k-1]
				b.Set(mgy+kineticEnergy(u, v, k, j, i), k, j, i)
			}
		}
	}
}

// closeThicknessDiffusion replaces the bottom layer's horizontal thickness
// diffusion with the negative sum of the other layers', so the diffusion
// moves no mass in or out of the water column.
func (nLayerPhysics) closeThicknessDiffusion(m *Model, t tile) {
	nl := m.Layers
	if nl < 2 {
		return
	}
	diff := m.scr.diff
	for j := 1; j <= m.Ny; j++ {
		for i := t.ilower; i <= t.iupper; i++ {
			sum := 0.
			for k := 0; k < nl-1; k++ {
				sum += diff.Get(k, j, i)
			}
			diff.Set(-sum, nl-1, j, i)
		}
	}
}

// vorticity computes relative vorticity at Z points (cell corners).
func (m *Model) vorticity(u, v, zeta *sparse.DenseArray, t tile) {
	for k := 0; k < m.Layers; k++ {
		for j := 1; j <= m.Ny; j++ {
			for i := t.ilower; i <= t.iupper; i++ {
				z := (v.Get(k, j, i)-v.Get(k, j, i-1))/m.Dx -
					(u.Get(k, j, i)-u.Get(k, j-1, i))/m.Dy
				zeta.Set(z, k, j, i)
			}
		}
	}
}

// dhdt computes the thickness tendency: masked horizontal diffusion,
// vertical thickness diffusion, advective flux divergence, and sponge
// relaxation. The horizontal diffusion is also stored per layer in
// m.scr.diff so the bottom-layer closure can run afterwards.
func (m *Model) dhdt(h, u, v, out *sparse.DenseArray, t tile) {
	dx2 := m.Dx * m.Dx
	dy2 := m.Dy * m.Dy
	nl := m.Layers
	for k := 0; k < nl; k++ {
		kh := m.Kh[k]
		for j := 1; j <= m.Ny; j++ {
			for i := t.ilower; i <= t.iupper; i++ {
				hc := h.Get(k, j, i)

				// Horizontal diffusion with reflecting dry neighbors.
				nb := func(jj, ii int) float64 {
					if m.wetmask.Get(jj, ii) == 0 {
						return hc
					}
					return h.Get(k, jj, ii)
				}
				lap := (nb(j, i-1)-2*hc+nb(j, i+1))/dx2 +
					(nb(j-1, i)-2*hc+nb(j+1, i))/dy2
				d := kh * lap
				m.scr.diff.Set(d, k, j, i)

				// Vertical thickness diffusion between adjacent layers.
				vd := 0.
				if m.Kv != 0 && nl > 1 {
					switch {
					case k == 0:
						vd = m.Kv * (1/h.Get(1, j, i) - 1/hc)
					case k == nl-1:
						vd = m.Kv * (1/h.Get(nl-2, j, i) - 1/hc)
					default:
						vd = m.Kv * (1/h.Get(k-1, j, i) - 2/hc + 1/h.Get(k+1, j, i))
					}
				}

				// Advective flux divergence with face-centered thickness.
				fw := u.Get(k, j, i) * (hc + h.Get(k, j, i-1)) / 2
				fe := u.Get(k, j, i+1) * (h.Get(k, j, i+1) + hc) / 2
				fs := v.Get(k, j, i) * (hc + h.Get(k, j-1, i)) / 2
				fn := v.Get(k, j+1, i) * (h.Get(k, j+1, i) + hc) / 2
				adv := -(fe-fw)/m.Dx - (fn-fs)/m.Dy

				sponge := m.spongeHTimeScale.Get(k, j, i) *
					(m.spongeH.Get(k, j, i) - hc)

				out.Set(vd+adv+sponge, k, j, i)
			}
		}
	}
}

// finishDhdt adds the (possibly closed) horizontal diffusion and applies
// the wet mask.
func (m *Model) finishDhdt(out *sparse.DenseArray, t tile) {
	for k := 0; k < m.Layers; k++ {
		for j := 1; j <= m.Ny; j++ {
			for i := t.ilower; i <= t.iupper; i++ {
				d := (out.Get(k, j, i) + m.scr.diff.Get(k, j, i)) * m.wetmask.Get(j, i)
				out.Set(d, k, j, i)
			}
		}
	}
}

// dudt computes the zonal momentum tendency at U points.
func (m *Model) dudt(h, u, v, b, zeta, out *sparse.DenseArray, windScale float64, t tile) {
	dx2 := m.Dx * m.Dx
	dy2 := m.Dy * m.Dy
	nl := m.Layers
	for k := 0; k < nl; k++ {
		for j := 1; j <= m.Ny; j++ {
			for i := t.ilower; i <= t.iupper; i++ {
				uc := u.Get(k, j, i)

				// Viscosity. The y-Laplacian blends in the slip condition
				// at closed faces.
				un := u.Get(k, j+1, i)
				if m.hfacN.Get(j, i) == 0 {
					un = (1 - 2*m.Slip) * uc
				}
				us := u.Get(k, j-1, i)
				if m.hfacS.Get(j, i) == 0 {
					us = (1 - 2*m.Slip) * uc
				}
				visc := m.Au * ((u.Get(k, j, i-1)-2*uc+u.Get(k, j, i+1))/dx2 +
					(us-2*uc+un)/dy2)

				// Coriolis and vorticity advection.
				cor := 0.25 * (m.fu.Get(j, i) +
					0.5*(zeta.Get(k, j, i)+zeta.Get(k, j+1, i))) *
					(v.Get(k, j, i-1) + v.Get(k, j, i) +
						v.Get(k, j+1, i-1) + v.Get(k, j+1, i))

				pres := -(b.Get(k, j, i) - b.Get(k, j, i-1)) / m.Dx

				sponge := m.spongeUTimeScale.Get(k, j, i) *
					(m.spongeU.Get(k, j, i) - uc)

				d := visc + cor + pres + sponge

				if k == 0 {
					hh := h.Get(0, j, i) + h.Get(0, j, i-1)
					wx := m.windX.Get(j, i) * windScale
					if m.RelativeWind {
						wy := uPoint(m.windY, 0, j, i) * windScale
						vu := uPoint(v, k, j, i)
						relU := wx - uc
						relV := wy - vu
						speed := math.Hypot(relU, relV)
						d += 2 * m.Cd * relU * speed / hh
					} else {
						d += 2 * wx / (m.Rho0 * hh)
					}
				}

				// Vertical momentum coupling between adjacent layers.
				if m.Ar != 0 && nl > 1 {
					switch {
					case k == 0:
						d += m.Ar * (u.Get(1, j, i) - uc)
					case k == nl-1:
						d += m.Ar * (u.Get(nl-2, j, i) - uc)
					default:
						d += m.Ar * (u.Get(k-1, j, i) - 2*uc + u.Get(k+1, j, i))
					}
				}

				if !m.RedGrav && k == nl-1 {
					d -= m.BotDrag * uc
				}

				out.Set(d, k, j, i)
			}
		}
	}
}

// dvdt computes the meridional momentum tendency at V points; it mirrors
// dudt across the axes.
func (m *Model) dvdt(h, u, v, b, zeta, out *sparse.DenseArray, windScale float64, t tile) {
	dx2 := m.Dx * m.Dx
	dy2 := m.Dy * m.Dy
	nl := m.Layers
	for k := 0; k < nl; k++ {
		for j := 1; j <= m.Ny; j++ {
			for i := t.ilower; i <= t.iupper; i++ {
				vc := v.Get(k, j, i)

				ve := v.Get(k, j, i+1)
				if m.hfacE.Get(j, i) == 0 {
					ve = (1 - 2*m.Slip) * vc
				}
				vw := v.Get(k, j, i-1)
				if m.hfacW.Get(j, i) == 0 {
					vw = (1 - 2*m.Slip) * vc
				}
				visc := m.Au * ((vw-2*vc+ve)/dx2 +
					(v.Get(k, j-1, i)-2*vc+v.Get(k, j+1, i))/dy2)

				cor := -0.25 * (m.fv.Get(j, i) +
					0.5*(zeta.Get(k, j, i)+zeta.Get(k, j, i+1))) *
					(u.Get(k, j-1, i) + u.Get(k, j, i) +
						u.Get(k, j-1, i+1) + u.Get(k, j, i+1))

				pres := -(b.Get(k, j, i) - b.Get(k, j-1, i)) / m.Dy

				sponge := m.spongeVTimeScale.Get(k, j, i) *
					(m.spongeV.Get(k, j, i) - vc)

				d := visc + cor + pres + sponge

				if k == 0 {
					hh := h.Get(0, j, i) + h.Get(0, j-1, i)
					wy := m.windY.Get(j, i) * windScale
					if m.RelativeWind {
						wx := vPoint(m.windX, 0, j, i) * windScale
						uv := vPoint(u, k, j, i)
						relU := wx - uv
						relV := wy - vc
						speed := math.Hypot(relU, relV)
						d += 2 * m.Cd * relV * speed / hh
					} else {
						d += 2 * wy / (m.Rho0 * hh)
					}
				}

				if m.Ar != 0 && nl > 1 {
					switch {
					case k == 0:
						d += m.Ar * (v.Get(1, j, i) - vc)
					case k == nl-1:
						d += m.Ar * (v.Get(nl-2, j, i) - vc)
					default:
						d += m.Ar * (v.Get(k-1, j, i) - 2*vc + v.Get(k+1, j, i))
					}
				}

				if !m.RedGrav && k == nl-1 {
					d -= m.BotDrag * vc
				}

				out.Set(d, k, j, i)
			}
		}
	}
}

// uPoint interpolates a V-point quantity (or a 2-d field stored at V
// points, passed with k=0) to the U point at (k,j,i).
func uPoint(f *sparse.DenseArray, k, j, i int) float64 {
	if len(f.Shape) == 2 {
		return 0.25 * (f.Get(j, i) + f.Get(j, i-1) + f.Get(j+1, i) + f.Get(j+1, i-1))
	}
	return 0.25 * (f.Get(k, j, i) + f.Get(k, j, i-1) + f.Get(k, j+1, i) + f.Get(k, j+1, i-1))
}

// vPoint interpolates a U-point quantity to the V point at (k,j,i).
func vPoint(f *sparse.DenseArray, k, j, i int) float64 {
	if len(f.Shape) == 2 {
		return 0.25 * (f.Get(j, i) + f.Get(j-1, i) + f.Get(j, i+1) + f.Get(j-1, i+1))
	}
	return 0.25 * (f.Get(k, j, i) + f.Get(k, j-1, i) + f.Get(k, j, i+1) + f.Get(k, j-1, i+1))
}

// computeTendencies evaluates the full right-hand side at the given state,
// writing the result into out. The Bernoulli potential and vorticity are
// refreshed first; every written field gets its halo wrapped before the
// next kernel reads it.
func (m *Model) computeTendencies(h, u, v *sparse.DenseArray, out *tendency, windScale float64) {
	m.pool.run(func(t tile) { m.phys.bernoulli(m, h, u, v, m.scr.b, t) })
	m.wrapPeriodic3(m.scr.b)

	m.pool.run(func(t tile) { m.vorticity(u, v, m.scr.zeta, t) })
	m.wrapPeriodic3(m.scr.zeta)

	m.pool.run(func(t tile) { m.dhdt(h, u, v, out.H, t) })
	m.pool.run(func(t tile) { m.phys.closeThicknessDiffusion(m, t) })
	m.pool.run(func(t tile) { m.finishDhdt(out.H, t) })
	m.wrapPeriodic3(out.H)

	m.pool.run(func(t tile) { m.dudt(h, u, v, m.scr.b, m.scr.zeta, out.U, windScale, t) })
	m.wrapPeriodic3(out.U)

	m.pool.run(func(t tile) { m.dvdt(h, u, v, m.scr.b, m.scr.zeta, out.V, windScale, t) })
	m.wrapPeriodic3(out.V)
}
