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

// aMatrix holds the five-point stencil for the free-surface elliptic
// equation. Coefficients live at H points; the center coefficient is the
// negative sum of the faces minus freesurfFac/dt².
type aMatrix struct {
	w, e, s, n, c *sparse.DenseArray
}

func (m *Model) calcAMatrix() *aMatrix {
	nx, ny := m.Nx, m.Ny
	a := &aMatrix{
		w: sparse.ZerosDense(ny+2, nx+2),
		e: sparse.ZerosDense(ny+2, nx+2),
		s: sparse.ZerosDense(ny+2, nx+2),
		n: sparse.ZerosDense(ny+2, nx+2),
		c: sparse.ZerosDense(ny+2, nx+2),
	}
	g := m.G[0]
	dx2 := m.Dx * m.Dx
	dy2 := m.Dy * m.Dy
	for j := 1; j <= ny; j++ {
		for i := 1; i <= nx; i++ {
			d := m.depth.Get(j, i)
			aw := g * 0.5 * (d + m.depth.Get(j, i-1)) / dx2 * m.hfacW.Get(j, i)
			ae := g * 0.5 * (d + m.depth.Get(j, i+1)) / dx2 * m.hfacE.Get(j, i)
			as := g * 0.5 * (d + m.depth.Get(j-1, i)) / dy2 * m.hfacS.Get(j, i)
			an := g * 0.5 * (d + m.depth.Get(j+1, i)) / dy2 * m.hfacN.Get(j, i)
			a.w.Set(aw, j, i)
			a.e.Set(ae, j, i)
			a.s.Set(as, j, i)
			a.n.Set(an, j, i)
			ac := -(aw + ae + as + an) - m.FreeSurfFac/(m.Dt*m.Dt)
			if ac == 0 {
				// Dry cell with every face closed under a rigid lid:
				// make it an identity row so the solvers can divide by
				// the diagonal. Its right-hand side is always zero.
				ac = 1
			}
			a.c.Set(ac, j, i)
		}
	}
	m.wrapPeriodic2(a.w)
	m.wrapPeriodic2(a.e)
	m.wrapPeriodic2(a.s)
	m.wrapPeriodic2(a.n)
	m.wrapPeriodic2(a.c)
	return a
}

// barotropicVelocities integrates the provisional velocities over the
// column, weighting each layer by the face-centered thickness. The free
// surface contributes to the top layer through freesurfFac.
func (m *Model) barotropicVelocities(h, u, v, ub, vb *sparse.DenseArray, t tile) {
	for j := 1; j <= m.Ny; j++ {
		for i := t.ilower; i <= t.iupper; i++ {
			var sumU, sumV float64
			for k := 0; k < m.Layers; k++ {
				hc := h.Get(k, j, i)
				hw := h.Get(k, j, i-1)
				hs := h.Get(k, j-1, i)
				if k == 0 {
					hc += m.FreeSurfFac * m.eta.Get(j, i)
					hw += m.FreeSurfFac * m.eta.Get(j, i-1)
					hs += m.FreeSurfFac * m.eta.Get(j-1, i)
				}
				sumU += u.Get(k, j, i) * (hc + hw) / 2
				sumV += v.Get(k, j, i) * (hc + hs) / 2
			}
			ub.Set(sumU, j, i)
			vb.Set(sumV, j, i)
		}
	}
}

// barotropicCorrection solves the elliptic free-surface equation and
// applies the resulting pressure gradient to the provisional state,
// keeping the depth-integrated flow consistent with the surface slope.
// n-layer mode only.
func (m *Model) barotropicCorrection(n int) error {
	s := m.scr

	m.pool.run(func(t tile) { m.barotropicVelocities(m.h, m.u, m.v, s.ub, s.vb, t) })
	m.wrapPeriodic2(s.ub)
	m.wrapPeriodic2(s.vb)

	// Provisional free surface from the depth-integrated divergence.
	for j := 1; j <= m.Ny; j++ {
		for i := 1; i <= m.Nx; i++ {
			div := (s.ub.Get(j, i+1)-s.ub.Get(j, i))/m.Dx +
				(s.vb.Get(j+1, i)-s.vb.Get(j, i))/m.Dy
			s.etaStar.Set(m.FreeSurfFac*m.eta.Get(j, i)-m.Dt*div, j, i)
		}
	}
	m.wrapPeriodic2(s.etaStar)

	dt2 := m.Dt * m.Dt
	for j := 1; j <= m.Ny; j++ {
		for i := 1; i <= m.Nx; i++ {
			s.rhs.Set(-s.etaStar.Get(j, i)/dt2, j, i)
		}
	}
	m.wrapPeriodic2(s.rhs)

	// The provisional surface is the initial guess.
	copy(s.etaNew.Elements, s.etaStar.Elements)
	if err := m.solver.Solve(m, m.a, s.etaNew, s.rhs); err != nil {
		return err
	}

	for j := 1; j <= m.Ny; j++ {
		for i := 1; i <= m.Nx; i++ {
			s.etaNew.Set(s.etaNew.Get(j, i)*m.wetmask.Get(j, i), j, i)
		}
	}
	m.wrapPeriodic2(s.etaNew)
	copy(m.eta.Elements, s.etaNew.Elements)

	// Velocity correction from the new surface slope.
	g := m.G[0]
	m.pool.run(func(t tile) {
		for k := 0; k < m.Layers; k++ {
			for j := 1; j <= m.Ny; j++ {
				for i := t.ilower; i <= t.iupper; i++ {
					m.u.AddVal(-m.Dt*g*(m.eta.Get(j, i)-m.eta.Get(j, i-1))/m.Dx, k, j, i)
					m.v.AddVal(-m.Dt*g*(m.eta.Get(j, i)-m.eta.Get(j-1, i))/m.Dy, k, j, i)
				}
			}
		}
	})

	// Reconcile the layer thicknesses with the new column height.
	maxDrift := 0.
	for j := 1; j <= m.Ny; j++ {
		for i := 1; i <= m.Nx; i++ {
			if m.wetmask.Get(j, i) == 0 {
				continue
			}
			sum := 0.
			for k := 0; k < m.Layers; k++ {
				sum += m.h.Get(k, j, i)
			}
			r := (m.FreeSurfFac*m.eta.Get(j, i) + m.depth.Get(j, i)) / sum
			if d := math.Abs(r - 1); d > maxDrift {
				maxDrift = d
			}
			for k := 0; k < m.Layers; k++ {
				m.h.Set(m.h.Get(k, j, i)*r, k, j, i)
			}
		}
	}
	if maxDrift > m.ThicknessError {
		m.Log.Warnf("aronnax: step %d: thickness and free surface disagree by %.3g (tolerance %.3g)",
			n, maxDrift, m.ThicknessError)
	}
	m.wrapPeriodic3(m.h)

	m.applyBoundary(m.u, m.v)
	return nil
}
