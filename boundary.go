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

import "github.com/ctessum/sparse"

// wrapPeriodic2 refreshes the halo of a 2-d field: column nx gets copied
// into column 0, column 1 into column nx+1, and likewise in y.
func (m *Model) wrapPeriodic2(f *sparse.DenseArray) {
	nx, ny := m.Nx, m.Ny
	for j := 0; j < ny+2; j++ {
		f.Set(f.Get(j, nx), j, 0)
		f.Set(f.Get(j, 1), j, nx+1)
	}
	for i := 0; i < nx+2; i++ {
		f.Set(f.Get(ny, i), 0, i)
		f.Set(f.Get(1, i), ny+1, i)
	}
}

// wrapPeriodic3 refreshes the halo of every layer of a 3-d field.
func (m *Model) wrapPeriodic3(f *sparse.DenseArray) {
	nx, ny := m.Nx, m.Ny
	for k := 0; k < m.Layers; k++ {
		for j := 0; j < ny+2; j++ {
			f.Set(f.Get(k, j, nx), k, j, 0)
			f.Set(f.Get(k, j, 1), k, j, nx+1)
		}
		for i := 0; i < nx+2; i++ {
			f.Set(f.Get(k, ny, i), k, 0, i)
			f.Set(f.Get(k, 1, i), k, ny+1, i)
		}
	}
}

// deriveFaceMasks fills in the four face masks from the wet mask. A face
// is closed (0) when the cells on its two sides disagree about being wet.
func (m *Model) deriveFaceMasks() {
	nx, ny := m.Nx, m.Ny
	m.hfacW = sparse.ZerosDense(ny+2, nx+2)
	m.hfacE = sparse.ZerosDense(ny+2, nx+2)
	m.hfacN = sparse.ZerosDense(ny+2, nx+2)
	m.hfacS = sparse.ZerosDense(ny+2, nx+2)
	for j := 1; j <= ny; j++ {
		for i := 1; i <= nx; i++ {
			w := m.wetmask.Get(j, i)
			set := func(f *sparse.DenseArray, nb float64) {
				if nb != w {
					f.Set(0, j, i)
				} else {
					f.Set(1, j, i)
				}
			}
			set(m.hfacW, m.wetmask.Get(j, i-1))
			set(m.hfacE, m.wetmask.Get(j, i+1))
			set(m.hfacS, m.wetmask.Get(j-1, i))
			set(m.hfacN, m.wetmask.Get(j+1, i))
		}
	}
	m.wrapPeriodic2(m.hfacW)
	m.wrapPeriodic2(m.hfacE)
	m.wrapPeriodic2(m.hfacN)
	m.wrapPeriodic2(m.hfacS)
}

// applyBoundary zeroes normal flow through land faces and any velocity in
// dry cells, then refreshes the halos.
func (m *Model) applyBoundary(u, v *sparse.DenseArray) {
	for k := 0; k < m.Layers; k++ {
		for j := 1; j <= m.Ny; j++ {
			for i := 1; i <= m.Nx; i++ {
				u.Set(u.Get(k, j, i)*m.hfacW.Get(j, i)*m.wetmask.Get(j, i), k, j, i)
				v.Set(v.Get(k, j, i)*m.hfacS.Get(j, i)*m.wetmask.Get(j, i), k, j, i)
			}
		}
	}
	m.wrapPeriodic3(u)
	m.wrapPeriodic3(v)
}
