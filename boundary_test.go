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
	"testing"
)

func TestFaceMasks(t *testing.T) {
	m, err := New(testConfig(6, 6, 1), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	// Dry out a single cell and re-derive.
	m.wetmask.Set(0, 3, 3)
	m.wrapPeriodic2(m.wetmask)
	m.deriveFaceMasks()

	// The four faces of the dry cell are closed from both sides.
	if m.hfacW.Get(3, 3) != 0 || m.hfacE.Get(3, 2) != 0 {
		t.Error("face between (2,3) and (3,3) should be closed")
	}
	if m.hfacE.Get(3, 3) != 0 || m.hfacW.Get(3, 4) != 0 {
		t.Error("face between (3,3) and (4,3) should be closed")
	}
	if m.hfacS.Get(3, 3) != 0 || m.hfacN.Get(2, 3) != 0 {
		t.Error("face between (3,2) and (3,3) should be closed")
	}
	if m.hfacN.Get(3, 3) != 0 || m.hfacS.Get(4, 3) != 0 {
		t.Error("face between (3,3) and (3,4) should be closed")
	}
	// A face well away from the dry cell is open.
	if m.hfacW.Get(1, 1) != 1 || m.hfacN.Get(5, 5) != 1 {
		t.Error("faces between wet cells should be open")
	}
}

// Periodic identity: after a wrap, column 0 equals column nx and column
// nx+1 equals column 1, and likewise in y.
func TestPeriodicWrap(t *testing.T) {
	m, err := New(testConfig(5, 4, 2), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	for k := 0; k < m.Layers; k++ {
		for j := 1; j <= m.Ny; j++ {
			for i := 1; i <= m.Nx; i++ {
				m.h.Set(float64(100*k+10*j+i), k, j, i)
			}
		}
	}
	m.wrapPeriodic3(m.h)
	for k := 0; k < m.Layers; k++ {
		for j := 1; j <= m.Ny; j++ {
			if m.h.Get(k, j, 0) != m.h.Get(k, j, m.Nx) {
				t.Fatalf("west halo mismatch at k=%d j=%d", k, j)
			}
			if m.h.Get(k, j, m.Nx+1) != m.h.Get(k, j, 1) {
				t.Fatalf("east halo mismatch at k=%d j=%d", k, j)
			}
		}
		for i := 0; i < m.Nx+2; i++ {
			if m.h.Get(k, 0, i) != m.h.Get(k, m.Ny, i) {
				t.Fatalf("south halo mismatch at k=%d i=%d", k, i)
			}
			if m.h.Get(k, m.Ny+1, i) != m.h.Get(k, 1, i) {
				t.Fatalf("north halo mismatch at k=%d i=%d", k, i)
			}
		}
	}
}

// Velocities vanish on closed faces and in dry cells after the boundary
// conditions are applied.
func TestApplyBoundary(t *testing.T) {
	m, err := New(testConfig(6, 6, 1), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	m.wetmask.Set(0, 3, 3)
	m.wrapPeriodic2(m.wetmask)
	m.deriveFaceMasks()

	fill3(m.u, 1.)
	fill3(m.v, 1.)
	m.applyBoundary(m.u, m.v)

	for j := 1; j <= m.Ny; j++ {
		for i := 1; i <= m.Nx; i++ {
			if m.hfacW.Get(j, i)*m.wetmask.Get(j, i) == 0 && m.u.Get(0, j, i) != 0 {
				t.Errorf("u nonzero at closed face (%d,%d)", i, j)
			}
			if m.hfacS.Get(j, i)*m.wetmask.Get(j, i) == 0 && m.v.Get(0, j, i) != 0 {
				t.Errorf("v nonzero at closed face (%d,%d)", i, j)
			}
			if m.wetmask.Get(j, i) == 0 && (m.u.Get(0, j, i) != 0 || m.v.Get(0, j, i) != 0) {
				t.Errorf("velocity nonzero in dry cell (%d,%d)", i, j)
			}
		}
	}
	// Faces between wet cells are untouched.
	if m.u.Get(0, 1, 1) != 1 {
		t.Error("u at an open face should be unchanged")
	}
}
