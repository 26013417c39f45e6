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
	"path/filepath"
	"testing"

	"github.com/ctessum/sparse"
)

// A U-centered field written out and read back matches on the staggered
// extent, halo wrap included.
func TestFieldRoundTrip(t *testing.T) {
	m, err := New(testConfig(5, 4, 2), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer m.pool.finalize()
	for k := 0; k < m.Layers; k++ {
		for j := 1; j <= m.Ny; j++ {
			for i := 1; i <= m.Nx; i++ {
				m.u.Set(float64(100*k+10*j+i), k, j, i)
			}
		}
	}
	m.wrapPeriodic3(m.u)

	name := filepath.Join(t.TempDir(), "u.bin")
	if err := m.writeField(name, uPoints, m.Layers, m.u); err != nil {
		t.Fatal(err)
	}
	got := sparse.ZerosDense(m.Layers, m.Ny+2, m.Nx+2)
	if err := m.readField(name, uPoints, m.Layers, got); err != nil {
		t.Fatal(err)
	}
	for k := 0; k < m.Layers; k++ {
		for j := 1; j <= m.Ny; j++ {
			for i := 1; i <= m.Nx+1; i++ {
				if got.Get(k, j, i) != m.u.Get(k, j, i) {
					t.Fatalf("mismatch at (%d,%d,%d): %g != %g",
						k, j, i, got.Get(k, j, i), m.u.Get(k, j, i))
				}
			}
		}
	}
}

// Empty file names fall back to the default scalars and vectors.
func TestInputDefaults(t *testing.T) {
	cfg := testConfig(6, 6, 2)
	cfg.RedGrav = false
	cfg.G = []float64{9.8, 0.02}
	cfg.H0 = 800
	cfg.FreeSurfFac = 1
	m, err := New(cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer m.pool.finalize()
	for j := 1; j <= m.Ny; j++ {
		for i := 1; i <= m.Nx; i++ {
			if m.wetmask.Get(j, i) != 1 {
				t.Fatal("default wet mask should be fully wet")
			}
			if m.depth.Get(j, i) != 800 {
				t.Fatal("default depth should equal H0")
			}
			if m.fu.Get(j, i) != 0 || m.windX.Get(j, i) != 0 {
				t.Fatal("default Coriolis and wind should be zero")
			}
		}
	}
	for k := 0; k < m.Layers; k++ {
		if m.h.Get(k, 3, 3) != m.HMean[k] {
			t.Fatalf("default thickness for layer %d should be hmean", k)
		}
	}
}

// Missing input files are configuration errors, reported at startup.
func TestMissingInputFile(t *testing.T) {
	cfg := testConfig(4, 4, 1)
	cfg.InitHFile = filepath.Join(t.TempDir(), "does-not-exist.bin")
	if _, err := New(cfg, testLogger()); err == nil {
		t.Fatal("expected an error for a missing input file")
	}
}
