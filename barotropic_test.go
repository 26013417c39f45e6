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
	"testing"
)

func twoLayerConfig() Config {
	cfg := testConfig(10, 10, 2)
	cfg.RedGrav = false
	cfg.G = []float64{9.8, 0.02}
	cfg.HMean = []float64{300, 500}
	cfg.H0 = 800
	cfg.Dt = 100
	cfg.Slip = 0
	cfg.FreeSurfFac = 1
	cfg.Eps = 1e-9
	cfg.ThicknessError = 1e-4
	return cfg
}

// Scenario: a two-layer ocean at rest stays at rest. η stays within the
// solver tolerance of zero and the column thickness matches the depth.
func TestTwoLayerRest(t *testing.T) {
	cfg := twoLayerConfig()
	cfg.NTimeSteps = 30
	m, err := New(cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	uniformF(m, 14e-5)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}

	for j := 1; j <= m.Ny; j++ {
		for i := 1; i <= m.Nx; i++ {
			if e := m.eta.Get(j, i); math.Abs(e) > 1e-6 {
				t.Fatalf("eta(%d,%d) = %g; want ~0", i, j, e)
			}
			col := m.h.Get(0, j, i) + m.h.Get(1, j, i)
			want := m.depth.Get(j, i) + m.FreeSurfFac*m.eta.Get(j, i)
			if math.Abs(col-want) > m.ThicknessError*want {
				t.Fatalf("column thickness %g at (%d,%d); want %g", col, i, j, want)
			}
			if u := m.u.Get(0, j, i); math.Abs(u) > 1e-9 {
				t.Fatalf("u(%d,%d) = %g; want ~0", i, j, u)
			}
		}
	}
}

// Mass conservation: with no sponges and no wind, the wet-masked total
// thickness is invariant.
func TestMassConservation(t *testing.T) {
	cfg := twoLayerConfig()
	cfg.NTimeSteps = 40
	cfg.FreeSurfFac = 0 // rigid lid
	m, err := New(cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	uniformF(m, 1e-4)
	// Displace the internal interface with a smooth bump; the column
	// height stays equal to the depth.
	for j := 1; j <= m.Ny; j++ {
		for i := 1; i <= m.Nx; i++ {
			x := 2 * math.Pi * float64(i-1) / float64(m.Nx)
			y := 2 * math.Pi * float64(j-1) / float64(m.Ny)
			bump := 20 * math.Sin(x) * math.Sin(y)
			m.h.Set(300+bump, 0, j, i)
			m.h.Set(500-bump, 1, j, i)
		}
	}
	m.wrapPeriodic3(m.h)

	before := totalMass(m)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	after := totalMass(m)
	if rel := math.Abs(after-before) / before; rel > m.ThicknessError {
		t.Errorf("total mass drifted by %g (relative)", rel)
	}
}

// Time-reversal sanity: with all dissipation off, negating the velocities
// and integrating the same window again returns close to the start.
func TestReversibility(t *testing.T) {
	run := func(h0, u0, v0 []float64) *Model {
		cfg := testConfig(8, 8, 1)
		cfg.NTimeSteps = 6
		cfg.Dt = 50
		m, err := New(cfg, testLogger())
		if err != nil {
			t.Fatal(err)
		}
		if h0 != nil {
			copy(m.h.Elements, h0)
			copy(m.u.Elements, u0)
			copy(m.v.Elements, v0)
		} else {
			for j := 1; j <= m.Ny; j++ {
				for i := 1; i <= m.Nx; i++ {
					x := 2 * math.Pi * float64(i-1) / float64(m.Nx)
					m.h.Set(400+0.5*math.Sin(x), 0, j, i)
				}
			}
			m.wrapPeriodic3(m.h)
		}
		if err := m.Run(); err != nil {
			t.Fatal(err)
		}
		return m
	}

	fwd := run(nil, nil, nil)

	// Reverse: negate the velocities and integrate the same window.
	u := make([]float64, len(fwd.u.Elements))
	v := make([]float64, len(fwd.v.Elements))
	for i := range u {
		u[i] = -fwd.u.Elements[i]
		v[i] = -fwd.v.Elements[i]
	}
	back := run(fwd.h.Elements, u, v)

	for j := 1; j <= back.Ny; j++ {
		for i := 1; i <= back.Nx; i++ {
			x := 2 * math.Pi * float64(i-1) / float64(back.Nx)
			want := 400 + 0.5*math.Sin(x)
			if got := back.h.Get(0, j, i); absDifferent(got, want, 1e-4) {
				t.Fatalf("h(%d,%d) = %.8g after reversal; want %.8g", i, j, got, want)
			}
		}
	}
}
