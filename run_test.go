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

// maskBasin dries the outer ring of cells, leaving a closed rectangular
// basin, and re-derives the face masks.
func maskBasin(m *Model) {
	for j := 1; j <= m.Ny; j++ {
		for i := 1; i <= m.Nx; i++ {
			if i == 1 || i == m.Nx || j == 1 || j == m.Ny {
				m.wetmask.Set(0, j, i)
			}
		}
	}
	m.wrapPeriodic2(m.wetmask)
	m.deriveFaceMasks()
}

// Scenario: a reduced-gravity basin spun up from rest stays bounded and
// finite. (A shortened rendition of the 10001-step spin-up.)
func TestReducedGravitySpinUp(t *testing.T) {
	cfg := testConfig(10, 10, 1)
	cfg.Dt = 600
	cfg.NTimeSteps = 400
	cfg.HMin = 100
	m, err := New(cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	maskBasin(m)
	uniformF(m, 1e-4)
	// Weak wind forcing to push the basin off its rest state.
	m.fill2(m.windX, 0.01)

	if err := m.Run(); err != nil {
		t.Fatal(err)
	}

	maxDrift := 0.
	for j := 1; j <= m.Ny; j++ {
		for i := 1; i <= m.Nx; i++ {
			if m.wetmask.Get(j, i) == 0 {
				continue
			}
			if d := math.Abs(m.h.Get(0, j, i) - 400); d > maxDrift {
				maxDrift = d
			}
		}
	}
	if maxDrift > 5 {
		t.Errorf("thickness drifted %g m from rest; want a few meters at most", maxDrift)
	}
	if err := m.nanCheck(m.Step()); err != nil {
		t.Error(err)
	}
}

// Scenario: a sinusoidal zonal wind spins up a circulation whose
// vorticity matches the sign of the imposed curl, and the zonal flow
// grows during spin-up.
func TestWindDrivenGyre(t *testing.T) {
	cfg := testConfig(12, 12, 1)
	cfg.Dt = 600
	cfg.NTimeSteps = 100
	m, err := New(cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	maskBasin(m)
	uniformF(m, 1e-4)
	ly := float64(m.Ny) * m.Dy
	for j := 1; j <= m.Ny; j++ {
		y := (float64(j) - 0.5) * m.Dy
		for i := 1; i <= m.Nx; i++ {
			m.windX.Set(0.05*math.Sin(math.Pi*y/ly), j, i)
		}
	}
	m.wrapPeriodic2(m.windX)

	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	early := m.u.AbsMax()

	// Keep going; the flow should keep accelerating during early spin-up.
	cfg2 := cfg
	cfg2.NTimeSteps = 300
	m2, err := New(cfg2, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	maskBasin(m2)
	uniformF(m2, 1e-4)
	for j := 1; j <= m2.Ny; j++ {
		y := (float64(j) - 0.5) * m2.Dy
		for i := 1; i <= m2.Nx; i++ {
			m2.windX.Set(0.05*math.Sin(math.Pi*y/ly), j, i)
		}
	}
	m2.wrapPeriodic2(m2.windX)
	if err := m2.Run(); err != nil {
		t.Fatal(err)
	}
	late := m2.u.AbsMax()

	if early == 0 {
		t.Fatal("wind produced no zonal flow")
	}
	if late <= early {
		t.Errorf("zonal flow did not grow during spin-up: %g then %g", early, late)
	}

	// Sign check: the wind stress curl is negative in the southern half
	// of the basin and positive in the northern half; the relative
	// vorticity of the spun-up flow matches.
	m2.vorticity(m2.u, m2.v, m2.scr.zeta, tile{1, m2.Nx})
	south, north := 0., 0.
	for j := 2; j < m2.Ny; j++ {
		for i := 2; i < m2.Nx; i++ {
			if m2.wetmask.Get(j, i) == 0 {
				continue
			}
			z := m2.scr.zeta.Get(0, j, i)
			if float64(j) <= float64(m2.Ny)/2 {
				south += z
			} else {
				north += z
			}
		}
	}
	if south >= 0 {
		t.Errorf("southern-half vorticity = %g; want negative", south)
	}
	if north <= 0 {
		t.Errorf("northern-half vorticity = %g; want positive", north)
	}
}

// The NaN guard aborts the run with the offending step in the error.
func TestNaNGuard(t *testing.T) {
	cfg := testConfig(6, 6, 1)
	m, err := New(cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer m.pool.finalize()
	m.h.Set(math.NaN(), 0, 3, 3)
	if err := m.nanCheck(7); err == nil {
		t.Fatal("expected the NaN guard to fire")
	}
}

// The minimum-thickness clip floors every layer at hmin.
func TestClipThickness(t *testing.T) {
	cfg := testConfig(6, 6, 1)
	cfg.HMin = 50
	m, err := New(cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer m.pool.finalize()
	m.h.Set(3, 0, 2, 2)
	m.clipThickness(1)
	if got := m.h.Get(0, 2, 2); got != 50 {
		t.Errorf("clipped thickness = %g; want 50", got)
	}
	if got := m.h.Get(0, 3, 3); got != 400 {
		t.Errorf("untouched thickness = %g; want 400", got)
	}
}

// The worker-count contract: more workers than columns is a
// configuration error.
func TestWorkerCountMismatch(t *testing.T) {
	cfg := testConfig(4, 4, 1)
	cfg.NProcX = 3
	cfg.NProcY = 2
	if _, err := New(cfg, testLogger()); err == nil {
		t.Fatal("expected a worker-count error")
	}
}

// Tiles partition the interior exactly once.
func TestTilePartition(t *testing.T) {
	p := newTilePool(3, 10)
	defer p.finalize()
	covered := make([]int, 11)
	for _, tl := range p.tiles {
		for i := tl.ilower; i <= tl.iupper; i++ {
			covered[i]++
		}
	}
	for i := 1; i <= 10; i++ {
		if covered[i] != 1 {
			t.Fatalf("column %d covered %d times", i, covered[i])
		}
	}
}

// Multi-tile runs give the same answer as a single tile.
func TestTiledRunMatchesSerial(t *testing.T) {
	run := func(npx int) *Model {
		cfg := testConfig(9, 9, 1)
		cfg.NTimeSteps = 25
		cfg.NProcX = npx
		m, err := New(cfg, testLogger())
		if err != nil {
			t.Fatal(err)
		}
		maskBasin(m)
		uniformF(m, 1e-4)
		m.fill2(m.windX, 0.02)
		if err := m.Run(); err != nil {
			t.Fatal(err)
		}
		return m
	}
	serial := run(1)
	tiled := run(3)
	for idx := range serial.h.Elements {
		if serial.h.Elements[idx] != tiled.h.Elements[idx] ||
			serial.u.Elements[idx] != tiled.u.Elements[idx] {
			t.Fatal("tiled run differs from the serial run")
		}
	}
}
