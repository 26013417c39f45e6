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
	"io/ioutil"
	"math"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// testLogger discards all output.
func testLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = ioutil.Discard
	return l
}

// testConfig is a small reduced-gravity setup usable as a starting point
// for most tests.
func testConfig(nx, ny, layers int) Config {
	g := make([]float64, layers)
	hmean := make([]float64, layers)
	for k := range g {
		g[k] = 0.01
		hmean[k] = 400.
	}
	return Config{
		Nx: nx, Ny: ny, Layers: layers,
		Dx: 2e4, Dy: 2e4,
		Dt: 600, NTimeSteps: 10,
		G: g, HMean: hmean,
		H0:             400. * float64(layers),
		Rho0:           1026.,
		Maxits:         1000,
		Eps:            1e-9,
		ThicknessError: 1e-2,
		RedGrav:        true,
	}
}

func absDifferent(a, b, tolerance float64) bool {
	return math.Abs(a-b) > tolerance
}

// uniformF sets a constant Coriolis parameter at both staggered
// positions.
func uniformF(m *Model, f float64) {
	m.fill2(m.fu, f)
	m.fill2(m.fv, f)
}

// fill3 sets every element of a 3-d field, halo included.
func fill3(f *sparse.DenseArray, v float64) {
	for i := range f.Elements {
		f.Elements[i] = v
	}
}

// spatialSpread returns the difference between the largest and smallest
// interior value of layer k.
func spatialSpread(m *Model, f *sparse.DenseArray, k int) float64 {
	lo := math.Inf(1)
	hi := math.Inf(-1)
	for j := 1; j <= m.Ny; j++ {
		for i := 1; i <= m.Nx; i++ {
			v := f.Get(k, j, i)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return hi - lo
}

// totalMass integrates thickness over the wet interior.
func totalMass(m *Model) float64 {
	sum := 0.
	for k := 0; k < m.Layers; k++ {
		for j := 1; j <= m.Ny; j++ {
			for i := 1; i <= m.Nx; i++ {
				sum += m.h.Get(k, j, i) * m.wetmask.Get(j, i)
			}
		}
	}
	return sum
}
