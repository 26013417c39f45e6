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
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// EllipticSolver solves A·η = rhs for the free-surface anomaly. eta
// holds the initial guess on entry and the solution on return. The main
// loop does not know which implementation is active.
type EllipticSolver interface {
	Solve(m *Model, a *aMatrix, eta, rhs *sparse.DenseArray) error
}

// SORSolver is the in-process default: Gauss-Seidel sweeps with in-place
// updates, accelerated by a Chebyshev schedule for the over-relaxation
// factor. The sweep is inherently sequential and runs on a single
// goroutine; runs wanting a parallel elliptic solve select CGSolver.
type SORSolver struct {
	Eps    float64
	Maxits int
	Log    logrus.FieldLogger
}

// rjac estimates the Jacobi spectral radius for a periodic rectangle.
func rjac(nx, ny int, dx, dy float64) float64 {
	dx2 := dx * dx
	dy2 := dy * dy
	return (math.Cos(math.Pi/float64(nx))*dy2 + math.Cos(math.Pi/float64(ny))*dx2) /
		(dx2 + dy2)
}

// Solve relaxes eta until the residual L1 norm has shrunk by Eps relative
// to the first pass, or Maxits passes have run (then it warns and keeps
// the best available result).
func (s *SORSolver) Solve(m *Model, a *aMatrix, eta, rhs *sparse.DenseArray) error {
	nx, ny := m.Nx, m.Ny
	rj := rjac(nx, ny, m.Dx, m.Dy)
	omega := 1.
	var l1First float64
	for it := 0; it < s.Maxits; it++ {
		l1 := 0.
		for j := 1; j <= ny; j++ {
			for i := 1; i <= nx; i++ {
				res := a.w.Get(j, i)*eta.Get(j, i-1) +
					a.e.Get(j, i)*eta.Get(j, i+1) +
					a.s.Get(j, i)*eta.Get(j-1, i) +
					a.n.Get(j, i)*eta.Get(j+1, i) +
					a.c.Get(j, i)*eta.Get(j, i) -
					rhs.Get(j, i)
				l1 += math.Abs(res)
				eta.AddVal(-omega*res/a.c.Get(j, i), j, i)
			}
		}
		// The stencil reads the halo, so refresh it every pass.
		m.wrapPeriodic2(eta)

		if it == 0 {
			l1First = l1
			if l1First == 0 {
				return nil
			}
			omega = 1 / (1 - 0.5*rj*rj)
			continue
		}
		if l1 < s.Eps*l1First {
			return nil
		}
		omega = 1 / (1 - 0.25*rj*rj*omega)
	}
	s.Log.Warnf("aronnax: SOR failed to converge within %d iterations", s.Maxits)
	return nil
}

// CGSolver solves the same five-point system with a diagonally
// preconditioned conjugate gradient. It stands in for the external
// distributed solver: same matrix, same right-hand side, same tolerance
// contract as SOR.
type CGSolver struct {
	Eps    float64
	Maxits int
	Log    logrus.FieldLogger

	// Work vectors over the interior, allocated on first use.
	x, b, r, z, p, ap []float64
}

func (s *CGSolver) init(n int) {
	if len(s.x) == n {
		return
	}
	s.x = make([]float64, n)
	s.b = make([]float64, n)
	s.r = make([]float64, n)
	s.z = make([]float64, n)
	s.p = make([]float64, n)
	s.ap = make([]float64, n)
}

// matvec applies the five-point operator with periodic neighbor indexing
// over the interior vector x, writing into y.
func (s *CGSolver) matvec(m *Model, a *aMatrix, x, y []float64) {
	nx, ny := m.Nx, m.Ny
	idx := func(j, i int) int {
		if i < 1 {
			i = nx
		} else if i > nx {
			i = 1
		}
		if j < 1 {
			j = ny
		} else if j > ny {
			j = 1
		}
		return (j-1)*nx + (i - 1)
	}
	for j := 1; j <= ny; j++ {
		for i := 1; i <= nx; i++ {
			y[idx(j, i)] = a.w.Get(j, i)*x[idx(j, i-1)] +
				a.e.Get(j, i)*x[idx(j, i+1)] +
				a.s.Get(j, i)*x[idx(j-1, i)] +
				a.n.Get(j, i)*x[idx(j+1, i)] +
				a.c.Get(j, i)*x[idx(j, i)]
		}
	}
}

// Solve runs preconditioned CG until the residual L1 norm has shrunk by
// Eps relative to the initial guess, or Maxits iterations have run.
func (s *CGSolver) Solve(m *Model, a *aMatrix, eta, rhs *sparse.DenseArray) error {
	nx, ny := m.Nx, m.Ny
	n := nx * ny
	s.init(n)

	for j := 1; j <= ny; j++ {
		for i := 1; i <= nx; i++ {
			s.x[(j-1)*nx+i-1] = eta.Get(j, i)
			s.b[(j-1)*nx+i-1] = rhs.Get(j, i)
		}
	}

	s.matvec(m, a, s.x, s.ap)
	copy(s.r, s.b)
	floats.AddScaled(s.r, -1, s.ap)
	l1First := floats.Norm(s.r, 1)
	if l1First == 0 {
		return nil
	}

	diag := func(j, i int) float64 { return a.c.Get(j, i) }
	precondition := func(r, z []float64) {
		for j := 1; j <= ny; j++ {
			for i := 1; i <= nx; i++ {
				k := (j-1)*nx + i - 1
				z[k] = r[k] / diag(j, i)
			}
		}
	}

	precondition(s.r, s.z)
	copy(s.p, s.z)
	rz := floats.Dot(s.r, s.z)
	converged := false
	for it := 0; it < s.Maxits; it++ {
		s.matvec(m, a, s.p, s.ap)
		alpha := rz / floats.Dot(s.p, s.ap)
		floats.AddScaled(s.x, alpha, s.p)
		floats.AddScaled(s.r, -alpha, s.ap)
		if floats.Norm(s.r, 1) < s.Eps*l1First {
			converged = true
			break
		}
		precondition(s.r, s.z)
		rzNew := floats.Dot(s.r, s.z)
		beta := rzNew / rz
		rz = rzNew
		for k := range s.p {
			s.p[k] = s.z[k] + beta*s.p[k]
		}
	}
	if !converged {
		s.Log.Warnf("aronnax: CG failed to converge within %d iterations", s.Maxits)
	}

	for j := 1; j <= ny; j++ {
		for i := 1; i <= nx; i++ {
			eta.Set(s.x[(j-1)*nx+i-1], j, i)
		}
	}
	m.wrapPeriodic2(eta)
	return nil
}
