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

// Adams-Bashforth 3 coefficients.
const (
	ab3Cur     = 23. / 12.
	ab3Old     = -16. / 12.
	ab3VeryOld = 5. / 12.
)

// windScale returns the wind magnitude scaling for time step n.
func (m *Model) windScale(n int) float64 {
	if m.windMag == nil {
		return 1
	}
	i := n - m.Niter0 - 1
	if i < 0 {
		i = 0
	}
	if i >= len(m.windMag) {
		i = len(m.windMag) - 1
	}
	return m.windMag[i]
}

// axpy adds scale*x to y elementwise. The halo entries take part too;
// they are consistent on both sides because every field is wrapped after
// it is written.
func axpy(scale float64, x, y *sparse.DenseArray) {
	for i, v := range x.Elements {
		y.Elements[i] += scale * v
	}
}

// rk2Step performs one bootstrap step: a Forward-Euler half step, a
// re-evaluation of the tendencies at the half point, and a full step using
// the re-evaluated tendencies. The half-point tendencies are left in slot,
// seeding the Adams-Bashforth history.
func (m *Model) rk2Step(slot *tendency, windScale float64) {
	s := m.scr
	m.computeTendencies(m.h, m.u, m.v, slot, windScale)

	copy(s.hHalf.Elements, m.h.Elements)
	copy(s.uHalf.Elements, m.u.Elements)
	copy(s.vHalf.Elements, m.v.Elements)
	axpy(m.Dt/2, slot.H, s.hHalf)
	axpy(m.Dt/2, slot.U, s.uHalf)
	axpy(m.Dt/2, slot.V, s.vHalf)
	m.applyBoundary(s.uHalf, s.vHalf)
	m.wrapPeriodic3(s.hHalf)

	m.computeTendencies(s.hHalf, s.uHalf, s.vHalf, slot, windScale)

	axpy(m.Dt, slot.H, m.h)
	axpy(m.Dt, slot.U, m.u)
	axpy(m.Dt, slot.V, m.v)
	m.applyBoundary(m.u, m.v)
	m.wrapPeriodic3(m.h)
}

// bootstrap fills the two older history slots with two RK2 half-steps,
// advancing the state twice. It runs neither the barotropic correction,
// nor the thickness clip, nor any output: its sole purpose is to seed the
// tendency history.
func (m *Model) bootstrap() {
	m.rk2Step(m.veryOld, m.windScale(m.Niter0+1))
	m.rk2Step(m.old, m.windScale(m.Niter0+2))
}

// ab3Combine advances the state with the third-order Adams-Bashforth
// formula using the current tendencies and the two history slots.
func (m *Model) ab3Combine() {
	axpy(m.Dt*ab3Cur, m.cur.H, m.h)
	axpy(m.Dt*ab3Old, m.old.H, m.h)
	axpy(m.Dt*ab3VeryOld, m.veryOld.H, m.h)

	axpy(m.Dt*ab3Cur, m.cur.U, m.u)
	axpy(m.Dt*ab3Old, m.old.U, m.u)
	axpy(m.Dt*ab3VeryOld, m.veryOld.U, m.u)

	axpy(m.Dt*ab3Cur, m.cur.V, m.v)
	axpy(m.Dt*ab3Old, m.old.V, m.v)
	axpy(m.Dt*ab3VeryOld, m.veryOld.V, m.v)
}

// rotateHistory shifts the tendency history by one step: very-old takes
// old, old takes current. The buffers rotate by reference; the retired
// very-old buffer is reused for the next step's tendencies.
func (m *Model) rotateHistory() {
	m.veryOld, m.old, m.cur = m.old, m.cur, m.veryOld
}
