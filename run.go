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

import "time"

const secondsPerDay = 86400.

// Run integrates the model for NTimeSteps steps. Within each step the
// stages execute in strict sequence: tendencies, Adams-Bashforth combine,
// boundary conditions, barotropic correction (n-layer only), minimum
// thickness, periodic wrap, average accumulation, history rotation,
// output. Any fatal condition shuts the worker pool down collectively
// before the error is returned.
func (m *Model) Run() error {
	defer m.pool.finalize()

	out, err := newOutputScheduler(m)
	if err != nil {
		return err
	}
	defer out.close()

	m.wrapPeriodic2(m.wetmask)
	m.wrapPeriodic3(m.h)
	m.applyBoundary(m.u, m.v)
	m.wrapPeriodic2(m.eta)

	first := m.Niter0 + 1
	last := m.Niter0 + m.NTimeSteps
	if m.Niter0 > 0 {
		if err := m.loadCheckpoint(); err != nil {
			return err
		}
	} else {
		// Two RK2 half-steps seed the tendency history; they produce no
		// output and skip the barotropic correction and the clip.
		m.bootstrap()
		m.step = 2
		first = 3
	}

	startTime := time.Now()
	stepTime := time.Now()
	logEvery := 1000
	if m.DebugLevel >= 1 {
		logEvery = 1
	}

	for n := first; n <= last; n++ {
		m.computeTendencies(m.h, m.u, m.v, m.cur, m.windScale(n))
		m.ab3Combine()
		m.applyBoundary(m.u, m.v)
		m.wrapPeriodic3(m.h)

		if !m.RedGrav {
			if err := m.barotropicCorrection(n); err != nil {
				return err
			}
		}

		m.clipThickness(n)
		m.wrapPeriodic3(m.h)

		out.accumulate()
		m.rotateHistory()
		m.step = n

		if err := out.emit(n); err != nil {
			return err
		}

		if n%logEvery == 0 || n == last {
			m.Log.Infof("step %-8d walltime=%6.3gh Δwalltime=%4.2gs timestep=%2.0fs day=%.4g",
				n, time.Since(startTime).Hours(), time.Since(stepTime).Seconds(),
				m.Dt, float64(n)*m.Dt/secondsPerDay)
			stepTime = time.Now()
		}
	}

	// A run with snapshots disabled still gets a final NaN check.
	if err := m.nanCheck(last); err != nil {
		return err
	}
	return nil
}
