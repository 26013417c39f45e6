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
	"fmt"
	"math"
)

// clipThickness enforces the minimum layer thickness. At most one warning
// per time step, citing the step number.
func (m *Model) clipThickness(n int) {
	if m.HMin <= 0 {
		return
	}
	clipped := false
	for k := 0; k < m.Layers; k++ {
		for j := 1; j <= m.Ny; j++ {
			for i := 1; i <= m.Nx; i++ {
				if m.h.Get(k, j, i) < m.HMin {
					m.h.Set(m.HMin, k, j, i)
					clipped = true
				}
			}
		}
	}
	if clipped {
		m.Log.Warnf("aronnax: step %d: layer thickness clipped to hmin=%g", n, m.HMin)
	}
}

// nanCheck aborts the run on the first NaN in the thickness field.
func (m *Model) nanCheck(n int) error {
	for _, v := range m.h.Elements {
		if math.IsNaN(v) {
			return fmt.Errorf("aronnax: NaN detected in layer thickness at step %d", n)
		}
	}
	return nil
}
