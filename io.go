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
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/ctessum/sparse"
)

// Gridded inputs and outputs are unformatted raw binary: row-major
// little-endian float64, x varying fastest, without the halo. H-centered
// files hold nx×ny values per layer, U-centered (nx+1)×ny, and V-centered
// nx×(ny+1).

// stagger describes which staggered grid position a file's values live on.
type stagger int

const (
	hPoints stagger = iota
	uPoints
	vPoints
)

// extent gives the file dimensions (values per row, rows per layer) for a
// staggered position.
func (m *Model) extent(s stagger) (ni, nj int) {
	switch s {
	case uPoints:
		return m.Nx + 1, m.Ny
	case vPoints:
		return m.Nx, m.Ny + 1
	default:
		return m.Nx, m.Ny
	}
}

func readRaw(filename string, n int) ([]float64, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("aronnax: opening input file: %v", err)
	}
	defer f.Close()
	data := make([]float64, n)
	if err := binary.Read(bufio.NewReader(f), binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("aronnax: reading %s: %v", filename, err)
	}
	return data, nil
}

// readField fills a halo-padded field from a raw binary file. layers is 1
// for 2-d fields.
func (m *Model) readField(filename string, s stagger, layers int, dst *sparse.DenseArray) error {
	ni, nj := m.extent(s)
	data, err := readRaw(filename, ni*nj*layers)
	if err != nil {
		return err
	}
	p := 0
	for k := 0; k < layers; k++ {
		for j := 1; j <= nj; j++ {
			for i := 1; i <= ni; i++ {
				if layers == 1 && len(dst.Shape) == 2 {
					dst.Set(data[p], j, i)
				} else {
					dst.Set(data[p], k, j, i)
				}
				p++
			}
		}
	}
	if len(dst.Shape) == 2 {
		m.wrapPeriodic2(dst)
	} else {
		m.wrapPeriodic3(dst)
	}
	return nil
}

// writeField strips the halo and writes a field to a raw binary file.
func (m *Model) writeField(filename string, s stagger, layers int, src *sparse.DenseArray) error {
	ni, nj := m.extent(s)
	data := make([]float64, 0, ni*nj*layers)
	for k := 0; k < layers; k++ {
		for j := 1; j <= nj; j++ {
			for i := 1; i <= ni; i++ {
				if layers == 1 && len(src.Shape) == 2 {
					data = append(data, src.Get(j, i))
				} else {
					data = append(data, src.Get(k, j, i))
				}
			}
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("aronnax: creating output file: %v", err)
	}
	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, data); err != nil {
		f.Close()
		return fmt.Errorf("aronnax: writing %s: %v", filename, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// fill2 sets every interior value of a 2-d field to c and wraps.
func (m *Model) fill2(f *sparse.DenseArray, c float64) {
	for j := 1; j <= m.Ny; j++ {
		for i := 1; i <= m.Nx; i++ {
			f.Set(c, j, i)
		}
	}
	m.wrapPeriodic2(f)
}

// loadInputs reads every configured input file, substituting the default
// scalar or vector wherever a file name is empty.
func (m *Model) loadInputs() error {
	// Wet mask; the default is a fully wet, fully periodic domain.
	if m.WetMaskFile != "" {
		if err := m.readField(m.WetMaskFile, hPoints, 1, m.wetmask); err != nil {
			return err
		}
	} else {
		m.fill2(m.wetmask, 1)
	}

	if m.DepthFile != "" {
		if err := m.readField(m.DepthFile, hPoints, 1, m.depth); err != nil {
			return err
		}
	} else {
		m.fill2(m.depth, m.H0)
	}

	if m.FUFile != "" {
		if err := m.readField(m.FUFile, uPoints, 1, m.fu); err != nil {
			return err
		}
	}
	if m.FVFile != "" {
		if err := m.readField(m.FVFile, vPoints, 1, m.fv); err != nil {
			return err
		}
	}

	if m.ZonalWindFile != "" {
		if err := m.readField(m.ZonalWindFile, uPoints, 1, m.windX); err != nil {
			return err
		}
	}
	if m.MeridionalWindFile != "" {
		if err := m.readField(m.MeridionalWindFile, vPoints, 1, m.windY); err != nil {
			return err
		}
	}

	sponges := []struct {
		file string
		s    stagger
		dst  *sparse.DenseArray
	}{
		{m.SpongeHTimeScaleFile, hPoints, m.spongeHTimeScale},
		{m.SpongeUTimeScaleFile, uPoints, m.spongeUTimeScale},
		{m.SpongeVTimeScaleFile, vPoints, m.spongeVTimeScale},
		{m.SpongeHFile, hPoints, m.spongeH},
		{m.SpongeUFile, uPoints, m.spongeU},
		{m.SpongeVFile, vPoints, m.spongeV},
	}
	for _, sp := range sponges {
		if sp.file == "" {
			continue
		}
		if err := m.readField(sp.file, sp.s, m.Layers, sp.dst); err != nil {
			return err
		}
	}

	// Initial conditions.
	if m.InitHFile != "" {
		if err := m.readField(m.InitHFile, hPoints, m.Layers, m.h); err != nil {
			return err
		}
	} else {
		for k := 0; k < m.Layers; k++ {
			for j := 0; j < m.Ny+2; j++ {
				for i := 0; i < m.Nx+2; i++ {
					m.h.Set(m.HMean[k], k, j, i)
				}
			}
		}
	}
	if m.InitUFile != "" {
		if err := m.readField(m.InitUFile, uPoints, m.Layers, m.u); err != nil {
			return err
		}
	}
	if m.InitVFile != "" {
		if err := m.readField(m.InitVFile, vPoints, m.Layers, m.v); err != nil {
			return err
		}
	}
	// η is unused in reduced-gravity mode and stays zero there.
	if m.InitEtaFile != "" && !m.RedGrav {
		if err := m.readField(m.InitEtaFile, hPoints, 1, m.eta); err != nil {
			return err
		}
	}

	if m.WindMagTimeSeriesFile != "" {
		mag, err := readRaw(m.WindMagTimeSeriesFile, m.NTimeSteps)
		if err != nil {
			return err
		}
		m.windMag = mag
	}
	return nil
}
