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
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/cenkalti/backoff"
	"github.com/ctessum/sparse"
)

// outputScheduler owns the four output cadences. Each positive frequency
// becomes a step count w = ⌊freq/dt⌋; an emission fires when
// (n-1) mod w == 0. A zero frequency disables that output.
type outputScheduler struct {
	m *Model

	snapW, avW, chkW, diagW int

	diagFiles   map[string]*csv.Writer
	diagClosers []*os.File
}

func cadence(freq, dt float64) int {
	if freq <= 0 {
		return 0
	}
	w := int(freq / dt)
	if w < 1 {
		w = 1
	}
	return w
}

func fires(n, w int) bool {
	return w > 0 && (n-1)%w == 0
}

func newOutputScheduler(m *Model) (*outputScheduler, error) {
	o := &outputScheduler{
		m:         m,
		snapW:     cadence(m.DumpFreq, m.Dt),
		avW:       cadence(m.AvFreq, m.Dt),
		chkW:      cadence(m.CheckpointFreq, m.Dt),
		diagW:     cadence(m.DiagFreq, m.Dt),
		diagFiles: make(map[string]*csv.Writer),
	}
	if o.snapW > 0 || o.avW > 0 || o.diagW > 0 {
		if err := os.MkdirAll(m.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("aronnax: creating output directory: %v", err)
		}
	}
	if o.chkW > 0 {
		if err := os.MkdirAll(m.CheckpointDir, 0755); err != nil {
			return nil, fmt.Errorf("aronnax: creating checkpoint directory: %v", err)
		}
	}
	return o, nil
}

// accumulate adds the current state into the running averages. The free
// surface accumulates additively like the other fields.
func (o *outputScheduler) accumulate() {
	if o.avW == 0 {
		return
	}
	m := o.m
	m.hAv.AddDense(m.h)
	m.uAv.AddDense(m.u)
	m.vAv.AddDense(m.v)
	if !m.RedGrav {
		m.etaAv.AddDense(m.eta)
	}
	m.nAv++
}

func (o *outputScheduler) resetAverages() {
	m := o.m
	m.hAv.Scale(0)
	m.uAv.Scale(0)
	m.vAv.Scale(0)
	m.etaAv.Scale(0)
	m.nAv = 0
}

func (m *Model) snapName(field string, n int) string {
	return filepath.Join(m.OutputDir, fmt.Sprintf("snap.%s.%010d", field, n))
}

func (m *Model) avName(field string, n int) string {
	return filepath.Join(m.OutputDir, fmt.Sprintf("av.%s.%010d", field, n))
}

func (m *Model) checkpointName(n int) string {
	return filepath.Join(m.CheckpointDir, fmt.Sprintf("checkpoint.%010d", n))
}

// emit runs all four cadences for completed step n. The NaN guard runs
// after each snapshot emission.
func (o *outputScheduler) emit(n int) error {
	m := o.m

	if fires(n, o.snapW) {
		if err := o.snapshot(n); err != nil {
			return err
		}
		if err := m.nanCheck(n); err != nil {
			return err
		}
	}

	if fires(n, o.avW) {
		// The first emission has nothing meaningful accumulated; skip it.
		if n > m.Niter0+1 {
			if err := o.average(n); err != nil {
				return err
			}
		}
		o.resetAverages()
	}

	if fires(n, o.chkW) {
		if err := m.writeCheckpoint(n); err != nil {
			return err
		}
	}

	if fires(n, o.diagW) {
		if err := o.diagnostics(n); err != nil {
			return err
		}
	}
	return nil
}

func (o *outputScheduler) snapshot(n int) error {
	m := o.m
	if err := m.writeField(m.snapName("h", n), hPoints, m.Layers, m.h); err != nil {
		return err
	}
	if err := m.writeField(m.snapName("u", n), uPoints, m.Layers, m.u); err != nil {
		return err
	}
	if err := m.writeField(m.snapName("v", n), vPoints, m.Layers, m.v); err != nil {
		return err
	}
	if !m.RedGrav {
		if err := m.writeField(m.snapName("eta", n), hPoints, 1, m.eta); err != nil {
			return err
		}
	}
	if m.DumpWind {
		if err := m.writeField(m.snapName("wind_x", n), uPoints, 1, m.windX); err != nil {
			return err
		}
		if err := m.writeField(m.snapName("wind_y", n), vPoints, 1, m.windY); err != nil {
			return err
		}
	}
	if m.DebugLevel >= 2 {
		// The tendency history most recently computed is in the "old"
		// slot after rotation.
		if err := m.writeField(m.snapName("dhdt", n), hPoints, m.Layers, m.old.H); err != nil {
			return err
		}
		if err := m.writeField(m.snapName("dudt", n), uPoints, m.Layers, m.old.U); err != nil {
			return err
		}
		if err := m.writeField(m.snapName("dvdt", n), vPoints, m.Layers, m.old.V); err != nil {
			return err
		}
	}
	return nil
}

func (o *outputScheduler) average(n int) error {
	m := o.m
	scale := 1 / float64(o.avW)
	m.hAv.Scale(scale)
	m.uAv.Scale(scale)
	m.vAv.Scale(scale)
	m.etaAv.Scale(scale)
	if err := m.writeField(m.avName("h", n), hPoints, m.Layers, m.hAv); err != nil {
		return err
	}
	if err := m.writeField(m.avName("u", n), uPoints, m.Layers, m.uAv); err != nil {
		return err
	}
	if err := m.writeField(m.avName("v", n), vPoints, m.Layers, m.vAv); err != nil {
		return err
	}
	if !m.RedGrav {
		if err := m.writeField(m.avName("eta", n), hPoints, 1, m.etaAv); err != nil {
			return err
		}
	}
	return nil
}

// diagWriter lazily opens the per-field diagnostics CSV and writes its
// header: timestep,mean01,max01,min01,std01,… with one block per layer.
func (o *outputScheduler) diagWriter(field string, layers int) (*csv.Writer, error) {
	if w, ok := o.diagFiles[field]; ok {
		return w, nil
	}
	f, err := os.Create(filepath.Join(o.m.OutputDir, fmt.Sprintf("diag.%s.csv", field)))
	if err != nil {
		return nil, fmt.Errorf("aronnax: creating diagnostics file: %v", err)
	}
	w := csv.NewWriter(f)
	header := []string{"timestep"}
	for k := 1; k <= layers; k++ {
		header = append(header,
			fmt.Sprintf("mean%02d", k), fmt.Sprintf("max%02d", k),
			fmt.Sprintf("min%02d", k), fmt.Sprintf("std%02d", k))
	}
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	o.diagFiles[field] = w
	o.diagClosers = append(o.diagClosers, f)
	return w, nil
}

// layerStats summarizes one layer of a field over the wet interior.
func (m *Model) layerStats(f *sparse.DenseArray, k int) (mean, max, min, std float64) {
	var s stats.Stats
	for j := 1; j <= m.Ny; j++ {
		for i := 1; i <= m.Nx; i++ {
			if m.wetmask.Get(j, i) == 0 {
				continue
			}
			if len(f.Shape) == 2 {
				s.Update(f.Get(j, i))
			} else {
				s.Update(f.Get(k, j, i))
			}
		}
	}
	return s.Mean(), s.Max(), s.Min(), s.SampleStandardDeviation()
}

func (o *outputScheduler) diagnostics(n int) error {
	m := o.m
	fields := []struct {
		name   string
		arr    *sparse.DenseArray
		layers int
	}{
		{"h", m.h, m.Layers},
		{"u", m.u, m.Layers},
		{"v", m.v, m.Layers},
	}
	if !m.RedGrav {
		fields = append(fields, struct {
			name   string
			arr    *sparse.DenseArray
			layers int
		}{"eta", m.eta, 1})
	}
	for _, f := range fields {
		w, err := o.diagWriter(f.name, f.layers)
		if err != nil {
			return err
		}
		row := []string{strconv.Itoa(n)}
		for k := 0; k < f.layers; k++ {
			mean, max, min, std := m.layerStats(f.arr, k)
			row = append(row,
				strconv.FormatFloat(mean, 'g', -1, 64),
				strconv.FormatFloat(max, 'g', -1, 64),
				strconv.FormatFloat(min, 'g', -1, 64),
				strconv.FormatFloat(std, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}
	return nil
}

func (o *outputScheduler) close() {
	for _, f := range o.diagClosers {
		f.Close()
	}
}

// checkpointData is the serialized form of a checkpoint: the prognostic
// state and the full tendency history, flattened. The arrays are
// reconstructed against the run's grid shape on load.
type checkpointData struct {
	Step    int
	H, U, V []float64
	Eta     []float64

	CurH, CurU, CurV             []float64
	OldH, OldU, OldV             []float64
	VeryOldH, VeryOldU, VeryOldV []float64
}

// writeCheckpoint dumps all state plus the three tendency histories. The
// file is written to a temporary name and renamed into place, so a failed
// write never overwrites a good checkpoint. Transient filesystem errors
// are retried with exponential backoff.
func (m *Model) writeCheckpoint(n int) error {
	data := &checkpointData{
		Step: n,
		H:    m.h.Elements, U: m.u.Elements, V: m.v.Elements,
		Eta:  m.eta.Elements,
		CurH: m.cur.H.Elements, CurU: m.cur.U.Elements, CurV: m.cur.V.Elements,
		OldH: m.old.H.Elements, OldU: m.old.U.Elements, OldV: m.old.V.Elements,
		VeryOldH: m.veryOld.H.Elements, VeryOldU: m.veryOld.U.Elements, VeryOldV: m.veryOld.V.Elements,
	}
	final := m.checkpointName(n)
	tmp := final + ".tmp"
	op := func() error {
		f, err := os.Create(tmp)
		if err != nil {
			return err
		}
		if err := gob.NewEncoder(f).Encode(data); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		return os.Rename(tmp, final)
	}
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(op, b); err != nil {
		return fmt.Errorf("aronnax: writing checkpoint for step %d: %v", n, err)
	}
	return nil
}

// loadCheckpoint restores the state and tendency histories saved at step
// m.Niter0, so a restarted run continues exactly where the checkpointed
// one left off.
func (m *Model) loadCheckpoint() error {
	f, err := os.Open(m.checkpointName(m.Niter0))
	if err != nil {
		return fmt.Errorf("aronnax: opening checkpoint: %v", err)
	}
	defer f.Close()
	var data checkpointData
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return fmt.Errorf("aronnax: decoding checkpoint: %v", err)
	}
	if data.Step != m.Niter0 {
		return fmt.Errorf("aronnax: checkpoint is for step %d; want %d", data.Step, m.Niter0)
	}
	for _, c := range []struct {
		dst *sparse.DenseArray
		src []float64
	}{
		{m.h, data.H}, {m.u, data.U}, {m.v, data.V}, {m.eta, data.Eta},
		{m.cur.H, data.CurH}, {m.cur.U, data.CurU}, {m.cur.V, data.CurV},
		{m.old.H, data.OldH}, {m.old.U, data.OldU}, {m.old.V, data.OldV},
		{m.veryOld.H, data.VeryOldH}, {m.veryOld.U, data.VeryOldU}, {m.veryOld.V, data.VeryOldV},
	} {
		if len(c.src) != len(c.dst.Elements) {
			return fmt.Errorf("aronnax: checkpoint field has %d elements; want %d",
				len(c.src), len(c.dst.Elements))
		}
		copy(c.dst.Elements, c.src)
	}
	return nil
}
