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

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// Version gives the version number of this version of Aronnax.
const Version = "0.3.0"

// Config holds the model configuration. It is normally filled in from a
// configuration file by the aronnaxutil package, but can be constructed
// directly for testing.
type Config struct {
	// Grid geometry.
	Nx, Ny, Layers int
	Dx, Dy         float64

	// Numerics.
	Au             float64   // horizontal momentum diffusivity [m2/s]
	Kh             []float64 // horizontal thickness diffusivity per layer [m2/s]
	Kv             float64   // vertical thickness diffusivity [m2/s]
	Ar             float64   // vertical momentum coupling [1/s]
	BotDrag        float64   // linear bottom drag [1/s]
	Dt             float64   // time step [s]
	Slip           float64   // 0 = free slip, 1 = no slip
	Niter0         int       // restart step number; 0 starts fresh
	NTimeSteps     int
	DumpFreq       float64 // snapshot interval [s]; 0 disables
	AvFreq         float64 // average interval [s]; 0 disables
	CheckpointFreq float64 // checkpoint interval [s]; 0 disables
	DiagFreq       float64 // diagnostics interval [s]; 0 disables
	HMin           float64 // minimum layer thickness [m]
	Maxits         int     // iteration cap for the elliptic solver
	Eps            float64 // relative tolerance for the elliptic solver
	FreeSurfFac    float64 // 1 = free surface, 0 = rigid lid
	ThicknessError float64 // relative tolerance for column thickness drift
	DebugLevel     int

	// Model.
	HMean     []float64 // resting thickness per layer [m]
	DepthFile string
	H0        float64 // uniform depth used when DepthFile is empty [m]
	RedGrav   bool    // reduced-gravity mode: no free surface, no barotropic solve

	// Pressure solver.
	NProcX, NProcY int
	UseCG          bool // use the conjugate-gradient solver instead of SOR

	// Sponge regions.
	SpongeHTimeScaleFile string
	SpongeUTimeScaleFile string
	SpongeVTimeScaleFile string
	SpongeHFile          string
	SpongeUFile          string
	SpongeVFile          string

	// Physics.
	G    []float64 // reduced gravity at the top of each layer [m/s2]
	Rho0 float64   // reference density [kg/m3]

	// Grid input files.
	FUFile      string
	FVFile      string
	WetMaskFile string

	// Initial conditions.
	InitUFile   string
	InitVFile   string
	InitHFile   string
	InitEtaFile string

	// External forcing.
	ZonalWindFile         string
	MeridionalWindFile    string
	RelativeWind          bool
	Cd                    float64
	DumpWind              bool
	WindMagTimeSeriesFile string

	// Output locations.
	OutputDir     string
	CheckpointDir string
}

// tendency holds one snapshot of the prognostic tendencies.
type tendency struct {
	H, U, V *sparse.DenseArray
}

func newTendency(layers, ny, nx int) *tendency {
	return &tendency{
		H: sparse.ZerosDense(layers, ny+2, nx+2),
		U: sparse.ZerosDense(layers, ny+2, nx+2),
		V: sparse.ZerosDense(layers, ny+2, nx+2),
	}
}

// Model holds the state of a simulation. All gridded fields carry a
// one-cell halo on each side, so 2-d arrays have shape (ny+2, nx+2) and 3-d
// arrays (layers, ny+2, nx+2), indexed (k, j, i) with the interior at
// 1..ny × 1..nx.
type Model struct {
	Config

	Log logrus.FieldLogger

	// Prognostic fields.
	h, u, v *sparse.DenseArray
	eta     *sparse.DenseArray

	// Static fields.
	depth   *sparse.DenseArray
	wetmask *sparse.DenseArray
	hfacW   *sparse.DenseArray
	hfacE   *sparse.DenseArray
	hfacN   *sparse.DenseArray
	hfacS   *sparse.DenseArray
	fu, fv  *sparse.DenseArray

	// Forcing.
	windX, windY *sparse.DenseArray
	windMag      []float64 // per-step wind magnitude scaling; nil means 1

	spongeHTimeScale *sparse.DenseArray
	spongeUTimeScale *sparse.DenseArray
	spongeVTimeScale *sparse.DenseArray
	spongeH          *sparse.DenseArray
	spongeU          *sparse.DenseArray
	spongeV          *sparse.DenseArray

	// Tendency history for the Adams-Bashforth integrator.
	cur, old, veryOld *tendency

	// Running averages.
	hAv, uAv, vAv, etaAv *sparse.DenseArray
	nAv                  int

	a      *aMatrix
	solver EllipticSolver
	phys   physics
	pool   *tilePool
	scr    *scratch

	// step is the number of the time step most recently completed.
	step int
}

// New allocates a model from cfg. All arrays are sized once here and
// mutated in place for the rest of the run.
func New(cfg Config, log logrus.FieldLogger) (*Model, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	nx, ny, nl := cfg.Nx, cfg.Ny, cfg.Layers
	m := &Model{
		Config: cfg,
		Log:    log,
		h:      sparse.ZerosDense(nl, ny+2, nx+2),
		u:      sparse.ZerosDense(nl, ny+2, nx+2),
		v:      sparse.ZerosDense(nl, ny+2, nx+2),
		eta:    sparse.ZerosDense(ny+2, nx+2),

		depth:   sparse.ZerosDense(ny+2, nx+2),
		wetmask: sparse.ZerosDense(ny+2, nx+2),
		fu:      sparse.ZerosDense(ny+2, nx+2),
		fv:      sparse.ZerosDense(ny+2, nx+2),

		windX: sparse.ZerosDense(ny+2, nx+2),
		windY: sparse.ZerosDense(ny+2, nx+2),

		spongeHTimeScale: sparse.ZerosDense(nl, ny+2, nx+2),
		spongeUTimeScale: sparse.ZerosDense(nl, ny+2, nx+2),
		spongeVTimeScale: sparse.ZerosDense(nl, ny+2, nx+2),
		spongeH:          sparse.ZerosDense(nl, ny+2, nx+2),
		spongeU:          sparse.ZerosDense(nl, ny+2, nx+2),
		spongeV:          sparse.ZerosDense(nl, ny+2, nx+2),

		cur:     newTendency(nl, ny, nx),
		old:     newTendency(nl, ny, nx),
		veryOld: newTendency(nl, ny, nx),

		hAv:   sparse.ZerosDense(nl, ny+2, nx+2),
		uAv:   sparse.ZerosDense(nl, ny+2, nx+2),
		vAv:   sparse.ZerosDense(nl, ny+2, nx+2),
		etaAv: sparse.ZerosDense(ny+2, nx+2),

		scr: newScratch(nl, ny, nx),
	}

	if err := m.loadInputs(); err != nil {
		return nil, err
	}
	m.deriveFaceMasks()
	if err := m.checkDepth(); err != nil {
		return nil, err
	}

	if cfg.RedGrav {
		m.phys = redGravPhysics{}
	} else {
		m.phys = nLayerPhysics{}
		m.a = m.calcAMatrix()
		if cfg.UseCG {
			m.solver = &CGSolver{Eps: cfg.Eps, Maxits: cfg.Maxits, Log: log}
		} else {
			m.solver = &SORSolver{Eps: cfg.Eps, Maxits: cfg.Maxits, Log: log}
		}
	}

	m.pool = newTilePool(cfg.NProcX*cfg.NProcY, nx)

	if cfl := m.Dt * math.Sqrt(m.G[0]*maxDepth(m)) / math.Min(m.Dx, m.Dy); cfl > 1 {
		log.Warnf("aronnax: gravity-wave CFL number is %.3g; expect instability", cfl)
	}
	return m, nil
}

func validate(cfg *Config) error {
	if cfg.Nx < 1 || cfg.Ny < 1 || cfg.Layers < 1 {
		return fmt.Errorf("aronnax: invalid grid size %d×%d×%d", cfg.Nx, cfg.Ny, cfg.Layers)
	}
	if cfg.Dx <= 0 || cfg.Dy <= 0 {
		return fmt.Errorf("aronnax: grid spacing must be positive")
	}
	if cfg.Dt <= 0 {
		return fmt.Errorf("aronnax: dt must be positive")
	}
	if cfg.NTimeSteps < 1 {
		return fmt.Errorf("aronnax: nTimeSteps must be at least 1")
	}
	if len(cfg.G) != cfg.Layers {
		return fmt.Errorf("aronnax: g_vec has %d entries; want one per layer (%d)",
			len(cfg.G), cfg.Layers)
	}
	if len(cfg.Kh) == 0 {
		cfg.Kh = make([]float64, cfg.Layers)
	}
	if len(cfg.Kh) != cfg.Layers {
		return fmt.Errorf("aronnax: kh has %d entries; want one per layer (%d)",
			len(cfg.Kh), cfg.Layers)
	}
	if len(cfg.HMean) != cfg.Layers {
		return fmt.Errorf("aronnax: hmean has %d entries; want one per layer (%d)",
			len(cfg.HMean), cfg.Layers)
	}
	if cfg.NProcX < 1 {
		cfg.NProcX = 1
	}
	if cfg.NProcY < 1 {
		cfg.NProcY = 1
	}
	// Each worker owns a slab of columns, so there cannot be more workers
	// than columns.
	if nw := cfg.NProcX * cfg.NProcY; nw > cfg.Nx {
		return fmt.Errorf("aronnax: %d workers requested for %d columns", nw, cfg.Nx)
	}
	if cfg.Maxits < 1 {
		cfg.Maxits = 1000
	}
	if cfg.Eps <= 0 {
		cfg.Eps = 1e-7
	}
	if cfg.Rho0 <= 0 {
		cfg.Rho0 = 1026.
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}
	if cfg.CheckpointDir == "" {
		cfg.CheckpointDir = "checkpoints"
	}
	return nil
}

// checkDepth requires a strictly positive water column in every wet cell.
func (m *Model) checkDepth() error {
	if m.RedGrav {
		return nil
	}
	for j := 1; j <= m.Ny; j++ {
		for i := 1; i <= m.Nx; i++ {
			if m.wetmask.Get(j, i) == 1 && m.depth.Get(j, i) <= 0 {
				return fmt.Errorf("aronnax: non-positive depth %g in wet cell (%d,%d)",
					m.depth.Get(j, i), i, j)
			}
		}
	}
	return nil
}

func maxDepth(m *Model) float64 {
	if m.RedGrav {
		d := 0.
		for _, hm := range m.HMean {
			d += hm
		}
		return d
	}
	return m.depth.Max()
}

// H returns the layer thickness field.
func (m *Model) H() *sparse.DenseArray { return m.h }

// U returns the zonal velocity field.
func (m *Model) U() *sparse.DenseArray { return m.u }

// V returns the meridional velocity field.
func (m *Model) V() *sparse.DenseArray { return m.v }

// Eta returns the free-surface anomaly. It is identically zero in
// reduced-gravity mode.
func (m *Model) Eta() *sparse.DenseArray { return m.eta }

// Step returns the number of the most recently completed time step.
func (m *Model) Step() int { return m.step }
