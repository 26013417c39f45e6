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

package aronnaxutil

import (
	"fmt"
	"os"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/aronnax"
	"github.com/spf13/cast"
)

// setDefaults fills in the documented defaults: output frequencies
// disabled, no restart, no relative wind, zero viscosities.
func setDefaults(v *viper.Viper) {
	v.SetDefault("numerics.au", 0.)
	v.SetDefault("numerics.kv", 0.)
	v.SetDefault("numerics.ar", 0.)
	v.SetDefault("numerics.botDrag", 0.)
	v.SetDefault("numerics.slip", 0.)
	v.SetDefault("numerics.niter0", 0)
	v.SetDefault("numerics.dumpFreq", 0.)
	v.SetDefault("numerics.avFreq", 0.)
	v.SetDefault("numerics.checkpointFreq", 0.)
	v.SetDefault("numerics.diagFreq", 0.)
	v.SetDefault("numerics.hmin", 0.)
	v.SetDefault("numerics.maxits", 1000)
	v.SetDefault("numerics.eps", 1e-7)
	v.SetDefault("numerics.freesurfFac", 0.)
	v.SetDefault("numerics.thickness_error", 1e-2)
	v.SetDefault("numerics.debug_level", 0)
	v.SetDefault("model.RedGrav", false)
	v.SetDefault("pressure_solver.nProcX", 1)
	v.SetDefault("pressure_solver.nProcY", 1)
	v.SetDefault("pressure_solver.solver", "SOR")
	v.SetDefault("physics.rho0", 1026.)
	v.SetDefault("external_forcing.RelativeWind", false)
	v.SetDefault("external_forcing.Cd", 0.)
	v.SetDefault("external_forcing.DumpWind", false)
	v.SetDefault("output.outputDir", "output")
	v.SetDefault("output.checkpointDir", "checkpoints")
}

// floatSlice reads a configuration entry that may be either a scalar or a
// per-layer list.
func floatSlice(v *viper.Viper, key string) []float64 {
	raw := v.Get(key)
	if raw == nil {
		return nil
	}
	if s := cast.ToSlice(raw); len(s) > 0 {
		out := make([]float64, len(s))
		for i, x := range s {
			out[i] = cast.ToFloat64(x)
		}
		return out
	}
	return []float64{cast.ToFloat64(raw)}
}

// file expands environment variables in a file-name entry; an empty name
// means "use the default scalar or vector".
func file(v *viper.Viper, key string) string {
	return os.ExpandEnv(v.GetString(key))
}

// LoadConfig translates the configuration file sections into an
// aronnax.Config.
func LoadConfig(v *viper.Viper) (aronnax.Config, error) {
	setDefaults(v)
	cfg := aronnax.Config{
		Nx:     v.GetInt("grid.nx"),
		Ny:     v.GetInt("grid.ny"),
		Layers: v.GetInt("grid.layers"),
		Dx:     v.GetFloat64("grid.dx"),
		Dy:     v.GetFloat64("grid.dy"),

		Au:             v.GetFloat64("numerics.au"),
		Kh:             floatSlice(v, "numerics.kh"),
		Kv:             v.GetFloat64("numerics.kv"),
		Ar:             v.GetFloat64("numerics.ar"),
		BotDrag:        v.GetFloat64("numerics.botDrag"),
		Dt:             v.GetFloat64("numerics.dt"),
		Slip:           v.GetFloat64("numerics.slip"),
		Niter0:         v.GetInt("numerics.niter0"),
		NTimeSteps:     v.GetInt("numerics.nTimeSteps"),
		DumpFreq:       v.GetFloat64("numerics.dumpFreq"),
		AvFreq:         v.GetFloat64("numerics.avFreq"),
		CheckpointFreq: v.GetFloat64("numerics.checkpointFreq"),
		DiagFreq:       v.GetFloat64("numerics.diagFreq"),
		HMin:           v.GetFloat64("numerics.hmin"),
		Maxits:         v.GetInt("numerics.maxits"),
		Eps:            v.GetFloat64("numerics.eps"),
		FreeSurfFac:    v.GetFloat64("numerics.freesurfFac"),
		ThicknessError: v.GetFloat64("numerics.thickness_error"),
		DebugLevel:     v.GetInt("numerics.debug_level"),

		HMean:     floatSlice(v, "model.hmean"),
		DepthFile: file(v, "model.depthFile"),
		H0:        v.GetFloat64("model.H0"),
		RedGrav:   v.GetBool("model.RedGrav"),

		NProcX: v.GetInt("pressure_solver.nProcX"),
		NProcY: v.GetInt("pressure_solver.nProcY"),
		UseCG:  strings.EqualFold(v.GetString("pressure_solver.solver"), "CG"),

		SpongeHTimeScaleFile: file(v, "sponge.spongeHTimeScaleFile"),
		SpongeUTimeScaleFile: file(v, "sponge.spongeUTimeScaleFile"),
		SpongeVTimeScaleFile: file(v, "sponge.spongeVTimeScaleFile"),
		SpongeHFile:          file(v, "sponge.spongeHFile"),
		SpongeUFile:          file(v, "sponge.spongeUFile"),
		SpongeVFile:          file(v, "sponge.spongeVFile"),

		G:    floatSlice(v, "physics.g_vec"),
		Rho0: v.GetFloat64("physics.rho0"),

		FUFile:      file(v, "grid.fUfile"),
		FVFile:      file(v, "grid.fVfile"),
		WetMaskFile: file(v, "grid.wetMaskFile"),

		InitUFile:   file(v, "initial_conditions.initUfile"),
		InitVFile:   file(v, "initial_conditions.initVfile"),
		InitHFile:   file(v, "initial_conditions.initHfile"),
		InitEtaFile: file(v, "initial_conditions.initEtaFile"),

		ZonalWindFile:         file(v, "external_forcing.zonalWindFile"),
		MeridionalWindFile:    file(v, "external_forcing.meridionalWindFile"),
		RelativeWind:          v.GetBool("external_forcing.RelativeWind"),
		Cd:                    v.GetFloat64("external_forcing.Cd"),
		DumpWind:              v.GetBool("external_forcing.DumpWind"),
		WindMagTimeSeriesFile: file(v, "external_forcing.wind_mag_time_series_file"),

		OutputDir:     file(v, "output.outputDir"),
		CheckpointDir: file(v, "output.checkpointDir"),
	}
	if cfg.Nx == 0 || cfg.Ny == 0 || cfg.Layers == 0 {
		return cfg, fmt.Errorf("aronnax: the [grid] section must set nx, ny, and layers")
	}
	return cfg, nil
}
