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

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/aronnax"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information and the command tree.
type Cfg struct {
	*viper.Viper

	Root, runCmd, versionCmd *cobra.Command

	configFile string
}

// InitializeConfig builds the command tree and binds the command-line
// flags into the configuration.
func InitializeConfig() *Cfg {
	cfg := &Cfg{
		Viper: viper.New(),
	}

	cfg.Root = &cobra.Command{
		Use:   "aronnax",
		Short: "An idealized isopycnal ocean model.",
		Long: `Aronnax simulates a stack of active fluid layers of variable thickness
on a rectangular Arakawa C-grid, forced by wind stress, gravity, and
rotation. Configuration is read from a file organized into named sections;
provide its path with the --config flag. File-name entries may contain
environment variables.`,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return setConfig(cfg)
		},
	}

	cfg.versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Aronnax v%s\n", aronnax.Version)
		},
		DisableAutoGenTag: true,
	}

	cfg.runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the simulation.",
		Long: `run integrates the model for the configured number of time steps,
writing snapshots, averages, checkpoints, and diagnostics at the configured
intervals.`,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := LoadConfig(cfg.Viper)
			if err != nil {
				return err
			}
			log := logrus.StandardLogger()
			log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
			if c.DebugLevel >= 1 {
				log.Level = logrus.DebugLevel
			}
			m, err := aronnax.New(c, log)
			if err != nil {
				return err
			}
			return m.Run()
		},
	}

	cfg.Root.PersistentFlags().StringVar(&cfg.configFile, "config", "aronnax.toml",
		"Path to the configuration file")
	addRunFlags(cfg.runCmd.Flags(), cfg.Viper)

	cfg.Root.AddCommand(cfg.runCmd, cfg.versionCmd)
	return cfg
}

// addRunFlags registers the command-line overrides and binds them to
// their configuration keys.
func addRunFlags(fs *pflag.FlagSet, v *viper.Viper) {
	fs.Int("ntimesteps", 0, "Override the configured number of time steps")
	v.BindPFlag("numerics.nTimeSteps", fs.Lookup("ntimesteps"))
	fs.Int("niter0", 0, "Restart from the checkpoint written at this step")
	v.BindPFlag("numerics.niter0", fs.Lookup("niter0"))
	fs.Int("debug-level", 0, "Verbosity; 2 also dumps tendency snapshots")
	v.BindPFlag("numerics.debug_level", fs.Lookup("debug-level"))
}

func setConfig(cfg *Cfg) error {
	cfg.SetConfigFile(cfg.configFile)
	if err := cfg.ReadInConfig(); err != nil {
		return fmt.Errorf("aronnax: problem reading configuration file: %v", err)
	}
	return nil
}
