/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/notargets/aronnax/config"
	"github.com/notargets/aronnax/model"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Integrate the model forward from the configuration in a run directory",
	Long: `
Reads the run configuration, loads the input fields from the run directory,
and integrates the layered model, writing snapshots, averages, checkpoints
and diagnostics under it,

aronnax run -d <run directory> -c aronnax.conf`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		conf, _ := cmd.Flags().GetString("runConfig")
		workers, _ := cmd.Flags().GetInt("np")
		prof, _ := cmd.Flags().GetBool("profile")
		if prof {
			defer profile.Start(profile.ProfilePath(dir)).Stop()
		}
		if err := runSimulation(dir, conf, workers); err != nil {
			fmt.Fprintf(os.Stderr, "aronnax: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("dir", "d", ".", "run directory holding the configuration and input files")
	runCmd.Flags().StringP("runConfig", "c", "aronnax.conf", "run configuration file, relative to the run directory")
	runCmd.Flags().IntP("np", "n", 0, "worker count; must equal nProcX*nProcY (0 takes it from the configuration)")
	runCmd.Flags().Bool("profile", false, "write a CPU profile into the run directory")
}

func runSimulation(dir, conf string, workers int) (err error) {
	cfg, err := config.Load(filepath.Join(dir, conf))
	if err != nil {
		return err
	}
	if workers == 0 {
		workers = cfg.PressureSolver.NProcX * cfg.PressureSolver.NProcY
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if f, ferr := os.Create(filepath.Join(dir, "aronnax.log")); ferr == nil {
		log.SetOutput(f)
		defer f.Close()
	}

	log.WithFields(logrus.Fields{
		"nx": cfg.Grid.Nx, "ny": cfg.Grid.Ny, "layers": cfg.Grid.Layers,
		"dt": cfg.Numerics.DT, "nTimeSteps": cfg.Numerics.NTimeSteps,
		"RedGrav": cfg.Model.RedGrav, "solver": cfg.PressureSolver.Method,
		"workers": workers,
	}).Info("starting run")
	log.Infof("effective configuration: %+v", *cfg)

	sim, err := model.NewSimulation(cfg, dir, workers, log)
	if err != nil {
		return err
	}
	then := time.Now()
	if err = sim.Run(); err != nil {
		return err
	}
	log.Infof("completed %d steps in %v", cfg.Numerics.NTimeSteps, time.Since(then))
	return nil
}
