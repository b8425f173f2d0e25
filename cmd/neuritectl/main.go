package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"neurite/internal/profile"
	"neurite/internal/storage"
	"neurite/pkg/neurite"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "neuritectl",
		Short: "Build and simulate multi-compartment neuron models from SWC morphologies",
	}

	rootCmd.PersistentFlags().String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	rootCmd.PersistentFlags().String("db-path", "neurite.db", "sqlite database path")
	rootCmd.PersistentFlags().Bool("verbose", false, "log run lifecycle to stderr")

	rootCmd.AddCommand(
		newVersionCmd(),
		newValidateCmd(),
		newBuildCmd(),
		newDiscretizeCmd(),
		newSimulateCmd(),
		newRunsCmd(),
		newTraceCmd(),
		newExportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("neuritectl version %s\n", version)
		},
	}
}

// newClient builds the facade client from the persistent flags.
func newClient(ctx context.Context, cmd *cobra.Command) (*neurite.Client, error) {
	storeKind, _ := cmd.Flags().GetString("store")
	dbPath, _ := cmd.Flags().GetString("db-path")
	verbose, _ := cmd.Flags().GetBool("verbose")

	var logger *zap.Logger
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		logger = l
	}

	return neurite.NewClient(ctx, neurite.Options{
		StoreKind: storeKind,
		DBPath:    dbPath,
		Logger:    logger,
	})
}

// resolveProfile loads the named profile from a YAML file when given, then
// layers command-line overrides on top.
func resolveProfile(cmd *cobra.Command) (profile.Profile, error) {
	p := profile.Default()

	if path, _ := cmd.Flags().GetString("profiles"); path != "" {
		name, _ := cmd.Flags().GetString("profile")
		if name == "" {
			name = "default"
		}
		profiles, err := profile.Load(path)
		if err != nil {
			return profile.Profile{}, err
		}
		loaded, ok := profiles[name]
		if !ok {
			return profile.Profile{}, fmt.Errorf("profile %q not found in %s", name, path)
		}
		p = loaded
	}

	flagFloat := func(name string, dst *float64) {
		if cmd.Flags().Changed(name) {
			v, _ := cmd.Flags().GetFloat64(name)
			*dst = v
		}
	}
	flagFloat("ra", &p.Ra)
	flagFloat("cm", &p.Cm)
	flagFloat("freq", &p.Freq)
	flagFloat("d-lambda", &p.DLambda)
	flagFloat("dt", &p.Dt)
	flagFloat("duration", &p.Duration)
	flagFloat("stim-amp", &p.Stimulus.Amplitude)
	flagFloat("stim-start", &p.Stimulus.Start)
	flagFloat("stim-stop", &p.Stimulus.Stop)
	if cmd.Flags().Changed("stim-compartment") {
		v, _ := cmd.Flags().GetInt("stim-compartment")
		p.Stimulus.Compartment = v
	}
	if cmd.Flags().Changed("channel") {
		v, _ := cmd.Flags().GetString("channel")
		p.Channel = v
	}
	if cmd.Flags().Changed("method") {
		v, _ := cmd.Flags().GetString("method")
		p.Method = v
	}
	if cmd.Flags().Changed("repair-zero-radius") {
		v, _ := cmd.Flags().GetBool("repair-zero-radius")
		p.RepairZeroRadius = v
	}

	return p, p.Validate()
}

func addProfileFlags(cmd *cobra.Command) {
	def := profile.Default()
	cmd.Flags().String("profiles", "", "YAML profile file")
	cmd.Flags().String("profile", "", "profile name within the profile file")
	cmd.Flags().Float64("ra", def.Ra, "axial resistivity, ohm*cm")
	cmd.Flags().Float64("cm", def.Cm, "membrane capacitance, uF/cm^2")
	cmd.Flags().Float64("freq", def.Freq, "d-lambda frequency, Hz")
	cmd.Flags().Float64("d-lambda", def.DLambda, "compartment length as a fraction of lambda")
	cmd.Flags().Float64("dt", def.Dt, "integration step, ms")
	cmd.Flags().Float64("duration", def.Duration, "simulated time, ms")
	cmd.Flags().Float64("stim-amp", 0, "injected current, nA")
	cmd.Flags().Float64("stim-start", 0, "stimulus onset, ms")
	cmd.Flags().Float64("stim-stop", 0, "stimulus offset, ms")
	cmd.Flags().Int("stim-compartment", 0, "stimulated compartment index")
	cmd.Flags().String("channel", def.Channel, "membrane channel: hh|passive")
	cmd.Flags().String("method", def.Method, "integration method: exponential|euler")
	cmd.Flags().Bool("repair-zero-radius", false, "patch zero radii to 1 um instead of failing discretization")
}
