package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"neurite/internal/cable"
	"neurite/internal/circuit"
	"neurite/internal/swc"
	"neurite/pkg/neurite"
)

func newDiscretizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discretize <file.swc>",
		Short: "Apply the d-lambda rule and report compartment counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := resolveProfile(cmd)
			if err != nil {
				return err
			}

			records, err := swc.ParseFile(args[0], swc.Options{})
			if err != nil {
				return err
			}
			circuits, warnings, err := circuit.BuildWith(records, circuit.BuildOptions{
				RepairZeroRadius: p.RepairZeroRadius,
			})
			if err != nil {
				return err
			}

			params := p.CableParams()
			for i, circ := range circuits {
				before := circ.Size()
				if err := cable.Discretize(circ, params); err != nil {
					return err
				}
				fmt.Printf("circuit %d: %d segments -> %d compartments\n", i, before, circ.Size())
			}
			for _, w := range warnings {
				fmt.Printf("warning: %s\n", w)
			}
			return nil
		},
	}
	addProfileFlags(cmd)
	return cmd
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate <file.swc>",
		Short: "Run the full pipeline: parse, build, discretize, simulate, persist traces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := resolveProfile(cmd)
			if err != nil {
				return err
			}
			runID, _ := cmd.Flags().GetString("run-id")
			strict, _ := cmd.Flags().GetBool("strict")

			client, err := newClient(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Simulate(cmd.Context(), neurite.SimulateRequest{
				Path:    args[0],
				RunID:   runID,
				Strict:  strict,
				Profile: p,
			})
			if err != nil {
				return err
			}

			for _, w := range summary.Warnings {
				fmt.Printf("warning: %s\n", w)
			}
			for _, run := range summary.Runs {
				status := "completed"
				if run.Diverged {
					status = "diverged"
				} else if !run.Completed {
					status = "halted"
				}
				fmt.Printf("run %s: %d compartments, %d steps, %s\n", run.RunID, run.Compartments, run.Steps, status)
				if run.Err != "" {
					fmt.Printf("  error: %s\n", run.Err)
				}
			}
			return nil
		},
	}
	addProfileFlags(cmd)
	cmd.Flags().String("run-id", "", "run identifier (defaults to the file name)")
	cmd.Flags().Bool("strict", false, "fail on zero-radius non-endpoint records")
	return cmd
}

func newRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List persisted simulation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			runs, err := client.Runs(cmd.Context())
			if err != nil {
				return err
			}
			for _, run := range runs {
				fmt.Printf("%s  %s  dt=%g ms  duration=%g ms  compartments=%d  steps=%d  completed=%t\n",
					run.RunID, run.CreatedAtUTC, run.Dt, run.Duration, run.Compartments, run.Steps, run.Completed)
			}
			return nil
		},
	}
}

func newTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace <run-id>",
		Short: "Print a compartment's voltage trace as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			compartment, _ := cmd.Flags().GetInt("compartment")

			client, err := newClient(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			times, volts, err := client.Trace(cmd.Context(), args[0], compartment)
			if err != nil {
				return err
			}
			fmt.Println("t_ms,v_mv")
			for i := range times {
				fmt.Printf("%g,%g\n", times[i], volts[i])
			}
			return nil
		},
	}
	cmd.Flags().Int("compartment", 0, "compartment index")
	return cmd
}
