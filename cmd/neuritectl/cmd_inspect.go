package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"neurite/internal/swc"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file.swc>",
		Short: "Parse a morphology file and report its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strict, _ := cmd.Flags().GetBool("strict")
			records, err := swc.ParseFile(args[0], swc.Options{Strict: strict})
			if err != nil {
				return err
			}

			fmt.Printf("%s: %d records\n", args[0], len(records))
			counts := swc.CountKinds(records)
			kinds := make([]string, 0, len(counts))
			for kind := range counts {
				kinds = append(kinds, kind)
			}
			sort.Strings(kinds)
			for _, kind := range kinds {
				fmt.Printf("  %s: %d\n", kind, counts[kind])
			}
			return nil
		},
	}
	cmd.Flags().Bool("strict", false, "fail on zero-radius non-endpoint records")
	return cmd
}

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <file.swc>",
		Short: "Build compartment trees and report structure and warnings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strict, _ := cmd.Flags().GetBool("strict")

			client, err := newClient(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			info, err := client.Inspect(cmd.Context(), args[0], strict)
			if err != nil {
				return err
			}

			fmt.Printf("%s: %d records, %d circuit(s)\n", info.Name, info.Records, len(info.Circuits))
			for i, circ := range info.Circuits {
				fmt.Printf("  circuit %d: root id %d, %d compartments, total length %.2f um\n",
					i, circ.RootID, circ.Compartments, circ.TotalLength)
			}
			for _, w := range info.Warnings {
				fmt.Printf("  warning: %s\n", w)
			}
			return nil
		},
	}
	cmd.Flags().Bool("strict", false, "fail on zero-radius non-endpoint records")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file.swc>",
		Short: "Write the processed morphology: comments stripped, ids renumbered topologically",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			strict, _ := cmd.Flags().GetBool("strict")

			client, err := newClient(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.ExportProcessed(args[0], out, strict); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "", "output path")
	cmd.Flags().Bool("strict", false, "fail on zero-radius non-endpoint records")
	return cmd
}
