package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"aivisibility/backend-go/internal/export"
	"aivisibility/backend-go/internal/ranking"
)

func newExportCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write CSV exports from raw analytics records",
	}
	cmd.AddCommand(newExportVisibilityCommand(opts))
	cmd.AddCommand(newExportPromptsCommand())
	return cmd
}

func newExportVisibilityCommand(opts *globalOptions) *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "visibility",
		Short: "Date by brand visibility CSV from dated records",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(input, cmd.InOrStdin())
			if err != nil {
				return err
			}
			p, err := opts.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			return withOutput(cmd.OutOrStdout(), output, func(w io.Writer) error {
				return export.WriteVisibilityCSV(w, export.BuildVisibilitySeries(records, p.canon))
			})
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "JSON records file, - for stdin")
	cmd.Flags().StringVarP(&output, "output", "o", "", "CSV file to write (default stdout)")
	return cmd
}

func newExportPromptsCommand() *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Prompt,Volume CSV from prompt records",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(input, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withOutput(cmd.OutOrStdout(), output, func(w io.Writer) error {
				return export.WritePromptsCSV(w, ranking.Prompts(records))
			})
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "JSON records file, - for stdin")
	cmd.Flags().StringVarP(&output, "output", "o", "", "CSV file to write (default stdout)")
	return cmd
}

func withOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
