package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/freight/internal/core"
)

func importCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import shipments from a CSV file",
		Long: `Import shipments from a CSV file with the columns
name, company, street, postal_code and city.

Valid rows are corrected and stored; invalid rows are reported with
their line number. Use "shipctl template" for an example file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet, _ := cmd.Flags().GetBool("quiet")

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			return withService(cmd, open, func(ctx context.Context, svc *core.Service) error {
				out := cmd.OutOrStdout()

				importID, err := svc.StartImport(ctx, filepath.Base(args[0]), data)
				if err != nil {
					return fmt.Errorf("failed to start import: %s", describe(err))
				}

				if !quiet {
					if err := followProgress(ctx, out, svc, importID); err != nil {
						return err
					}
				}

				res, err := svc.GetImportResult(ctx, importID)
				if err != nil {
					return fmt.Errorf("failed to get import result: %w", err)
				}
				return printImportResult(out, res)
			})
		},
	}
	cmd.Flags().BoolP("quiet", "q", false, "Do not print progress")
	return cmd
}

// followProgress prints each new percentage until the import ends.
func followProgress(ctx context.Context, out io.Writer, svc *core.Service, importID string) error {
	progressCh, err := svc.SubscribeProgress(importID)
	if err != nil {
		return fmt.Errorf("failed to follow import: %w", err)
	}

	last := -1
	for {
		select {
		case p, ok := <-progressCh:
			if !ok {
				return nil
			}
			if p.Percent > last {
				last = p.Percent
				fmt.Fprintf(out, "  %3d%%  %s\n", p.Percent, p.FileName)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// printImportResult writes the outcome headline and any row errors. A run
// that failed outright is returned as an error.
func printImportResult(out io.Writer, res *core.ImportResult) error {
	if res.State == core.StateFailed {
		return fmt.Errorf("import failed: %s", res.Error)
	}

	stats := res.Stats
	if stats == nil {
		stats = &core.ImportStatistics{}
	}

	fmt.Fprintf(out, "%s %s\n", outcomeColor(stats.Outcome()).Sprint(stats.Title()), stats.Description())
	for _, e := range stats.Errors {
		fmt.Fprintf(out, "  row %d: %s\n", e.Row, e.Message)
	}
	return nil
}

func outcomeColor(o core.ImportOutcome) *color.Color {
	switch o {
	case core.OutcomeSuccess:
		return color.New(color.FgGreen, color.Bold)
	case core.OutcomeFailure:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgYellow, color.Bold)
	}
}
