package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/freight/internal/core"
)

func listCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List shipments",
		RunE: func(cmd *cobra.Command, args []string) error {
			column, _ := cmd.Flags().GetString("sort")
			dir, _ := cmd.Flags().GetString("dir")

			spec, err := core.ParseSortSpec(column, dir)
			if err != nil {
				return err
			}

			return withService(cmd, open, func(ctx context.Context, svc *core.Service) error {
				shipments, err := svc.List(ctx, spec)
				if err != nil {
					return fmt.Errorf("failed to list shipments: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(shipments) == 0 {
					fmt.Fprintln(out, "No shipments found.")
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tCOMPANY\tDESTINATION\tCORRECTED\tCONFIDENCE\tCREATED")
				fmt.Fprintln(w, "--\t----\t-------\t-----------\t---------\t----------\t-------")
				for _, s := range shipments {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						s.ID, s.Name, s.Company, s.Destination, s.CorrectedCity,
						formatConfidence(s.Confidence),
						s.CreatedAt.Local().Format(core.ExportDateLayout),
					)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().String("sort", "", "Sort column (id, name, company, street, city, created_at)")
	cmd.Flags().String("dir", "", "Sort direction (asc or desc)")
	return cmd
}

func addCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a single shipment",
		RunE: func(cmd *cobra.Command, args []string) error {
			var in core.ShipmentInput
			in.Name, _ = cmd.Flags().GetString("name")
			in.Company, _ = cmd.Flags().GetString("company")
			in.Street, _ = cmd.Flags().GetString("street")
			in.PostalCode, _ = cmd.Flags().GetString("postal-code")
			in.City, _ = cmd.Flags().GetString("city")

			return withService(cmd, open, func(ctx context.Context, svc *core.Service) error {
				s, err := svc.Create(ctx, in)
				if err != nil {
					return fmt.Errorf("failed to create shipment: %s", describe(err))
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s Created shipment %s\n", color.New(color.FgGreen).Sprint("✓"), s.ID)
				fmt.Fprintf(out, "  Destination: %s\n", s.Destination)
				fmt.Fprintf(out, "  Corrected city: %s (%s)\n", s.CorrectedCity, formatConfidence(s.Confidence))
				return nil
			})
		},
	}
	cmd.Flags().String("name", "", "Recipient name")
	cmd.Flags().String("company", "", "Business ID (1234567-8)")
	cmd.Flags().String("street", "", "Street address")
	cmd.Flags().String("postal-code", "", "Five digit postal code")
	cmd.Flags().String("city", "", "City")
	return cmd
}

func deleteCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id...]",
		Short: "Delete shipments by ID",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, open, func(ctx context.Context, svc *core.Service) error {
				n, err := svc.DeleteMany(ctx, args)
				if err != nil {
					return fmt.Errorf("failed to delete shipments: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s Deleted %d shipment(s)\n", color.New(color.FgGreen).Sprint("✓"), n)
				if missing := len(args) - n; missing > 0 {
					fmt.Fprintf(out, "  %s\n", color.New(color.FgYellow).Sprintf("%d ID(s) not found", missing))
				}
				return nil
			})
		},
	}
}

func exportCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [id...]",
		Short: "Export shipments as CSV",
		Long: `Export shipments as CSV. Without IDs every shipment is exported in
stored order.

Output goes to stdout unless --output names a file. --file writes to
the dated default name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			toFile, _ := cmd.Flags().GetBool("file")
			ids, _ := cmd.Flags().GetStringSlice("ids")
			ids = append(ids, args...)

			return withService(cmd, open, func(ctx context.Context, svc *core.Service) error {
				csv, err := svc.Export(ctx, ids)
				if err != nil {
					return fmt.Errorf("failed to export shipments: %w", err)
				}

				if output == "" && toFile {
					output = svc.ExportFileName()
				}
				return writeOutput(cmd.OutOrStdout(), output, csv)
			})
		},
	}
	cmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().Bool("file", false, "Write to shipments-export-<date>.csv")
	cmd.Flags().StringSlice("ids", nil, "Comma-separated shipment IDs to export")
	return cmd
}

func templateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Print an example import file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			return writeOutput(cmd.OutOrStdout(), output, core.TemplateCSV)
		},
	}
	cmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func correctCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "correct [city]",
		Short: "Ask the correction service for a city name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, open, func(ctx context.Context, svc *core.Service) error {
				c, err := svc.CorrectCity(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to correct city: %s", describe(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s)\n", c.Original, c.Corrected, formatConfidence(c.Confidence))
				return nil
			})
		},
	}
}

// writeOutput writes body to path, or to out when path is empty.
func writeOutput(out io.Writer, path, body string) error {
	if path == "" || path == "-" {
		if !strings.HasSuffix(body, "\n") {
			body += "\n"
		}
		_, err := io.WriteString(out, body)
		return err
	}

	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(out, "%s Wrote %s\n", color.New(color.FgGreen).Sprint("✓"), path)
	return nil
}

func formatConfidence(c *float64) string {
	if c == nil {
		return "-"
	}
	return fmt.Sprintf("%d%%", int(*c*100+0.5))
}
