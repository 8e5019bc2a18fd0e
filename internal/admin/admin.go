// Package admin holds the operator commands of wastewatch-admin.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"wastewatch/backend/internal/analysis"
	"wastewatch/backend/internal/complaint"
	"wastewatch/backend/internal/models"
	"wastewatch/backend/internal/storage"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Complaints is the part of the lifecycle manager the commands drive.
type Complaints interface {
	All(ctx context.Context) ([]models.ComplaintRecord, error)
	Resolve(ctx context.Context, imageID string) (models.ComplaintRecord, error)
	CheckInvariant(ctx context.Context) ([]analysis.ConflictPair, error)
	RadiusMeters() float64
}

// ErrConflicts is returned by check when open complaints are too close.
var ErrConflicts = errors.New("open complaints violate the dedup radius")

const (
	FormatCSV     = "csv"
	FormatGeoJSON = "geojson"
	FormatJSON    = "json"
)

// NewRootCmd builds the command tree. open is called once per command run,
// after flags are parsed, so --help works without a configured store.
func NewRootCmd(open func() (Complaints, func() error, error)) *cobra.Command {
	root := &cobra.Command{
		Use:           "wastewatch-admin",
		Short:         "Operator tools for the complaint store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(ListCmd(open))
	root.AddCommand(ResolveCmd(open))
	root.AddCommand(ExportCmd(open))
	root.AddCommand(CheckCmd(open))
	return root
}

func withComplaints(open func() (Complaints, func() error, error), fn func(ctx context.Context, svc Complaints) error) error {
	svc, closeFn, err := open()
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}
	return fn(context.Background(), svc)
}

func ListCmd(open func() (Complaints, func() error, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List complaints",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			if status != "all" && !models.Status(status).Valid() {
				return fmt.Errorf("unknown status %q (processing, resolved or all)", status)
			}

			return withComplaints(open, func(ctx context.Context, svc Complaints) error {
				records, err := svc.All(ctx)
				if err != nil {
					return fmt.Errorf("failed to list complaints: %w", err)
				}
				records = filterStatus(records, status)
				sort.Slice(records, func(i, j int) bool { return records[i].Date > records[j].Date })

				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No complaints found")
					return nil
				}

				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "IMAGE ID\tLATITUDE\tLONGITUDE\tPIXEL AREA\tSTATUS\tDATE")
				for _, rec := range records {
					fmt.Fprintf(tw, "%s\t%.6f\t%.6f\t%d\t%s\t%s\n",
						rec.ImageID, rec.Latitude, rec.Longitude, rec.PixelArea, statusLabel(rec.Status), rec.Date)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(out, "\n%d complaint(s)\n", len(records))
				return nil
			})
		},
	}
	cmd.Flags().String("status", "all", "Filter by status: processing, resolved or all")
	return cmd
}

func ResolveCmd(open func() (Complaints, func() error, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [image_id]",
		Short: "Mark a complaint as resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComplaints(open, func(ctx context.Context, svc Complaints) error {
				rec, err := svc.Resolve(ctx, args[0])
				if errors.Is(err, complaint.ErrNotFound) {
					return fmt.Errorf("no complaint with image_id %s", args[0])
				}
				if err != nil {
					return fmt.Errorf("failed to resolve complaint: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Complaint %s is %s\n", rec.ImageID, statusLabel(rec.Status))
				return nil
			})
		},
	}
}

func ExportCmd(open func() (Complaints, func() error, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export complaints as csv, geojson or json",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			status, _ := cmd.Flags().GetString("status")
			path, _ := cmd.Flags().GetString("out")
			switch format {
			case FormatCSV, FormatGeoJSON, FormatJSON:
			default:
				return fmt.Errorf("unknown format %q (csv, geojson or json)", format)
			}
			if status != "all" && !models.Status(status).Valid() {
				return fmt.Errorf("unknown status %q (processing, resolved or all)", status)
			}

			return withComplaints(open, func(ctx context.Context, svc Complaints) error {
				records, err := svc.All(ctx)
				if err != nil {
					return fmt.Errorf("failed to read complaints: %w", err)
				}
				records = filterStatus(records, status)

				out := cmd.OutOrStdout()
				if path != "" {
					f, err := os.Create(path)
					if err != nil {
						return fmt.Errorf("failed to create %s: %w", path, err)
					}
					defer f.Close()
					out = f
				}
				if err := Export(out, format, records); err != nil {
					return err
				}
				if path != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %d complaint(s) to %s\n", len(records), path)
				}
				return nil
			})
		},
	}
	cmd.Flags().String("format", FormatCSV, "Output format: csv, geojson or json")
	cmd.Flags().String("status", "all", "Filter by status: processing, resolved or all")
	cmd.Flags().StringP("out", "o", "", "Write to a file instead of stdout")
	return cmd
}

// Export writes records to w in the given format.
func Export(w io.Writer, format string, records []models.ComplaintRecord) error {
	switch format {
	case FormatCSV:
		return storage.WriteCSV(w, records)
	case FormatGeoJSON:
		data, err := complaint.ToGeoJSON(records).MarshalJSON()
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatJSON:
		if records == nil {
			records = []models.ComplaintRecord{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func CheckCmd(open func() (Complaints, func() error, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that no two open complaints are within the dedup radius",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComplaints(open, func(ctx context.Context, svc Complaints) error {
				pairs, err := svc.CheckInvariant(ctx)
				if err != nil {
					return fmt.Errorf("failed to check complaints: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(pairs) == 0 {
					fmt.Fprintln(out, color.New(color.FgHiGreen).Sprintf("OK: no open complaints within %.0f m of each other", svc.RadiusMeters()))
					return nil
				}

				red := color.New(color.FgRed)
				for _, p := range pairs {
					fmt.Fprintln(out, red.Sprintf("%s <-> %s  %.1f m", p.A.ImageID, p.B.ImageID, p.DistanceMeters))
				}
				return fmt.Errorf("%w: %d pair(s)", ErrConflicts, len(pairs))
			})
		},
	}
}

func filterStatus(records []models.ComplaintRecord, status string) []models.ComplaintRecord {
	out := make([]models.ComplaintRecord, 0, len(records))
	for _, rec := range records {
		if status == "all" || string(rec.Status) == status {
			out = append(out, rec)
		}
	}
	return out
}

func statusLabel(s models.Status) string {
	switch s {
	case models.StatusProcessing:
		return color.New(color.FgYellow).Sprint(s)
	case models.StatusResolved:
		return color.New(color.FgHiGreen).Sprint(s)
	default:
		return string(s)
	}
}
