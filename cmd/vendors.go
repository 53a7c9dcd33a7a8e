package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vcms/internal/export"
	"github.com/sells-group/vcms/internal/model"
	"github.com/sells-group/vcms/internal/store"
)

const exportPageSize = 500

var vendorsCmd = &cobra.Command{
	Use:   "vendors",
	Short: "Inspect and export vendor profiles",
}

// -- vendors list --

var vendorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List vendor profiles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		filter, err := vendorFilterFromFlags(cmd)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		vendors, err := st.ListVendorProfiles(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "vendors list")
		}

		if len(vendors) == 0 {
			fmt.Fprintln(os.Stderr, "No vendors found.")
			return nil
		}

		formatVendorsList(os.Stdout, vendors)
		return nil
	},
}

// -- vendors export --

var vendorsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export vendor profiles as CSV or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		formatName, _ := cmd.Flags().GetString("format")
		format, err := export.ParseFormat(formatName)
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")
		if format == export.FormatXLSX && output == "" {
			return eris.New("--output is required for xlsx")
		}

		filter, err := vendorFilterFromFlags(cmd)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		vendors, err := listAllVendors(ctx, st, filter)
		if err != nil {
			return err
		}

		var w io.Writer = os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return eris.Wrap(err, "create export file")
			}
			defer f.Close() //nolint:errcheck
			w = f
		}

		if err := export.Write(w, format, vendors); err != nil {
			return eris.Wrap(err, "vendors export")
		}

		zap.L().Info("vendors exported",
			zap.Int("count", len(vendors)),
			zap.String("format", string(format)),
			zap.String("output", output),
		)
		return nil
	},
}

func vendorFilterFromFlags(cmd *cobra.Command) (model.VendorFilter, error) {
	status, _ := cmd.Flags().GetString("status")
	minScore, _ := cmd.Flags().GetInt("min-score")

	filter := model.VendorFilter{MinScore: minScore}
	switch model.ValidationStatus(status) {
	case "":
	case model.ValidationValidated, model.ValidationAmbiguous:
		filter.ValidationStatus = model.ValidationStatus(status)
	default:
		return filter, eris.Errorf("--status must be %s or %s", model.ValidationValidated, model.ValidationAmbiguous)
	}
	if minScore < 0 || minScore > 100 {
		return filter, eris.New("--min-score must be between 0 and 100")
	}

	if cmd.Flags().Lookup("limit") != nil {
		filter.Limit, _ = cmd.Flags().GetInt("limit")
		filter.Offset, _ = cmd.Flags().GetInt("offset")
		if filter.Limit < 0 || filter.Offset < 0 {
			return filter, eris.New("--limit and --offset must be >= 0")
		}
	}
	return filter, nil
}

// listAllVendors pages through every profile matching filter.
func listAllVendors(ctx context.Context, st store.Store, filter model.VendorFilter) ([]model.VendorProfile, error) {
	var all []model.VendorProfile
	filter.Limit = exportPageSize
	for filter.Offset = 0; ; filter.Offset += exportPageSize {
		page, err := st.ListVendorProfiles(ctx, filter)
		if err != nil {
			return nil, eris.Wrap(err, "list vendors")
		}
		all = append(all, page...)
		if len(page) < exportPageSize {
			return all, nil
		}
	}
}

func formatVendorsList(w io.Writer, vendors []model.VendorProfile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCOMPANY\tSCORE\tSTATUS\tMEDIA\tCREATED")
	for _, v := range vendors {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			v.ID, v.Name, v.CompanyName, v.VCMSScore, v.ValidationStatus,
			v.SourceMediaID, v.CreatedAt.Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
}

func init() {
	for _, c := range []*cobra.Command{vendorsListCmd, vendorsExportCmd} {
		c.Flags().String("status", "", "filter by validation status (VALIDATED, AMBIGUOUS)")
		c.Flags().Int("min-score", 0, "minimum VCMS score")
	}
	vendorsListCmd.Flags().Int("limit", 50, "maximum number of vendors")
	vendorsListCmd.Flags().Int("offset", 0, "number of vendors to skip")

	vendorsExportCmd.Flags().String("format", "csv", "export format (csv, xlsx)")
	vendorsExportCmd.Flags().String("output", "", "output file (default stdout for csv)")

	vendorsCmd.AddCommand(vendorsListCmd, vendorsExportCmd)
	rootCmd.AddCommand(vendorsCmd)
}
