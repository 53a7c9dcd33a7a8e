package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vcms/internal/pipeline"
)

var (
	processUser string
	processJSON bool
)

var processCmd = &cobra.Command{
	Use:   "process <media-id>...",
	Short: "Run the business card pipeline for one or more media ids",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "pipeline")
		if err != nil {
			return err
		}
		defer env.Close()

		results := env.Orchestrator.ProcessBatch(ctx, args, processUser)

		if processJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return eris.Wrap(err, "encode results")
			}
		} else {
			formatResults(os.Stdout, results)
		}

		failed := 0
		for _, r := range results {
			if !r.Success {
				failed++
			}
		}
		zap.L().Info("process complete",
			zap.Int("total", len(results)),
			zap.Int("failed", failed),
		)
		if failed > 0 {
			return eris.Errorf("%d of %d media ids failed", failed, len(results))
		}
		return nil
	},
}

func formatResults(w io.Writer, results []pipeline.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MEDIA\tSTATE\tVENDOR\tERROR")
	for _, r := range results {
		vendor := r.VendorID
		if r.Replayed {
			vendor += " (existing)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.MediaID, r.State, vendor, r.Error)
	}
	_ = tw.Flush()
}

func init() {
	processCmd.Flags().StringVar(&processUser, "user", "", "user id recorded as the vendor creator")
	processCmd.Flags().BoolVar(&processJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(processCmd)
}
