package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vcms/internal/ingest"
	"github.com/sells-group/vcms/internal/model"
)

var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Register business card images",
}

var mediaAddCmd = &cobra.Command{
	Use:   "add <media-id> <url>",
	Short: "Register a single media asset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		asset := &model.MediaAsset{ID: args[0], URL: args[1]}
		if err := st.UpsertMediaAsset(ctx, asset); err != nil {
			return eris.Wrap(err, "media add")
		}
		fmt.Fprintln(os.Stdout, asset.ID)
		return nil
	},
}

var mediaImportCmd = &cobra.Command{
	Use:   "import <manifest>",
	Short: "Register media assets from a CSV or XLSX manifest with id and url columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		assets, err := ingest.ReadFile(ctx, args[0])
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.ImportMediaAssets(ctx, assets)
		if err != nil {
			return eris.Wrap(err, "media import")
		}

		zap.L().Info("media import complete",
			zap.Int("assets", len(assets)),
			zap.Int64("rows_affected", n),
			zap.String("manifest", args[0]),
		)
		return nil
	},
}

func init() {
	mediaCmd.AddCommand(mediaAddCmd, mediaImportCmd)
	rootCmd.AddCommand(mediaCmd)
}
