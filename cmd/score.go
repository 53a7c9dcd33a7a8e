package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/vcms/internal/model"
	"github.com/sells-group/vcms/internal/scorer"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute score components for the given evidence",
	Long:  "Computes quality, reliability, and compliance components and the final VCMS score offline. Nothing is read from or written to the store.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, err := scoreInputsFromFlags(cmd)
		if err != nil {
			return err
		}
		if err := scorer.ValidateInputs(in); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(scorer.ScoreInputs(in)); err != nil {
			return eris.Wrap(err, "encode score")
		}
		return nil
	},
}

func scoreInputsFromFlags(cmd *cobra.Command) (model.ScoreInputs, error) {
	var in model.ScoreInputs
	var err error
	f := cmd.Flags()

	if in.Quality.StarRating, err = f.GetFloat64("stars"); err != nil {
		return in, err
	}
	if in.Quality.ReviewCount, err = f.GetInt("reviews"); err != nil {
		return in, err
	}
	if in.Reliability.InternalRating, err = f.GetFloat64("internal"); err != nil {
		return in, err
	}
	if in.Reliability.TotalJobs, err = f.GetInt("jobs"); err != nil {
		return in, err
	}
	if in.Compliance.HasCOI, err = f.GetBool("coi"); err != nil {
		return in, err
	}
	if in.Compliance.HasContract, err = f.GetBool("contract"); err != nil {
		return in, err
	}
	if in.Compliance.IsDoNotUse, err = f.GetBool("dnu"); err != nil {
		return in, err
	}
	if in.Compliance.LicenseExpired, err = f.GetBool("license-expired"); err != nil {
		return in, err
	}
	return in, nil
}

func init() {
	f := scoreCmd.Flags()
	f.Float64("stars", 0, "public star rating (0-5)")
	f.Int("reviews", 0, "public review count")
	f.Float64("internal", 0, "internal performance rating (0-5)")
	f.Int("jobs", 0, "total jobs completed")
	f.Bool("coi", false, "certificate of insurance on file")
	f.Bool("contract", false, "signed contract on file")
	f.Bool("dnu", false, "vendor is flagged do-not-use")
	f.Bool("license-expired", false, "vendor license has expired")
	rootCmd.AddCommand(scoreCmd)
}
