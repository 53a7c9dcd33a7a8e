package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vcms/internal/model"
)

// ErrInvalidInputs is the root of every ValidateInputs failure.
var ErrInvalidInputs = eris.New("scorer: invalid score inputs")

// ValidateInputs rejects evidence outside the ranges the engine is defined
// for. Values are never clamped.
func ValidateInputs(in model.ScoreInputs) error {
	var errs []string

	if !inStarRange(in.Quality.StarRating) {
		errs = append(errs, fmt.Sprintf("star_rating must be between 0 and 5, got %v", in.Quality.StarRating))
	}
	if in.Quality.ReviewCount < 0 {
		errs = append(errs, fmt.Sprintf("review_count must be >= 0, got %d", in.Quality.ReviewCount))
	}
	if !inStarRange(in.Reliability.InternalRating) {
		errs = append(errs, fmt.Sprintf("internal_rating must be between 0 and 5, got %v", in.Reliability.InternalRating))
	}
	if in.Reliability.TotalJobs < 0 {
		errs = append(errs, fmt.Sprintf("total_jobs must be >= 0, got %d", in.Reliability.TotalJobs))
	}

	if len(errs) > 0 {
		return eris.Wrap(ErrInvalidInputs, strings.Join(errs, "; "))
	}
	return nil
}

func inStarRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= maxStars
}
