package scorer

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vcms/internal/model"
)

func TestValidateInputs_Valid(t *testing.T) {
	require.NoError(t, ValidateInputs(model.ScoreInputs{}))
	require.NoError(t, ValidateInputs(model.ScoreInputs{
		Quality:     model.QualityEvidence{StarRating: 5, ReviewCount: 12},
		Reliability: model.ReliabilityEvidence{InternalRating: 0, TotalJobs: 3},
	}))
}

func TestValidateInputs_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		in      model.ScoreInputs
		wantMsg string
	}{
		{"stars too high", model.ScoreInputs{Quality: model.QualityEvidence{StarRating: 5.1}}, "star_rating"},
		{"stars negative", model.ScoreInputs{Quality: model.QualityEvidence{StarRating: -1}}, "star_rating"},
		{"stars NaN", model.ScoreInputs{Quality: model.QualityEvidence{StarRating: math.NaN()}}, "star_rating"},
		{"negative reviews", model.ScoreInputs{Quality: model.QualityEvidence{ReviewCount: -1}}, "review_count"},
		{"internal too high", model.ScoreInputs{Reliability: model.ReliabilityEvidence{InternalRating: 6}}, "internal_rating"},
		{"negative jobs", model.ScoreInputs{Reliability: model.ReliabilityEvidence{TotalJobs: -2}}, "total_jobs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInputs(tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInputs))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidateInputs_ReportsAllProblems(t *testing.T) {
	err := ValidateInputs(model.ScoreInputs{
		Quality:     model.QualityEvidence{StarRating: 9, ReviewCount: -1},
		Reliability: model.ReliabilityEvidence{InternalRating: -3},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "star_rating")
	assert.Contains(t, err.Error(), "review_count")
	assert.Contains(t, err.Error(), "internal_rating")
}
