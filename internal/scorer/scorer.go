// Package scorer implements the VCMS vendor fitness score.
package scorer

import (
	"math"

	"github.com/sells-group/vcms/internal/model"
)

// Sub-score ceilings.
const (
	MaxQuality     = 50.0
	MaxReliability = 35.0
	MaxCompliance  = 15.0

	maxRatingPoints = 40.0
	maxVolumePoints = 10.0
	maxStars        = 5.0
)

// Component weights in percent (sum = 100).
const (
	QualityWeight     = 50
	ReliabilityWeight = 35
	ComplianceWeight  = 15
)

// Penalty multipliers.
const (
	NoPenalty = 1.0
	Penalty   = 0.5
)

// Compliance credits.
const (
	coiCredit      = 10.0
	contractCredit = 5.0
)

// Score computes the VCMS components for the given evidence. It is pure and
// does not range-check ratings; use ValidateInputs at the boundary.
func Score(q model.QualityEvidence, r model.ReliabilityEvidence, c model.ComplianceEvidence) model.ScoreComponents {
	quality := QualityScore(q)
	reliability := ReliabilityScore(r)
	compliance := ComplianceScore(c)
	penalty := PenaltyMultiplier(c)

	weighted := (QualityWeight*quality + ReliabilityWeight*reliability + ComplianceWeight*compliance) / 100
	final := int(math.Round(weighted * penalty))

	return model.ScoreComponents{
		QualityScore:      quality,
		ReliabilityScore:  reliability,
		ComplianceScore:   compliance,
		PenaltyMultiplier: penalty,
		FinalScore:        min(100, max(0, final)),
	}
}

// ScoreInputs is Score over a grouped ScoreInputs value.
func ScoreInputs(in model.ScoreInputs) model.ScoreComponents {
	return Score(in.Quality, in.Reliability, in.Compliance)
}

// QualityScore combines star rating and review volume, capped at 50.
func QualityScore(q model.QualityEvidence) float64 {
	rating := (q.StarRating / maxStars) * maxRatingPoints
	return math.Min(MaxQuality, rating+VolumeScore(q.ReviewCount))
}

// VolumeScore rewards review volume with diminishing returns, capped at 10.
// Zero reviews contribute nothing.
func VolumeScore(reviewCount int) float64 {
	return math.Min(maxVolumePoints, math.Log10(float64(reviewCount)+1)*5)
}

// ReliabilityScore scales the internal rating onto 0-35. TotalJobs is
// reporting-only.
func ReliabilityScore(r model.ReliabilityEvidence) float64 {
	return math.Min(MaxReliability, (r.InternalRating/maxStars)*MaxReliability)
}

// ComplianceScore adds credits for a certificate of insurance and a contract.
func ComplianceScore(c model.ComplianceEvidence) float64 {
	var s float64
	if c.HasCOI {
		s += coiCredit
	}
	if c.HasContract {
		s += contractCredit
	}
	return s
}

// PenaltyMultiplier halves the score when the vendor has an expired license
// or is flagged do-not-use. Both flags together do not compound.
func PenaltyMultiplier(c model.ComplianceEvidence) float64 {
	if c.LicenseExpired || c.IsDoNotUse {
		return Penalty
	}
	return NoPenalty
}

// Baseline returns the components for a vendor with no evidence yet.
func Baseline() model.ScoreComponents {
	return ScoreInputs(model.ScoreInputs{})
}
