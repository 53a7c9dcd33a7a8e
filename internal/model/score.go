package model

// QualityEvidence is public review evidence for a vendor.
type QualityEvidence struct {
	StarRating  float64 `json:"star_rating"`
	ReviewCount int     `json:"review_count"`
}

// ReliabilityEvidence is internal performance history for a vendor.
// TotalJobs is informational and carries no weight.
type ReliabilityEvidence struct {
	InternalRating float64 `json:"internal_rating"`
	TotalJobs      int     `json:"total_jobs"`
}

// ComplianceEvidence holds the paperwork and disqualification flags.
type ComplianceEvidence struct {
	HasCOI         bool `json:"has_coi"`
	HasContract    bool `json:"has_contract"`
	IsDoNotUse     bool `json:"is_do_not_use"`
	LicenseExpired bool `json:"license_expired"`
}

// ScoreInputs groups the three evidence groups supplied by the caller.
type ScoreInputs struct {
	Quality     QualityEvidence     `json:"quality"`
	Reliability ReliabilityEvidence `json:"reliability"`
	Compliance  ComplianceEvidence  `json:"compliance"`
}

// ScoreComponents is the breakdown produced by the scoring engine.
type ScoreComponents struct {
	QualityScore      float64 `json:"quality_score"`
	ReliabilityScore  float64 `json:"reliability_score"`
	ComplianceScore   float64 `json:"compliance_score"`
	PenaltyMultiplier float64 `json:"penalty_multiplier"`
	FinalScore        int     `json:"final_score"`
}
