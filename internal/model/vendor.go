package model

import (
	"strings"
	"time"
)

// ValidationStatus is the persisted two-way collapse of ExtractionStatus.
type ValidationStatus string

const (
	ValidationValidated ValidationStatus = "VALIDATED"
	ValidationAmbiguous ValidationStatus = "AMBIGUOUS"
)

// ValidationFromExtraction maps an extraction outcome onto the persisted
// status. Only Validated survives; Ambiguous and Failed both become AMBIGUOUS.
func ValidationFromExtraction(s ExtractionStatus) ValidationStatus {
	if s == ExtractionValidated {
		return ValidationValidated
	}
	return ValidationAmbiguous
}

// VendorProfile is the persisted vendor entity.
type VendorProfile struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	FirstName        string           `json:"first_name"`
	LastName         string           `json:"last_name,omitempty"`
	Title            string           `json:"title,omitempty"`
	Email            string           `json:"email,omitempty"`
	Phone            string           `json:"phone,omitempty"`
	CompanyName      string           `json:"company_name"`
	Website          string           `json:"website,omitempty"`
	LinkedIn         string           `json:"linkedin,omitempty"`
	VCMSScore        int              `json:"vcms_score"`
	PrimaryIndustry  string           `json:"primary_industry,omitempty"`
	IndustrySynonyms []string         `json:"industry_synonyms"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	ValidationNotes  string           `json:"validation_notes,omitempty"`
	IsDoNotUse       bool             `json:"is_do_not_use"`
	CustomFields     map[string]any   `json:"custom_fields,omitempty"`
	SourceMediaID    string           `json:"source_media_id"`
	CreatedBy        string           `json:"created_by,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// FullName joins first and last name, skipping an empty last name.
func FullName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// VendorFilter specifies criteria for listing vendor profiles.
type VendorFilter struct {
	ValidationStatus ValidationStatus `json:"validation_status,omitempty"`
	MinScore         int              `json:"min_score,omitempty"`
	Limit            int              `json:"limit,omitempty"`
	Offset           int              `json:"offset,omitempty"`
}
