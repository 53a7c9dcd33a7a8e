// Package model defines the data types shared across the VCMS pipeline.
package model

// ExtractionStatus is the three-way outcome assigned by the extraction service.
type ExtractionStatus string

const (
	ExtractionValidated ExtractionStatus = "Validated"
	ExtractionAmbiguous ExtractionStatus = "Ambiguous"
	ExtractionFailed    ExtractionStatus = "Failed"
)

// Valid reports whether s is one of the known extraction statuses.
func (s ExtractionStatus) Valid() bool {
	switch s {
	case ExtractionValidated, ExtractionAmbiguous, ExtractionFailed:
		return true
	default:
		return false
	}
}

// Phone is a labeled phone number read off a card.
type Phone struct {
	Label  string `json:"label" yaml:"label"`
	Number string `json:"number" yaml:"number"`
}

// Contact holds the person fields of a business card. FirstName is the only
// load-bearing field; everything else may be empty.
type Contact struct {
	FirstName    string   `json:"first_name" yaml:"first_name"`
	LastName     string   `json:"last_name,omitempty" yaml:"last_name"`
	Title        string   `json:"title,omitempty" yaml:"title"`
	Email        string   `json:"email,omitempty" yaml:"email"`
	Emails       []string `json:"emails,omitempty" yaml:"emails"`
	PhonePrimary string   `json:"phone_primary,omitempty" yaml:"phone_primary"`
	Phones       []Phone  `json:"phones,omitempty" yaml:"phones"`
}

// Company holds the organization fields of a business card. CompanyName is
// the only load-bearing field.
type Company struct {
	CompanyName             string   `json:"company_name" yaml:"company_name"`
	WebsiteDomain           string   `json:"website_domain,omitempty" yaml:"website_domain"`
	PrimaryIndustryCategory string   `json:"primary_industry_category,omitempty" yaml:"primary_industry_category"`
	IndustrySynonyms        []string `json:"industry_synonyms,omitempty" yaml:"industry_synonyms"`
	FullAddress             string   `json:"full_address,omitempty" yaml:"full_address"`
	SocialLinkedIn          string   `json:"social_linkedin,omitempty" yaml:"social_linkedin"`
}

// ExtractionCandidate is the raw structured guess produced from an image.
type ExtractionCandidate struct {
	Status  ExtractionStatus `json:"status" yaml:"status"`
	Notes   string           `json:"notes" yaml:"notes"`
	Contact Contact          `json:"contact" yaml:"contact"`
	Company Company          `json:"company" yaml:"company"`
}

// NormalizedContact is a Contact after canonicalization.
type NormalizedContact Contact

// NormalizedCompany is a Company after canonicalization.
type NormalizedCompany Company
