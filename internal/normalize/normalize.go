// Package normalize canonicalizes extracted business card fields without
// inferring new facts.
package normalize

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/vcms/internal/model"
)

// Candidate canonicalizes the contact and company of an extraction
// candidate. It trims the company name and lower-cases the primary email;
// every other field passes through unchanged. Applying it twice yields the
// same result as applying it once.
func Candidate(c model.ExtractionCandidate) (model.NormalizedContact, model.NormalizedCompany) {
	return Contact(c.Contact), Company(c.Company)
}

// Contact canonicalizes contact fields.
func Contact(c model.Contact) model.NormalizedContact {
	out := model.NormalizedContact(c)
	out.Email = Email(c.Email)
	out.Emails = slices.Clone(c.Emails)
	out.Phones = slices.Clone(c.Phones)
	return out
}

// Company canonicalizes company fields.
func Company(c model.Company) model.NormalizedCompany {
	out := model.NormalizedCompany(c)
	out.CompanyName = strings.TrimSpace(c.CompanyName)
	out.IndustrySynonyms = slices.Clone(c.IndustrySynonyms)
	return out
}

// Email trims and lower-cases an address. Syntax is not checked.
func Email(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// Caser is stateful; one per call keeps Email safe for concurrent runs.
	return cases.Lower(language.Und).String(s)
}
