package pipeline

import (
	"github.com/sells-group/vcms/internal/model"
)

// fallbackCandidate stands in for a failed extraction so the run can still
// persist an AMBIGUOUS record.
func fallbackCandidate(err error) *model.ExtractionCandidate {
	return &model.ExtractionCandidate{
		Status: model.ExtractionAmbiguous,
		Notes:  "extraction failed: " + err.Error(),
	}
}

// buildProfile assembles the vendor profile persisted for a run.
func buildProfile(
	mediaID, userID string,
	cand *model.ExtractionCandidate,
	contact model.NormalizedContact,
	company model.NormalizedCompany,
	comps model.ScoreComponents,
) *model.VendorProfile {
	return &model.VendorProfile{
		Name:             model.FullName(contact.FirstName, contact.LastName),
		FirstName:        contact.FirstName,
		LastName:         contact.LastName,
		Title:            contact.Title,
		Email:            contact.Email,
		Phone:            contact.PhonePrimary,
		CompanyName:      company.CompanyName,
		Website:          company.WebsiteDomain,
		LinkedIn:         company.SocialLinkedIn,
		VCMSScore:        comps.FinalScore,
		PrimaryIndustry:  company.PrimaryIndustryCategory,
		IndustrySynonyms: company.IndustrySynonyms,
		ValidationStatus: model.ValidationFromExtraction(cand.Status),
		ValidationNotes:  cand.Notes,
		IsDoNotUse:       false,
		CustomFields:     customFields(contact, company),
		SourceMediaID:    mediaID,
		CreatedBy:        userID,
	}
}

// customFields keeps the raw card details that have no dedicated column.
func customFields(contact model.NormalizedContact, company model.NormalizedCompany) map[string]any {
	fields := map[string]any{}
	if len(contact.Phones) > 0 {
		fields["phones"] = contact.Phones
	}
	if len(contact.Emails) > 0 {
		fields["emails"] = contact.Emails
	}
	if company.FullAddress != "" {
		fields["address"] = company.FullAddress
	}
	return fields
}
