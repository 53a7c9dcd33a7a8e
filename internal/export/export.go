// Package export writes vendor profiles as CSV or XLSX.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/vcms/internal/model"
)

// Header is the column order of every export.
var Header = []string{
	"id", "name", "first_name", "last_name", "title", "email", "phone",
	"company_name", "website", "linkedin", "vcms_score", "primary_industry",
	"industry_synonyms", "validation_status", "validation_notes", "is_do_not_use",
	"custom_fields", "source_media_id", "created_by", "created_at",
}

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// Write encodes profiles to w in the given format.
func Write(w io.Writer, format Format, profiles []model.VendorProfile) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, profiles)
	case FormatXLSX:
		return WriteXLSX(w, profiles)
	default:
		return eris.Errorf("export: unknown format %q", format)
	}
}

// WriteCSV writes a header row then one row per profile.
func WriteCSV(w io.Writer, profiles []model.VendorProfile) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, p := range profiles {
		rec, err := Record(p)
		if err != nil {
			return err
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", p.ID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteXLSX writes a single "Vendors" sheet. Scores are numeric cells.
func WriteXLSX(w io.Writer, profiles []model.VendorProfile) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Vendors")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range Header {
		header.AddCell().SetString(h)
	}

	scoreCol := indexOf(Header, "vcms_score")
	for _, p := range profiles {
		rec, err := Record(p)
		if err != nil {
			return err
		}
		row := sheet.AddRow()
		for i, v := range rec {
			cell := row.AddCell()
			if i == scoreCol {
				cell.SetInt(p.VCMSScore)
				continue
			}
			cell.SetString(v)
		}
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}

// Record flattens a profile into Header order. List and map fields are
// JSON encoded.
func Record(p model.VendorProfile) ([]string, error) {
	synonyms := p.IndustrySynonyms
	if synonyms == nil {
		synonyms = []string{}
	}
	synJSON, err := json.Marshal(synonyms)
	if err != nil {
		return nil, eris.Wrapf(err, "export: marshal synonyms %s", p.ID)
	}
	custom := "{}"
	if len(p.CustomFields) > 0 {
		b, err := json.Marshal(p.CustomFields)
		if err != nil {
			return nil, eris.Wrapf(err, "export: marshal custom fields %s", p.ID)
		}
		custom = string(b)
	}

	createdAt := ""
	if !p.CreatedAt.IsZero() {
		createdAt = p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z")
	}

	return []string{
		p.ID, p.Name, p.FirstName, p.LastName, p.Title, p.Email, p.Phone,
		p.CompanyName, p.Website, p.LinkedIn, strconv.Itoa(p.VCMSScore), p.PrimaryIndustry,
		string(synJSON), string(p.ValidationStatus), p.ValidationNotes, strconv.FormatBool(p.IsDoNotUse),
		custom, p.SourceMediaID, p.CreatedBy, createdAt,
	}, nil
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
