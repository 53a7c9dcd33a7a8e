// Package store persists media assets and vendor profiles.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/sells-group/vcms/internal/model"
)

var (
	// ErrNotFound is returned when a media asset or vendor does not exist.
	ErrNotFound = eris.New("store: not found")
	// ErrDuplicate is returned when a vendor already exists for a media asset.
	ErrDuplicate = eris.New("store: duplicate")
)

// Store defines the persistence interface for the VCMS pipeline.
type Store interface {
	// Media
	GetMediaAsset(ctx context.Context, mediaID string) (*model.MediaAsset, error)
	UpsertMediaAsset(ctx context.Context, asset *model.MediaAsset) error
	MarkMediaProcessed(ctx context.Context, mediaID, vendorID string) error
	ImportMediaAssets(ctx context.Context, assets []model.MediaAsset) (int64, error)

	// Vendors
	CreateVendorProfile(ctx context.Context, p *model.VendorProfile) (string, error)
	CommitVendor(ctx context.Context, p *model.VendorProfile) (string, error)
	GetVendorProfile(ctx context.Context, vendorID string) (*model.VendorProfile, error)
	GetVendorByMedia(ctx context.Context, mediaID string) (*model.VendorProfile, error)
	ListVendorProfiles(ctx context.Context, filter model.VendorFilter) ([]model.VendorProfile, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Pool is the subset of pgxpool.Pool used by PostgresStore. It is satisfied
// by *pgxpool.Pool and pgxmock.PgxPoolIface.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

const vendorColumns = `id, name, first_name, last_name, title, email, phone, company_name, website, linkedin,
	vcms_score, primary_industry, industry_synonyms, validation_status, validation_notes, is_do_not_use,
	custom_fields, source_media_id, created_by, created_at`

const defaultListLimit = 100

// prepareVendor fills in the id and timestamp of a new profile and encodes
// its JSON columns.
func prepareVendor(p *model.VendorProfile) (synonyms, custom []byte, err error) {
	if p.SourceMediaID == "" {
		return nil, nil, eris.New("store: vendor profile has no source media id")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Name == "" {
		p.Name = model.FullName(p.FirstName, p.LastName)
	}
	if p.IndustrySynonyms == nil {
		p.IndustrySynonyms = []string{}
	}
	if p.CustomFields == nil {
		p.CustomFields = map[string]any{}
	}

	synonyms, err = json.Marshal(p.IndustrySynonyms)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal industry synonyms")
	}
	custom, err = json.Marshal(p.CustomFields)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal custom fields")
	}
	return synonyms, custom, nil
}

func vendorArgs(p *model.VendorProfile, synonyms, custom any) []any {
	return []any{
		p.ID, p.Name, p.FirstName, p.LastName, p.Title, p.Email, p.Phone, p.CompanyName, p.Website, p.LinkedIn,
		p.VCMSScore, p.PrimaryIndustry, synonyms, string(p.ValidationStatus), p.ValidationNotes, p.IsDoNotUse,
		custom, p.SourceMediaID, p.CreatedBy, p.CreatedAt,
	}
}

func decodeVendorJSON(p *model.VendorProfile, synonyms, custom []byte) error {
	p.IndustrySynonyms = []string{}
	if len(synonyms) > 0 {
		if err := json.Unmarshal(synonyms, &p.IndustrySynonyms); err != nil {
			return eris.Wrap(err, "store: unmarshal industry synonyms")
		}
	}
	if len(custom) > 0 {
		if err := json.Unmarshal(custom, &p.CustomFields); err != nil {
			return eris.Wrap(err, "store: unmarshal custom fields")
		}
	}
	return nil
}
