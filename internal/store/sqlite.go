package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/vcms/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS media_assets (
	id               TEXT PRIMARY KEY,
	url              TEXT NOT NULL DEFAULT '',
	is_business_card INTEGER NOT NULL DEFAULT 0,
	vendor_id        TEXT,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS vendor_profiles (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL DEFAULT '',
	first_name        TEXT NOT NULL DEFAULT '',
	last_name         TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL DEFAULT '',
	email             TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	company_name      TEXT NOT NULL DEFAULT '',
	website           TEXT NOT NULL DEFAULT '',
	linkedin          TEXT NOT NULL DEFAULT '',
	vcms_score        INTEGER NOT NULL DEFAULT 0,
	primary_industry  TEXT NOT NULL DEFAULT '',
	industry_synonyms TEXT NOT NULL DEFAULT '[]',
	validation_status TEXT NOT NULL,
	validation_notes  TEXT NOT NULL DEFAULT '',
	is_do_not_use     INTEGER NOT NULL DEFAULT 0,
	custom_fields     TEXT NOT NULL DEFAULT '{}',
	source_media_id   TEXT NOT NULL,
	created_by        TEXT NOT NULL DEFAULT '',
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_vendor_profiles_source_media ON vendor_profiles(source_media_id);
CREATE INDEX IF NOT EXISTS idx_vendor_profiles_status ON vendor_profiles(validation_status);
CREATE INDEX IF NOT EXISTS idx_vendor_profiles_score ON vendor_profiles(vcms_score);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetMediaAsset(ctx context.Context, mediaID string) (*model.MediaAsset, error) {
	var m model.MediaAsset
	var vendorID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, url, is_business_card, vendor_id, created_at FROM media_assets WHERE id = ?`,
		mediaID,
	).Scan(&m.ID, &m.URL, &m.IsBusinessCard, &vendorID, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: media %s", mediaID)
		}
		return nil, eris.Wrapf(err, "sqlite: get media %s", mediaID)
	}
	m.VendorID = vendorID.String
	return &m, nil
}

func (s *SQLiteStore) UpsertMediaAsset(ctx context.Context, asset *model.MediaAsset) error {
	if asset.ID == "" {
		return eris.New("sqlite: media asset has no id")
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO media_assets (id, url, created_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET url = excluded.url`,
		asset.ID, asset.URL, asset.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert media %s", asset.ID)
}

const sqliteMarkMediaSQL = `UPDATE media_assets SET is_business_card = 1, vendor_id = ? WHERE id = ?`

func (s *SQLiteStore) MarkMediaProcessed(ctx context.Context, mediaID, vendorID string) error {
	res, err := s.db.ExecContext(ctx, sqliteMarkMediaSQL, vendorID, mediaID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark media %s", mediaID)
	}
	return checkRowsAffected(res, "media", mediaID)
}

var sqliteInsertVendorSQL = `INSERT INTO vendor_profiles (` + vendorColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *SQLiteStore) CreateVendorProfile(ctx context.Context, p *model.VendorProfile) (string, error) {
	synonyms, custom, err := prepareVendor(p)
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx, sqliteInsertVendorSQL, vendorArgs(p, string(synonyms), string(custom))...); err != nil {
		return "", wrapSQLiteInsertErr(err, p.SourceMediaID)
	}
	return p.ID, nil
}

// CommitVendor inserts the profile and tags its source media in one
// transaction. If the media row is gone nothing is written.
func (s *SQLiteStore) CommitVendor(ctx context.Context, p *model.VendorProfile) (string, error) {
	synonyms, custom, err := prepareVendor(p)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: begin commit vendor")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, sqliteInsertVendorSQL, vendorArgs(p, string(synonyms), string(custom))...); err != nil {
		return "", wrapSQLiteInsertErr(err, p.SourceMediaID)
	}

	res, err := tx.ExecContext(ctx, sqliteMarkMediaSQL, p.ID, p.SourceMediaID)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: mark media %s", p.SourceMediaID)
	}
	if err := checkRowsAffected(res, "media", p.SourceMediaID); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "sqlite: commit vendor")
	}
	return p.ID, nil
}

func wrapSQLiteInsertErr(err error, mediaID string) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return eris.Wrapf(ErrDuplicate, "sqlite: vendor for media %s", mediaID)
	}
	return eris.Wrapf(err, "sqlite: insert vendor for media %s", mediaID)
}

func (s *SQLiteStore) GetVendorProfile(ctx context.Context, vendorID string) (*model.VendorProfile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendor_profiles WHERE id = ?`, vendorID)
	p, err := scanSQLiteVendor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: vendor %s", vendorID)
		}
		return nil, eris.Wrapf(err, "sqlite: get vendor %s", vendorID)
	}
	return p, nil
}

func (s *SQLiteStore) GetVendorByMedia(ctx context.Context, mediaID string) (*model.VendorProfile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendor_profiles WHERE source_media_id = ?`, mediaID)
	p, err := scanSQLiteVendor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: vendor for media %s", mediaID)
		}
		return nil, eris.Wrapf(err, "sqlite: get vendor for media %s", mediaID)
	}
	return p, nil
}

func (s *SQLiteStore) ListVendorProfiles(ctx context.Context, filter model.VendorFilter) ([]model.VendorProfile, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendor_profiles WHERE 1=1`
	var args []any

	if filter.ValidationStatus != "" {
		query += ` AND validation_status = ?`
		args = append(args, string(filter.ValidationStatus))
	}
	if filter.MinScore > 0 {
		query += ` AND vcms_score >= ?`
		args = append(args, filter.MinScore)
	}
	query += ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, max(0, filter.Offset))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list vendors")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.VendorProfile
	for rows.Next() {
		p, err := scanSQLiteVendor(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan vendor")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate vendors")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: %s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteVendor(row scannable) (*model.VendorProfile, error) {
	var p model.VendorProfile
	var status, synonyms, custom string
	err := row.Scan(
		&p.ID, &p.Name, &p.FirstName, &p.LastName, &p.Title, &p.Email, &p.Phone, &p.CompanyName, &p.Website, &p.LinkedIn,
		&p.VCMSScore, &p.PrimaryIndustry, &synonyms, &status, &p.ValidationNotes, &p.IsDoNotUse,
		&custom, &p.SourceMediaID, &p.CreatedBy, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ValidationStatus = model.ValidationStatus(status)
	if err := decodeVendorJSON(&p, []byte(synonyms), []byte(custom)); err != nil {
		return nil, err
	}
	return &p, nil
}
