package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/vcms/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS media_assets (
	id               TEXT PRIMARY KEY,
	url              TEXT NOT NULL DEFAULT '',
	is_business_card BOOLEAN NOT NULL DEFAULT false,
	vendor_id        TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
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
	vcms_score        INTEGER NOT NULL DEFAULT 0 CHECK (vcms_score BETWEEN 0 AND 100),
	primary_industry  TEXT NOT NULL DEFAULT '',
	industry_synonyms JSONB NOT NULL DEFAULT '[]',
	validation_status TEXT NOT NULL CHECK (validation_status IN ('VALIDATED', 'AMBIGUOUS')),
	validation_notes  TEXT NOT NULL DEFAULT '',
	is_do_not_use     BOOLEAN NOT NULL DEFAULT false,
	custom_fields     JSONB NOT NULL DEFAULT '{}',
	source_media_id   TEXT NOT NULL,
	created_by        TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_vendor_profiles_source_media ON vendor_profiles(source_media_id);
CREATE INDEX IF NOT EXISTS idx_vendor_profiles_status ON vendor_profiles(validation_status);
CREATE INDEX IF NOT EXISTS idx_vendor_profiles_score ON vendor_profiles(vcms_score DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetMediaAsset(ctx context.Context, mediaID string) (*model.MediaAsset, error) {
	var m model.MediaAsset
	var vendorID *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, url, is_business_card, vendor_id, created_at FROM media_assets WHERE id = $1`,
		mediaID,
	).Scan(&m.ID, &m.URL, &m.IsBusinessCard, &vendorID, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: media %s", mediaID)
		}
		return nil, eris.Wrapf(err, "postgres: get media %s", mediaID)
	}
	if vendorID != nil {
		m.VendorID = *vendorID
	}
	return &m, nil
}

func (s *PostgresStore) UpsertMediaAsset(ctx context.Context, asset *model.MediaAsset) error {
	if asset.ID == "" {
		return eris.New("postgres: media asset has no id")
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO media_assets (id, url, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET url = EXCLUDED.url`,
		asset.ID, asset.URL, asset.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert media %s", asset.ID)
}

const markMediaSQL = `UPDATE media_assets SET is_business_card = true, vendor_id = $1 WHERE id = $2`

func (s *PostgresStore) MarkMediaProcessed(ctx context.Context, mediaID, vendorID string) error {
	tag, err := s.pool.Exec(ctx, markMediaSQL, vendorID, mediaID)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark media %s", mediaID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: media %s", mediaID)
	}
	return nil
}

var insertVendorSQL = `INSERT INTO vendor_profiles (` + vendorColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

func (s *PostgresStore) CreateVendorProfile(ctx context.Context, p *model.VendorProfile) (string, error) {
	synonyms, custom, err := prepareVendor(p)
	if err != nil {
		return "", err
	}
	if _, err := s.pool.Exec(ctx, insertVendorSQL, vendorArgs(p, synonyms, custom)...); err != nil {
		return "", wrapInsertErr(err, p.SourceMediaID)
	}
	return p.ID, nil
}

// CommitVendor inserts the profile and tags its source media in one
// transaction. If the media row is gone nothing is written.
func (s *PostgresStore) CommitVendor(ctx context.Context, p *model.VendorProfile) (string, error) {
	synonyms, custom, err := prepareVendor(p)
	if err != nil {
		return "", err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", eris.Wrap(err, "postgres: begin commit vendor")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, insertVendorSQL, vendorArgs(p, synonyms, custom)...); err != nil {
		return "", wrapInsertErr(err, p.SourceMediaID)
	}

	tag, err := tx.Exec(ctx, markMediaSQL, p.ID, p.SourceMediaID)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: mark media %s", p.SourceMediaID)
	}
	if tag.RowsAffected() == 0 {
		return "", eris.Wrapf(ErrNotFound, "postgres: media %s", p.SourceMediaID)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", eris.Wrap(err, "postgres: commit vendor")
	}
	return p.ID, nil
}

func wrapInsertErr(err error, mediaID string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return eris.Wrapf(ErrDuplicate, "postgres: vendor for media %s", mediaID)
	}
	return eris.Wrapf(err, "postgres: insert vendor for media %s", mediaID)
}

func (s *PostgresStore) GetVendorProfile(ctx context.Context, vendorID string) (*model.VendorProfile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendor_profiles WHERE id = $1`, vendorID)
	p, err := scanPostgresVendor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: vendor %s", vendorID)
		}
		return nil, eris.Wrapf(err, "postgres: get vendor %s", vendorID)
	}
	return p, nil
}

func (s *PostgresStore) GetVendorByMedia(ctx context.Context, mediaID string) (*model.VendorProfile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendor_profiles WHERE source_media_id = $1`, mediaID)
	p, err := scanPostgresVendor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: vendor for media %s", mediaID)
		}
		return nil, eris.Wrapf(err, "postgres: get vendor for media %s", mediaID)
	}
	return p, nil
}

func (s *PostgresStore) ListVendorProfiles(ctx context.Context, filter model.VendorFilter) ([]model.VendorProfile, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendor_profiles WHERE true`
	args := []any{}
	argIdx := 1

	if filter.ValidationStatus != "" {
		query += fmt.Sprintf(` AND validation_status = $%d`, argIdx)
		args = append(args, string(filter.ValidationStatus))
		argIdx++
	}
	if filter.MinScore > 0 {
		query += fmt.Sprintf(` AND vcms_score >= $%d`, argIdx)
		args = append(args, filter.MinScore)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list vendors")
	}
	defer rows.Close()

	var out []model.VendorProfile
	for rows.Next() {
		p, err := scanPostgresVendor(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan vendor")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate vendors")
}

func scanPostgresVendor(row pgx.Row) (*model.VendorProfile, error) {
	var p model.VendorProfile
	var status string
	var synonyms, custom []byte
	err := row.Scan(
		&p.ID, &p.Name, &p.FirstName, &p.LastName, &p.Title, &p.Email, &p.Phone, &p.CompanyName, &p.Website, &p.LinkedIn,
		&p.VCMSScore, &p.PrimaryIndustry, &synonyms, &status, &p.ValidationNotes, &p.IsDoNotUse,
		&custom, &p.SourceMediaID, &p.CreatedBy, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ValidationStatus = model.ValidationStatus(status)
	if err := decodeVendorJSON(&p, synonyms, custom); err != nil {
		return nil, err
	}
	return &p, nil
}
