package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vcms/internal/model"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var vendorColumnNames = []string{
	"id", "name", "first_name", "last_name", "title", "email", "phone", "company_name", "website", "linkedin",
	"vcms_score", "primary_industry", "industry_synonyms", "validation_status", "validation_notes", "is_do_not_use",
	"custom_fields", "source_media_id", "created_by", "created_at",
}

func vendorRow(rows *pgxmock.Rows, id, mediaID string, score int, now time.Time) *pgxmock.Rows {
	return rows.AddRow(
		id, "Ana Ruiz", "Ana", "Ruiz", "", "ana@acme.com", "", "Acme", "", "",
		score, "", []byte(`["plumber"]`), "VALIDATED", "", false,
		[]byte(`{"address":"1 Main St"}`), mediaID, "user-1", now,
	)
}

func insertArgs() []any {
	args := make([]any, 20)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS media_assets`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMediaAsset(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	vendorID := "v1"

	mock.ExpectQuery(`SELECT id, url, is_business_card, vendor_id, created_at FROM media_assets WHERE id = \$1`).
		WithArgs("m1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "url", "is_business_card", "vendor_id", "created_at"}).
			AddRow("m1", "https://img/m1.jpg", true, &vendorID, now))

	m, err := s.GetMediaAsset(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "https://img/m1.jpg", m.URL)
	assert.Equal(t, "v1", m.VendorID)
	assert.True(t, m.IsBusinessCard)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMediaAsset_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM media_assets WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "url", "is_business_card", "vendor_id", "created_at"}))

	_, err := s.GetMediaAsset(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertMediaAsset(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO media_assets .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("m1", "https://img/m1.jpg", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertMediaAsset(context.Background(), &model.MediaAsset{ID: "m1", URL: "https://img/m1.jpg"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkMediaProcessed_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE media_assets SET is_business_card = true, vendor_id = \$1 WHERE id = \$2`).
		WithArgs("v1", "m1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.MarkMediaProcessed(context.Background(), "m1", "v1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CommitVendor(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO vendor_profiles`).
		WithArgs(insertArgs()...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE media_assets SET is_business_card = true`).
		WithArgs(pgxmock.AnyArg(), "m1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	p := &model.VendorProfile{FirstName: "Ana", ValidationStatus: model.ValidationAmbiguous, SourceMediaID: "m1"}
	id, err := s.CommitVendor(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, p.ID, id)
	assert.Equal(t, "Ana", p.Name)
	assert.NotNil(t, p.IndustrySynonyms)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CommitVendor_MediaGone(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO vendor_profiles`).
		WithArgs(insertArgs()...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE media_assets`).
		WithArgs(pgxmock.AnyArg(), "m1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err := s.CommitVendor(context.Background(), &model.VendorProfile{
		FirstName:        "Ana",
		ValidationStatus: model.ValidationValidated,
		SourceMediaID:    "m1",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CommitVendor_Duplicate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO vendor_profiles`).
		WithArgs(insertArgs()...).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})
	mock.ExpectRollback()

	_, err := s.CommitVendor(context.Background(), &model.VendorProfile{
		FirstName:        "Ana",
		ValidationStatus: model.ValidationValidated,
		SourceMediaID:    "m1",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CommitVendor_BeginError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("conn refused"))

	_, err := s.CommitVendor(context.Background(), &model.VendorProfile{SourceMediaID: "m1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin commit vendor")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateVendorProfile(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO vendor_profiles`).
		WithArgs(insertArgs()...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.CreateVendorProfile(context.Background(), &model.VendorProfile{
		ID:               "fixed-id",
		FirstName:        "Ana",
		ValidationStatus: model.ValidationValidated,
		SourceMediaID:    "m1",
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetVendorProfile(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM vendor_profiles WHERE id = \$1`).
		WithArgs("v1").
		WillReturnRows(vendorRow(pgxmock.NewRows(vendorColumnNames), "v1", "m1", 40, now))

	p, err := s.GetVendorProfile(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Ruiz", p.Name)
	assert.Equal(t, 40, p.VCMSScore)
	assert.Equal(t, []string{"plumber"}, p.IndustrySynonyms)
	assert.Equal(t, "1 Main St", p.CustomFields["address"])
	assert.Equal(t, model.ValidationValidated, p.ValidationStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetVendorByMedia_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM vendor_profiles WHERE source_media_id = \$1`).
		WithArgs("m9").
		WillReturnRows(pgxmock.NewRows(vendorColumnNames))

	_, err := s.GetVendorByMedia(context.Background(), "m9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListVendorProfiles_Filters(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows(vendorColumnNames)
	vendorRow(rows, "v1", "m1", 40, now)
	vendorRow(rows, "v2", "m2", 35, now)

	mock.ExpectQuery(`FROM vendor_profiles WHERE true AND validation_status = \$1 AND vcms_score >= \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("VALIDATED", 30, 10, 5).
		WillReturnRows(rows)

	out, err := s.ListVendorProfiles(context.Background(), model.VendorFilter{
		ValidationStatus: model.ValidationValidated,
		MinScore:         30,
		Limit:            10,
		Offset:           5,
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "v2", out[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListVendorProfiles_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM vendor_profiles WHERE true ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(defaultListLimit).
		WillReturnRows(pgxmock.NewRows(vendorColumnNames))

	out, err := s.ListVendorProfiles(context.Background(), model.VendorFilter{})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close(t *testing.T) {
	var closed bool
	s := &PostgresStore{closeFn: func() { closed = true }}
	require.NoError(t, s.Close())
	assert.True(t, closed)
}
