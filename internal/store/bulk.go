package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/vcms/internal/model"
)

// upsertSpec describes a bulk upsert through a temp table.
type upsertSpec struct {
	Table        string
	Columns      []string
	ConflictKeys []string
	UpdateCols   []string // nil = all non-conflict columns
}

var mediaImportSpec = upsertSpec{
	Table:        "media_assets",
	Columns:      []string{"id", "url", "created_at"},
	ConflictKeys: []string{"id"},
	UpdateCols:   []string{"url"},
}

// ImportMediaAssets registers many media assets at once. Existing ids keep
// their processing state and only have their URL replaced.
func (s *PostgresStore) ImportMediaAssets(ctx context.Context, assets []model.MediaAsset) (int64, error) {
	rows, err := mediaImportRows(assets)
	if err != nil {
		return 0, err
	}
	return bulkUpsert(ctx, s.pool, mediaImportSpec, rows)
}

// ImportMediaAssets registers many media assets in one transaction.
func (s *SQLiteStore) ImportMediaAssets(ctx context.Context, assets []model.MediaAsset) (int64, error) {
	rows, err := mediaImportRows(assets)
	if err != nil || len(rows) == 0 {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import media: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO media_assets (id, url, created_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET url = excluded.url`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import media: prepare")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, row := range rows {
		res, err := stmt.ExecContext(ctx, row...)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: import media %s", row[0])
		}
		affected, _ := res.RowsAffected()
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: import media: commit tx")
	}
	return n, nil
}

func mediaImportRows(assets []model.MediaAsset) ([][]any, error) {
	now := time.Now().UTC()
	seen := make(map[string]bool, len(assets))
	rows := make([][]any, 0, len(assets))
	for i, a := range assets {
		if a.ID == "" {
			return nil, eris.Errorf("store: import media: row %d has no id", i+1)
		}
		if seen[a.ID] {
			return nil, eris.Errorf("store: import media: duplicate id %s", a.ID)
		}
		seen[a.ID] = true

		created := a.CreatedAt
		if created.IsZero() {
			created = now
		}
		rows = append(rows, []any{a.ID, a.URL, created})
	}
	return rows, nil
}

// bulkUpsert copies rows into a temp table and merges them into the target
// with INSERT ... ON CONFLICT, all in one transaction.
func bulkUpsert(ctx context.Context, pool Pool, spec upsertSpec, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(spec.Columns) == 0 {
		return 0, eris.New("postgres: upsert: no columns specified")
	}
	if len(spec.ConflictKeys) == 0 {
		return 0, eris.New("postgres: upsert: no conflict keys specified")
	}

	updateCols := spec.UpdateCols
	if updateCols == nil {
		conflict := make(map[string]bool, len(spec.ConflictKeys))
		for _, k := range spec.ConflictKeys {
			conflict[k] = true
		}
		for _, c := range spec.Columns {
			if !conflict[c] {
				updateCols = append(updateCols, c)
			}
		}
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tempTable := "_tmp_upsert_" + spec.Table
	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{tempTable}.Sanitize(),
		pgx.Identifier{spec.Table}.Sanitize(),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert: create temp table for %s", spec.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{tempTable}, spec.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert: COPY into temp table for %s", spec.Table)
	}

	setClauses := make([]string, len(updateCols))
	for i, col := range updateCols {
		c := pgx.Identifier{col}.Sanitize()
		setClauses[i] = fmt.Sprintf("%s = EXCLUDED.%s", c, c)
	}
	colList := quoteAndJoin(spec.Columns)
	upsertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s",
		pgx.Identifier{spec.Table}.Sanitize(),
		colList,
		colList,
		pgx.Identifier{tempTable}.Sanitize(),
		quoteAndJoin(spec.ConflictKeys),
		strings.Join(setClauses, ", "),
	)

	tag, err := tx.Exec(ctx, upsertSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert: INSERT ON CONFLICT for %s", spec.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
