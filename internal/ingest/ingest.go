// Package ingest reads media manifests: tabular files listing the id and
// image URL of business card scans to register.
package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/vcms/internal/model"
)

// ReadFile reads a manifest, choosing the parser by file extension.
func ReadFile(ctx context.Context, path string) ([]model.MediaAsset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path)
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(ctx, f)
	default:
		return nil, eris.Errorf("ingest: unsupported manifest type %q", filepath.Ext(path))
	}
}

// ReadCSV parses a manifest with a header row containing "id" and "url".
func ReadCSV(ctx context.Context, r io.Reader) ([]model.MediaAsset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "ingest: context cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read csv row")
		}
		rows = append(rows, record)
	}
	return fromRows(rows)
}

// ReadXLSX parses the first sheet of a workbook with the same layout as
// ReadCSV.
func ReadXLSX(path string) ([]model.MediaAsset, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("ingest: workbook has no sheets")
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) ([]model.MediaAsset, error) {
	if len(rows) == 0 {
		return nil, eris.New("ingest: manifest is empty")
	}

	idCol, urlCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "id", "media_id":
			idCol = i
		case "url", "image_url":
			urlCol = i
		}
	}
	if idCol < 0 || urlCol < 0 {
		return nil, eris.New("ingest: header must contain id and url columns")
	}

	seen := make(map[string]int)
	var assets []model.MediaAsset
	for n, row := range rows[1:] {
		line := n + 2
		id, url := cell(row, idCol), cell(row, urlCol)
		if id == "" && url == "" {
			continue
		}
		if id == "" || url == "" {
			return nil, eris.Errorf("ingest: row %d: id and url are required", line)
		}
		if prev, ok := seen[id]; ok {
			return nil, eris.Errorf("ingest: row %d: duplicate id %q (first on row %d)", line, id, prev)
		}
		seen[id] = line
		assets = append(assets, model.MediaAsset{ID: id, URL: url})
	}
	return assets, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
