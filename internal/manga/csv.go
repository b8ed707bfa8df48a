package manga

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"shiori/pkg/models"
)

var csvHeader = []string{"id", "title", "mangadex_id", "year", "cover_image_url", "status", "created_at", "updated_at"}

type ImportStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// ExportCSV writes every catalog record ordered by id and returns the count.
func (r *Repo) ExportCSV(ctx context.Context, out io.Writer) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return 0, err
	}

	const page = 100
	n := 0
	for offset := 0; ; offset += page {
		items, err := r.List(ctx, ListQuery{Limit: page, Offset: offset})
		if err != nil {
			return n, fmt.Errorf("export manga: %w", err)
		}
		for _, m := range items {
			if err := w.Write([]string{
				strconv.FormatInt(m.ID, 10),
				m.Title,
				deref(m.MangadexID),
				formatYear(m.Year),
				deref(m.CoverImageURL),
				string(m.Status),
				m.CreatedAt.UTC().Format(time.RFC3339),
				m.UpdatedAt.UTC().Format(time.RFC3339),
			}); err != nil {
				return n, err
			}
			n++
		}
		if len(items) < page {
			break
		}
	}

	w.Flush()
	return n, w.Error()
}

// ImportCSV upserts rows keyed by mangadex_id. Rows without one are always
// created; rows without a title are skipped. Column order is taken from the
// header, and the id and timestamp columns are ignored.
func (r *Repo) ImportCSV(ctx context.Context, in io.Reader) (ImportStats, error) {
	var stats ImportStats

	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return stats, fmt.Errorf("read header: %w", err)
	}

	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}

		req, ok, err := rowToReq(header, row)
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		if !ok {
			stats.Skipped++
			continue
		}
		// same rules as an HTTP request body
		if err := rowValidator.Struct(req); err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		m, err := req.normalize()
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}

		if m.MangadexID != nil {
			existing, err := r.GetByMangadexID(ctx, *m.MangadexID)
			if err != nil {
				return stats, fmt.Errorf("line %d: %w", line, err)
			}
			if existing != nil {
				if _, err := r.Update(ctx, existing.ID, m); err != nil {
					return stats, fmt.Errorf("line %d: %w", line, err)
				}
				stats.Updated++
				continue
			}
		}
		if _, err := r.Create(ctx, m); err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		stats.Created++
	}

	return stats, nil
}

func rowToReq(header map[string]int, row []string) (mangaReq, bool, error) {
	req := mangaReq{Title: valueAt(header, row, "title")}
	if req.Title == "" {
		return req, false, nil
	}
	if v := valueAt(header, row, "mangadex_id"); v != "" {
		req.MangadexID = &v
	}
	if v := valueAt(header, row, "cover_image_url"); v != "" {
		req.CoverImageURL = &v
	}
	if v := valueAt(header, row, "year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return req, false, fmt.Errorf("parse year %q: %w", v, err)
		}
		req.Year = &y
	}
	req.Status = models.MangaStatus(strings.ToUpper(valueAt(header, row, "status")))
	return req, true, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	if _, ok := header["title"]; !ok {
		return nil, errors.New("missing title column")
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatYear(y *int) string {
	if y == nil {
		return ""
	}
	return strconv.Itoa(*y)
}
