package manga

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"shiori/pkg/models"
)

var (
	ErrNotFound            = errors.New("manga not found")
	ErrDuplicateMangadexID = errors.New("mangadex id already exists")
)

type Repo struct {
	DB  *sql.DB
	Now func() time.Time
}

type ListQuery struct {
	Q      string // keyword search in title
	Status string
	Limit  int
	Offset int
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db, Now: func() time.Time { return time.Now().UTC() }}
}

const selectColumns = `
	SELECT id, title, mangadex_id, year, cover_image_url, status, created_at, updated_at
	FROM manga
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanManga(s rowScanner) (models.Manga, error) {
	var (
		m          models.Manga
		mangadexID sql.NullString
		year       sql.NullInt64
		coverURL   sql.NullString
		status     sql.NullString
	)
	if err := s.Scan(&m.ID, &m.Title, &mangadexID, &year, &coverURL, &status, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return m, err
	}
	if mangadexID.Valid {
		m.MangadexID = &mangadexID.String
	}
	if year.Valid {
		y := int(year.Int64)
		m.Year = &y
	}
	if coverURL.Valid {
		m.CoverImageURL = &coverURL.String
	}
	m.Status = models.MangaStatus(status.String)
	return m, nil
}

func (r *Repo) Create(ctx context.Context, m models.Manga) (*models.Manga, error) {
	now := r.Now()
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO manga (title, mangadex_id, year, cover_image_url, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.Title, m.MangadexID, m.Year, m.CoverImageURL, nullStatus(m.Status), now, now)
	if err != nil {
		return nil, wrapWriteErr("create manga", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create manga id: %w", err)
	}
	m.ID = id
	m.CreatedAt = now
	m.UpdatedAt = now
	return &m, nil
}

// GetByID returns nil, nil when no row matches.
func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Manga, error) {
	row := r.DB.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	m, err := scanManga(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return &m, nil
}

// GetByMangadexID returns nil, nil when no row matches.
func (r *Repo) GetByMangadexID(ctx context.Context, mangadexID string) (*models.Manga, error) {
	row := r.DB.QueryRowContext(ctx, selectColumns+` WHERE mangadex_id = ?`, mangadexID)
	m, err := scanManga(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByMangadexID: %w", err)
	}
	return &m, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Manga, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Manga, 0)
	for rows.Next() {
		m, err := scanManga(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Update replaces every editable field of the record and refreshes updated_at.
func (r *Repo) Update(ctx context.Context, id int64, m models.Manga) (*models.Manga, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE manga
		SET title = ?, mangadex_id = ?, year = ?, cover_image_url = ?, status = ?, updated_at = ?
		WHERE id = ?
	`, m.Title, m.MangadexID, m.Year, m.CoverImageURL, nullStatus(m.Status), r.Now(), id)
	if err != nil {
		return nil, wrapWriteErr("update manga", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update manga rows: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("update manga %d: %w", id, ErrNotFound)
	}

	updated, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("update manga %d: %w", id, ErrNotFound)
	}
	return updated, nil
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM manga WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete manga: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete manga rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete manga %d: %w", id, ErrNotFound)
	}
	return nil
}

func nullStatus(s models.MangaStatus) any {
	if s == "" {
		return nil
	}
	return string(s)
}

func wrapWriteErr(op string, err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%s: %w", op, ErrDuplicateMangadexID)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// buildListSQL builds either COUNT(*) or SELECT list.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := selectColumns
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM manga`
	}

	var where []string
	var args []any

	if kw := strings.TrimSpace(q.Q); kw != "" {
		where = append(where, "LOWER(title) LIKE ?")
		args = append(args, "%"+strings.ToLower(kw)+"%")
	}

	if st := strings.TrimSpace(q.Status); st != "" {
		where = append(where, "status = ?")
		args = append(args, strings.ToUpper(st))
	}

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		sqlStr += " ORDER BY id ASC"
		sqlStr += " LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}

	return sqlStr, args
}
