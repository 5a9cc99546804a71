package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schema = `CREATE TABLE IF NOT EXISTS links (
	id TEXT PRIMARY KEY,
	short_code TEXT NOT NULL UNIQUE,
	original_url TEXT NOT NULL,
	clicks INTEGER NOT NULL DEFAULT 0,
	last_clicked DATETIME,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_links_created_at ON links (created_at DESC);`

// CreateSchema creates the links table if it does not exist yet.
func CreateSchema(ctx context.Context, db *sqlx.DB) error {
	const op = "adapter.repository.sqlite.CreateSchema"

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%s: failed to create links table: %w", op, err)
	}

	return nil
}

// The libsql driver only reports the constraint through the message text.
func isUniqueViolationError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}

	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type linkDB struct {
	ID          uuid.UUID  `db:"id"`
	ShortCode   string     `db:"short_code"`
	OriginalURL string     `db:"original_url"`
	Clicks      int64      `db:"clicks"`
	LastClicked *time.Time `db:"last_clicked"`
	CreatedAt   time.Time  `db:"created_at"`
}

func (l *linkDB) toEntity() *entity.Link {
	return &entity.Link{
		ID:          l.ID,
		ShortCode:   l.ShortCode,
		OriginalURL: l.OriginalURL,
		LinkStats: entity.LinkStats{
			Clicks:      l.Clicks,
			LastClicked: l.LastClicked,
		},
		CreatedAt: l.CreatedAt,
	}
}

type LinkRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{
		db: db,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (r *LinkRepository) Save(ctx context.Context, shortCode, originalURL string) (*entity.Link, error) {
	const op = "adapter.repository.sqlite.LinkRepository.Save"
	const query = `INSERT INTO links(id, short_code, original_url, clicks, created_at) VALUES (?, ?, ?, 0, ?)`

	link := linkDB{
		ID:          uuid.New(),
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		CreatedAt:   r.now(),
	}

	if _, err := r.db.ExecContext(ctx, query, link.ID, link.ShortCode, link.OriginalURL, link.CreatedAt); err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to insert into links table: %w", op, err)
	}

	return link.toEntity(), nil
}

func (r *LinkRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.Link, error) {
	const op = "adapter.repository.sqlite.LinkRepository.RetrieveByShortCode"
	const query = `SELECT id, short_code, original_url, clicks, last_clicked, created_at
		FROM links WHERE short_code = ?`

	var link linkDB

	if err := r.db.GetContext(ctx, &link, query, shortCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from links table: %w", op, err)
	}

	return link.toEntity(), nil
}

func (r *LinkRepository) RetrieveAll(ctx context.Context) ([]*entity.Link, error) {
	const op = "adapter.repository.sqlite.LinkRepository.RetrieveAll"
	const query = `SELECT id, short_code, original_url, clicks, last_clicked, created_at
		FROM links ORDER BY created_at DESC`

	var rows []linkDB

	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("%s: failed to select from links table: %w", op, err)
	}

	links := make([]*entity.Link, 0, len(rows))
	for i := range rows {
		links = append(links, rows[i].toEntity())
	}

	return links, nil
}

func (r *LinkRepository) Remove(ctx context.Context, shortCode string) error {
	const op = "adapter.repository.sqlite.LinkRepository.Remove"
	const query = `DELETE FROM links WHERE short_code = ?`

	res, err := r.db.ExecContext(ctx, query, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to delete from links table: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	if rowsAffected != 1 {
		return fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
	}

	return nil
}

// IncrementClicks keeps last_clicked at the latest click even when clicks
// are written out of order.
func (r *LinkRepository) IncrementClicks(ctx context.Context, id uuid.UUID, clickedAt time.Time) error {
	const op = "adapter.repository.sqlite.LinkRepository.IncrementClicks"
	const query = `UPDATE links SET clicks = clicks + 1,
		last_clicked = CASE WHEN last_clicked IS NULL OR last_clicked < ? THEN ? ELSE last_clicked END
		WHERE id = ?`

	clickedAt = clickedAt.UTC()

	res, err := r.db.ExecContext(ctx, query, clickedAt, clickedAt, id)
	if err != nil {
		return fmt.Errorf("%s: failed to update links table row: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	if rowsAffected != 1 {
		return fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
	}

	return nil
}
