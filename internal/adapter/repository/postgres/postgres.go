package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

const uniqueViolationErrCode = "23505"

func isUniqueViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == uniqueViolationErrCode
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
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

func (r *LinkRepository) Save(ctx context.Context, shortCode, originalURL string) (*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.Save"
	const query = `INSERT INTO links(id, short_code, original_url) VALUES ($1, $2, $3)
		RETURNING id, short_code, original_url, clicks, last_clicked, created_at`

	var link linkDB

	if err := r.db.GetContext(ctx, &link, query, uuid.New(), shortCode, originalURL); err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to insert into links table: %w", op, err)
	}

	return link.toEntity(), nil
}

func (r *LinkRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.RetrieveByShortCode"
	const query = `SELECT id, short_code, original_url, clicks, last_clicked, created_at
		FROM links WHERE short_code = $1`

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
	const op = "adapter.repository.postgres.LinkRepository.RetrieveAll"
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
	const op = "adapter.repository.postgres.LinkRepository.Remove"
	const query = `DELETE FROM links WHERE short_code = $1`

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

// IncrementClicks adds one click in a single statement, so concurrent
// increments are serialized by the row lock. last_clicked never moves back
// when clicks are written out of order.
func (r *LinkRepository) IncrementClicks(ctx context.Context, id uuid.UUID, clickedAt time.Time) error {
	const op = "adapter.repository.postgres.LinkRepository.IncrementClicks"
	const query = `UPDATE links SET clicks = clicks + 1, last_clicked = GREATEST(last_clicked, $1)
		WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, clickedAt, id)
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
