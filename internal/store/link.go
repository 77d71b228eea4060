package store

import (
	"context"
	"fmt"
	"time"

	"needanalysis/internal/utils"
	"needanalysis/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const formLinkTableName = "form_links"

var formLinkColumns = utils.StructTagValues(types.FormLink{})

type LinkRepository struct {
	pool *pgxpool.Pool
}

func NewLinkRepository(pool *pgxpool.Pool) *LinkRepository {
	return &LinkRepository{pool: pool}
}

func (r *LinkRepository) Link(ctx context.Context, linkID string) (*types.FormLink, error) {
	query, args, err := psql().Select(formLinkColumns...).From(formLinkTableName).
		Where(sq.Eq{"id": linkID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate form link query: %w", err)
	}

	var link = new(types.FormLink)
	err = pgxscan.Get(ctx, r.pool, link, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to fetch form link: %w", err)
	}

	return link, nil
}

func (r *LinkRepository) LinksByUser(ctx context.Context, userID string) ([]*types.FormLink, error) {
	query, args, err := psql().Select(formLinkColumns...).From(formLinkTableName).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate form links query: %w", err)
	}

	var links = make([]*types.FormLink, 0)
	err = pgxscan.Select(ctx, r.pool, &links, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch form links for user: %w", err)
	}

	return links, nil
}

// CreateLink assigns the id and creation time before inserting.
func (r *LinkRepository) CreateLink(ctx context.Context, link *types.FormLink) error {
	if link.ID == "" {
		link.ID = utils.LinkID()
	}
	link.CreatedAt = time.Now()
	if link.Status == "" {
		link.Status = types.LinkStatusActive
	}

	query, args, err := psql().Insert(formLinkTableName).SetMap(utils.StructToMap(link)).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert form link query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create form link")
}

func (r *LinkRepository) UpdateLinkStatus(ctx context.Context, linkID string, status types.LinkStatus) error {
	query, args, err := psql().Update(formLinkTableName).
		Set("status", status).
		Where(sq.Eq{"id": linkID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update form link query for link %s: %w", linkID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to update form link status")
}

// ExpireStaleLinks flips active links whose expiry date has passed. Reads
// never depend on it; it only keeps the stored status honest.
func (r *LinkRepository) ExpireStaleLinks(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := psql().Update(formLinkTableName).
		Set("status", types.LinkStatusExpired).
		Where(sq.Eq{"status": types.LinkStatusActive}).
		Where(sq.LtOrEq{"expiry_date": now}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate expire links query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale links: %w", err)
	}

	return tag.RowsAffected(), nil
}
