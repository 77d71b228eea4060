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

const submissionTableName = "form_submissions"

var submissionColumns = utils.StructTagValues(types.FormSubmission{})

type SubmissionRepository struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

func (r *SubmissionRepository) CreateSubmission(ctx context.Context, submission *types.FormSubmission) error {
	submission.ID = utils.NanoID()
	submission.SubmittedAt = time.Now()

	query, args, err := psql().Insert(submissionTableName).SetMap(utils.StructToMap(submission)).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert submission query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create submission")
}

func (r *SubmissionRepository) SubmissionsByUser(ctx context.Context, userID string) ([]*types.FormSubmission, error) {
	query, args, err := psql().Select(submissionColumns...).From(submissionTableName).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("submitted_at desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate submissions query: %w", err)
	}

	var submissions = make([]*types.FormSubmission, 0)
	err = pgxscan.Select(ctx, r.pool, &submissions, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch submissions for user: %w", err)
	}

	return submissions, nil
}

func (r *SubmissionRepository) LatestSubmissionByLink(ctx context.Context, linkID string) (*types.FormSubmission, error) {
	query, args, err := psql().Select(submissionColumns...).From(submissionTableName).
		Where(sq.Eq{"link_id": linkID}).
		OrderBy("submitted_at desc").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate latest submission query: %w", err)
	}

	var submission = new(types.FormSubmission)
	err = pgxscan.Get(ctx, r.pool, submission, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to fetch latest submission: %w", err)
	}

	return submission, nil
}
