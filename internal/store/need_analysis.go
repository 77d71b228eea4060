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

const needAnalysisTableName = "need_analysis_forms"

var needAnalysisColumns = utils.StructTagValues(types.NeedAnalysisForm{})

type NeedAnalysisRepository struct {
	pool *pgxpool.Pool
}

func NewNeedAnalysisRepository(pool *pgxpool.Pool) *NeedAnalysisRepository {
	return &NeedAnalysisRepository{pool: pool}
}

func (r *NeedAnalysisRepository) FormByLinkID(ctx context.Context, linkID string) (*types.NeedAnalysisForm, error) {
	query, args, err := psql().Select(needAnalysisColumns...).From(needAnalysisTableName).
		Where(sq.Eq{"link_id": linkID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate need analysis query: %w", err)
	}

	var form = new(types.NeedAnalysisForm)
	err = pgxscan.Get(ctx, r.pool, form, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrFormNotFound
		}
		return nil, fmt.Errorf("failed to fetch need analysis: %w", err)
	}

	return form, nil
}

// CreateForm inserts the row for a link. Only the personal details step is
// allowed to create it.
func (r *NeedAnalysisRepository) CreateForm(ctx context.Context, form *types.NeedAnalysisForm) error {
	now := time.Now()
	form.ID = utils.NanoID()
	form.CreatedAt = now
	form.UpdatedAt = now

	if form.InsuranceNeeds == nil {
		form.InsuranceNeeds = []string{}
	}
	if form.HealthCovers == nil {
		form.HealthCovers = []string{}
	}
	if form.Status == "" {
		form.Status = types.FormStatusInProgress
	}

	query, args, err := psql().Insert(needAnalysisTableName).SetMap(utils.StructToMap(form)).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert need analysis query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create need analysis")
}

func (r *NeedAnalysisRepository) UpdatePersonalDetails(ctx context.Context, linkID string, cols types.PersonalColumns) error {
	return r.updateColumns(ctx, linkID, utils.StructToMap(cols))
}

func (r *NeedAnalysisRepository) UpdateNeeds(ctx context.Context, linkID string, cols types.NeedsColumns) error {
	if cols.InsuranceNeeds == nil {
		cols.InsuranceNeeds = []string{}
	}
	if cols.HealthCovers == nil {
		cols.HealthCovers = []string{}
	}
	return r.updateColumns(ctx, linkID, utils.StructToMap(cols))
}

func (r *NeedAnalysisRepository) UpdateCalculation(ctx context.Context, linkID string, cols types.CalculationColumns) error {
	return r.updateColumns(ctx, linkID, utils.StructToMap(cols))
}

func (r *NeedAnalysisRepository) updateColumns(ctx context.Context, linkID string, setMap map[string]any) error {
	setMap["updated_at"] = time.Now()

	query, args, err := psql().Update(needAnalysisTableName).SetMap(setMap).Where(sq.Eq{"link_id": linkID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update need analysis query for link %s: %w", linkID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update need analysis: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrFormNotFound
	}

	return nil
}
