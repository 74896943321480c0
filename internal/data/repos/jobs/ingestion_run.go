package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/marketpulse/internal/domain"
	"github.com/yungbote/marketpulse/internal/platform/dbctx"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

type IngestionRunRepo interface {
	Create(dbc dbctx.Context, run *types.IngestionRun) (*types.IngestionRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.IngestionRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	ListRecent(dbc dbctx.Context, flow string, limit int) ([]*types.IngestionRun, error)
}

type ingestionRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIngestionRunRepo(db *gorm.DB, baseLog *logger.Logger) IngestionRunRepo {
	return &ingestionRunRepo{
		db:  db,
		log: baseLog.With("repo", "IngestionRunRepo"),
	}
}

func (r *ingestionRunRepo) Create(dbc dbctx.Context, run *types.IngestionRun) (*types.IngestionRun, error) {
	transaction := dbc.DB(r.db)
	if run == nil {
		return nil, nil
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = types.RunStatusRunning
	}
	if run.Stage == "" {
		run.Stage = "extract"
	}
	if err := transaction.WithContext(dbc.Ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *ingestionRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.IngestionRun, error) {
	transaction := dbc.DB(r.db)
	if id == uuid.Nil {
		return nil, nil
	}
	var run types.IngestionRun
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&run).Error; err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

func (r *ingestionRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.DB(r.db)
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.IngestionRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *ingestionRunRepo) ListRecent(dbc dbctx.Context, flow string, limit int) ([]*types.IngestionRun, error) {
	transaction := dbc.DB(r.db)
	if limit <= 0 {
		limit = 20
	}
	var out []*types.IngestionRun
	q := transaction.WithContext(dbc.Ctx).Order("started_at DESC").Limit(limit)
	if flow != "" {
		q = q.Where("flow = ?", flow)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
