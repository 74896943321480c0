package market

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/marketpulse/internal/domain"
	"github.com/yungbote/marketpulse/internal/platform/dbctx"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

type StockBarRepo interface {
	CreateMany(dbc dbctx.Context, bars []*types.StockBar) (int64, error)
	ExistingKeys(dbc dbctx.Context, keys []types.BarKey) (map[types.BarKey]struct{}, error)
	CountByCompany(dbc dbctx.Context, companyID uuid.UUID) (int64, error)
}

type stockBarRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStockBarRepo(db *gorm.DB, baseLog *logger.Logger) StockBarRepo {
	return &stockBarRepo{db: db, log: baseLog.With("repo", "StockBarRepo")}
}

func (r *stockBarRepo) CreateMany(dbc dbctx.Context, bars []*types.StockBar) (int64, error) {
	transaction := dbc.DB(r.db)
	if len(bars) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}, {Name: "timestamp"}},
			DoNothing: true,
		}).
		CreateInBatches(bars, 500)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ExistingKeys answers in one round trip: it loads every stored key for the
// requested companies inside the requested time window, then intersects.
func (r *stockBarRepo) ExistingKeys(dbc dbctx.Context, keys []types.BarKey) (map[types.BarKey]struct{}, error) {
	transaction := dbc.DB(r.db)
	out := map[types.BarKey]struct{}{}
	if len(keys) == 0 {
		return out, nil
	}
	want := make(map[types.BarKey]struct{}, len(keys))
	companySet := map[uuid.UUID]struct{}{}
	var minTS, maxTS time.Time
	for i, k := range keys {
		k.Timestamp = k.Timestamp.UTC()
		want[k] = struct{}{}
		companySet[k.CompanyID] = struct{}{}
		if i == 0 || k.Timestamp.Before(minTS) {
			minTS = k.Timestamp
		}
		if i == 0 || k.Timestamp.After(maxTS) {
			maxTS = k.Timestamp
		}
	}
	companyIDs := make([]uuid.UUID, 0, len(companySet))
	for id := range companySet {
		companyIDs = append(companyIDs, id)
	}

	var rows []struct {
		CompanyID uuid.UUID
		Timestamp time.Time
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.StockBar{}).
		Select("company_id", "timestamp").
		Where("company_id IN ? AND timestamp >= ? AND timestamp <= ?", companyIDs, minTS, maxTS).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		k := types.BarKey{CompanyID: row.CompanyID, Timestamp: row.Timestamp.UTC()}
		if _, ok := want[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out, nil
}

func (r *stockBarRepo) CountByCompany(dbc dbctx.Context, companyID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Model(&types.StockBar{}).
		Where("company_id = ?", companyID).
		Count(&n).Error
	return n, err
}
