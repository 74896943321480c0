package market

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/marketpulse/internal/domain"
	"github.com/yungbote/marketpulse/internal/platform/dbctx"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

type CompanyRepo interface {
	CreateMany(dbc dbctx.Context, companies []*types.Company) (int64, error)
	GetIDsByTickers(dbc dbctx.Context, tickers []string) (map[string]uuid.UUID, error)
	List(dbc dbctx.Context) ([]*types.Company, error)
}

type companyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCompanyRepo(db *gorm.DB, baseLog *logger.Logger) CompanyRepo {
	return &companyRepo{db: db, log: baseLog.With("repo", "CompanyRepo")}
}

func (r *companyRepo) CreateMany(dbc dbctx.Context, companies []*types.Company) (int64, error) {
	transaction := dbc.DB(r.db)
	if len(companies) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&companies)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// GetIDsByTickers returns ticker -> company id for the tickers that exist.
// Tickers are matched case-insensitively and returned upper-cased.
func (r *companyRepo) GetIDsByTickers(dbc dbctx.Context, tickers []string) (map[string]uuid.UUID, error) {
	transaction := dbc.DB(r.db)
	out := map[string]uuid.UUID{}
	norm := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			norm = append(norm, t)
		}
	}
	if len(norm) == 0 {
		return out, nil
	}
	var rows []*types.Company
	if err := transaction.WithContext(dbc.Ctx).
		Select("id", "ticker").
		Where("ticker IN ?", norm).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, c := range rows {
		out[strings.ToUpper(c.Ticker)] = c.ID
	}
	return out, nil
}

func (r *companyRepo) List(dbc dbctx.Context) ([]*types.Company, error) {
	var out []*types.Company
	err := dbc.DB(r.db).WithContext(dbc.Ctx).Order("ticker ASC").Find(&out).Error
	return out, err
}
