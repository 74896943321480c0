package market

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockBar is one OHLCV bar for a company. (company_id, timestamp) is unique.
type StockBar struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID uuid.UUID `gorm:"type:uuid;column:company_id;not null;uniqueIndex:idx_stock_bar_company_ts,priority:1" json:"company_id"`
	Company   *Company  `gorm:"foreignKey:CompanyID;references:ID;constraint:OnDelete:CASCADE" json:"company,omitempty"`
	Timestamp time.Time `gorm:"column:timestamp;not null;uniqueIndex:idx_stock_bar_company_ts,priority:2" json:"timestamp"`

	OpenPrice  float64 `gorm:"column:open_price;type:numeric(12,4)" json:"open_price"`
	HighPrice  float64 `gorm:"column:high_price;type:numeric(12,4)" json:"high_price"`
	LowPrice   float64 `gorm:"column:low_price;type:numeric(12,4)" json:"low_price"`
	ClosePrice float64 `gorm:"column:close_price;type:numeric(12,4)" json:"close_price"`
	Volume     int64   `gorm:"column:volume" json:"volume"`
	TradeCount int64   `gorm:"column:trade_count" json:"trade_count"`
	VWAP       float64 `gorm:"column:vwap;type:numeric(12,4)" json:"vwap"`

	// Symbol is the source ticker, carried until CompanyID is resolved.
	Symbol string `gorm:"-" json:"symbol,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (StockBar) TableName() string { return "stock_bar" }

func (b *StockBar) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// BarKey is the composite natural key of a StockBar.
type BarKey struct {
	CompanyID uuid.UUID
	Timestamp time.Time
}

func (b *StockBar) NaturalKey() BarKey {
	return BarKey{CompanyID: b.CompanyID, Timestamp: b.Timestamp.UTC()}
}
