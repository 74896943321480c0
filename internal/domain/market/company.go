package market

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Company struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name   string    `gorm:"column:name;not null;uniqueIndex:idx_company_name" json:"name"`
	Ticker string    `gorm:"column:ticker;not null;uniqueIndex:idx_company_ticker" json:"ticker"`

	StockBars []*StockBar `gorm:"foreignKey:CompanyID;references:ID" json:"stock_bars,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Company) TableName() string { return "company" }

func (c *Company) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
