package db

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/yungbote/marketpulse/internal/domain"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestMigrateCreatesUniqueIndexes(t *testing.T) {
	db := openSQLite(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	// Running twice must be a no-op.
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate (second run): %v", err)
	}

	co := &types.Company{Name: "Apple Inc.", Ticker: "AAPL"}
	if err := db.Create(co).Error; err != nil {
		t.Fatalf("create company: %v", err)
	}
	ts := time.Date(2025, 10, 16, 4, 0, 0, 0, time.UTC)
	if err := db.Create(&types.StockBar{CompanyID: co.ID, Timestamp: ts, ClosePrice: 1}).Error; err != nil {
		t.Fatalf("create bar: %v", err)
	}
	if err := db.Create(&types.StockBar{CompanyID: co.ID, Timestamp: ts, ClosePrice: 2}).Error; err == nil {
		t.Fatalf("expected unique violation on (company_id, timestamp)")
	}
	if err := db.Create(&types.Article{URL: "https://a"}).Error; err != nil {
		t.Fatalf("create article: %v", err)
	}
	if err := db.Create(&types.Article{URL: "https://a"}).Error; err == nil {
		t.Fatalf("expected unique violation on article url")
	}
}
