package market

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/marketpulse/internal/data/repos/testutil"
	types "github.com/yungbote/marketpulse/internal/domain"
	"github.com/yungbote/marketpulse/internal/platform/dbctx"
)

func TestStockBarRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewStockBarRepo(db, testutil.Logger(t))

	co := testutil.SeedCompany(t, ctx, tx, "MSFT")
	day1 := time.Date(2025, 10, 16, 4, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	day3 := day2.Add(24 * time.Hour)

	n, err := repo.CreateMany(dbc, []*types.StockBar{
		{CompanyID: co.ID, Timestamp: day1, ClosePrice: 10},
		{CompanyID: co.ID, Timestamp: day2, ClosePrice: 11},
	})
	if err != nil || n != 2 {
		t.Fatalf("CreateMany: n=%d err=%v", n, err)
	}

	existing, err := repo.ExistingKeys(dbc, []types.BarKey{
		{CompanyID: co.ID, Timestamp: day1},
		{CompanyID: co.ID, Timestamp: day3},
	})
	if err != nil {
		t.Fatalf("ExistingKeys: %v", err)
	}
	if len(existing) != 1 {
		t.Fatalf("ExistingKeys: expected 1, got %d", len(existing))
	}
	if _, ok := existing[types.BarKey{CompanyID: co.ID, Timestamp: day1}]; !ok {
		t.Fatalf("ExistingKeys: missing day1")
	}

	n, err = repo.CreateMany(dbc, []*types.StockBar{
		{CompanyID: co.ID, Timestamp: day2, ClosePrice: 99},
		{CompanyID: co.ID, Timestamp: day3, ClosePrice: 12},
	})
	if err != nil || n != 1 {
		t.Fatalf("CreateMany with conflict: n=%d err=%v", n, err)
	}
	if total, _ := repo.CountByCompany(dbc, co.ID); total != 3 {
		t.Fatalf("CountByCompany: expected 3, got %d", total)
	}
}
