package db

import (
	"fmt"

	types "github.com/yungbote/marketpulse/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Content
		&types.Article{},
		&types.RedditPost{},

		// Market data
		&types.Company{},
		&types.StockBar{},

		// Bookkeeping
		&types.IngestionRun{},
	)
}

// ingestUniqueIndexes is the store-level backstop for every natural key. The
// application-level dedup check and the insert are not covered by one lock,
// so these indexes must exist for all entity kinds.
var ingestUniqueIndexes = []struct {
	name  string
	table string
	cols  string
}{
	{"idx_article_url", "article", "url"},
	{"idx_reddit_post_reddit_id", "reddit_post", "reddit_id"},
	{"idx_company_ticker", "company", "ticker"},
	{"idx_company_name", "company", "name"},
	{"idx_stock_bar_company_ts", "stock_bar", "company_id, timestamp"},
}

func EnsureIngestIndexes(db *gorm.DB) error {
	for _, idx := range ingestUniqueIndexes {
		stmt := fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s(%s);`, idx.name, idx.table, idx.cols)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create %s: %w", idx.name, err)
		}
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_ingestion_run_flow_started ON ingestion_run(flow, started_at);`).Error; err != nil {
		return fmt.Errorf("create idx_ingestion_run_flow_started: %w", err)
	}
	return nil
}

// Migrate runs AutoMigrateAll followed by EnsureIngestIndexes.
func Migrate(db *gorm.DB) error {
	if err := AutoMigrateAll(db); err != nil {
		return err
	}
	return EnsureIngestIndexes(db)
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureIngestIndexes(s.db); err != nil {
		s.log.Error("Ingest index migration failed", "error", err)
		return err
	}
	return nil
}
