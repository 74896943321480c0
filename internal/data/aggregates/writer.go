package aggregates

import "github.com/yungbote/marketpulse/internal/dedup"

// CommitResult reports what one Commit did. Inserted counts dependent rows
// only; parents created along the way are reported separately.
type CommitResult struct {
	Inserted        int64
	ParentsInserted int64
	Skipped         int
	Dropped         []dedup.Drop
}
