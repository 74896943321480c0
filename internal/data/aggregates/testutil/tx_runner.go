package testutil

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/marketpulse/internal/data/aggregates"
	"github.com/yungbote/marketpulse/internal/platform/dbctx"
)

// InjectedTxRunner runs writer bodies and fails the surrounding transaction
// at a chosen point, so commit rollback paths can be exercised without a
// database that misbehaves.
type InjectedTxRunner struct {
	// FailBegin is returned before the body runs.
	FailBegin error
	// FailCommit is returned after a successful body, as if COMMIT failed.
	FailCommit error
	// Tx is handed to the body. Nil runs the body with no transaction handle.
	Tx *gorm.DB

	mu        sync.Mutex
	Begins    int
	Commits   int
	Rollbacks int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.count(&r.Begins)
	if r.FailBegin != nil {
		return r.FailBegin
	}
	if fn != nil {
		if err := fn(dbctx.Context{Ctx: ctx, Tx: r.Tx}); err != nil {
			r.count(&r.Rollbacks)
			return err
		}
	}
	if r.FailCommit != nil {
		r.count(&r.Rollbacks)
		return r.FailCommit
	}
	r.count(&r.Commits)
	return nil
}

func (r *InjectedTxRunner) count(n *int) {
	r.mu.Lock()
	*n++
	r.mu.Unlock()
}
