package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/platform/dbctx"
	"github.com/yungbote/marketpulse/internal/platform/logger"
	"gorm.io/gorm"
)

type BaseDeps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks
	// LockTimeout bounds row lock waits inside the default runner.
	LockTimeout time.Duration
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB, d.LockTimeout)
	}
	if d.Hooks == nil {
		d.Hooks = metricsHooks{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d
}

func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	err := deps.Runner.InTx(ctx, fn)
	mapped := MapError(op, err)

	status := "success"
	if mapped != nil {
		status = writeStatus(mapped)
		if pipeline.IsKind(mapped, pipeline.KindDuplicateKey) {
			deps.Hooks.IncDuplicate(op)
		}
		if pipeline.IsKind(mapped, pipeline.KindTransient) {
			deps.Hooks.IncRetry(op)
		}
	}
	deps.Hooks.ObserveCommit(op, status, time.Since(start))
	return mapped
}

// commitOnce runs fn in a transaction. A duplicate key surfacing at commit
// means a concurrent batch won the race; fn is re-run once so its key lookup
// sees the winner. A second collision rolls the batch back and is returned as
// a transaction error so the new rows in it are retried, not lost.
func commitOnce(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	deps = deps.withDefaults()
	err := executeWrite(ctx, deps, op, fn)
	if !pipeline.IsKind(err, pipeline.KindDuplicateKey) {
		return err
	}
	deps.Log.Warn("duplicate key at commit; re-reading existing keys", "op", op, "error", err)

	err = executeWrite(ctx, deps, op, fn)
	if !pipeline.IsKind(err, pipeline.KindDuplicateKey) {
		return err
	}
	deps.Log.Error("duplicate key persisted after re-read; batch rolled back", "op", op, "error", err)
	return pipeline.Wrap(pipeline.KindTransaction, op, err)
}

func writeStatus(err error) string {
	if err == nil {
		return "success"
	}
	kind := strings.TrimSpace(string(pipeline.KindOf(err)))
	if kind == "" {
		return "failure"
	}
	return kind
}
