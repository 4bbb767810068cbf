package db

import (
	"context"

	"github.com/golang/glog"
	"github.com/nickyhof/BatchDB/ps"
)

// TxController tracks whether the handle has an open transaction. Commit
// and Rollback always leave it Idle, even when the engine call fails.
type TxController struct {
	active bool
}

func (tx *TxController) Active() bool {
	return tx.active
}

func (tx *TxController) Begin(ctx context.Context, handle ps.Handle) error {
	if err := handle.BeginTransaction(ctx); err != nil {
		return err
	}
	tx.active = true
	return nil
}

func (tx *TxController) Commit(ctx context.Context, handle ps.Handle) error {
	tx.active = false
	return handle.SetSuccessfulAndEnd(ctx)
}

func (tx *TxController) Rollback(ctx context.Context, handle ps.Handle) error {
	tx.active = false
	return handle.EndTransaction(ctx)
}

// End rolls back an open transaction before the handle is closed.
func (tx *TxController) End(ctx context.Context, handle ps.Handle) {
	if !tx.active {
		return
	}
	if err := tx.Rollback(ctx, handle); err != nil {
		glog.Errorf("TxController.End: Problem ending transaction: %v", err)
	}
}
