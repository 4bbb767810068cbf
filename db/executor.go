package db

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/nickyhof/BatchDB/core"
	"github.com/nickyhof/BatchDB/ps"
	"github.com/nickyhof/BatchDB/sql"
)

const constraintPrefix = "constraint failure: "

// Executor runs batches against one handle. It is owned by the handle's
// worker and must not be shared across goroutines.
type Executor struct {
	// LegacyNullAsEmptyText passes generic query parameters as text, with
	// nulls as the empty string.
	LegacyNullAsEmptyText bool

	Tx TxController
}

func NewExecutor(legacyNullAsEmptyText bool) *Executor {
	return &Executor{LegacyNullAsEmptyText: legacyNullAsEmptyText}
}

// ExecuteBatch runs statements in order and returns one outcome per
// statement. A failing statement never stops the statements after it.
func (executor *Executor) ExecuteBatch(ctx context.Context, handle ps.Handle, statements []core.Statement) []core.Outcome {
	batchID := uuid.NewString()
	glog.V(1).Infof("Executor.ExecuteBatch: Batch %s with %d statements", batchID, len(statements))

	outcomes := make([]core.Outcome, len(statements))
	for i, statement := range statements {
		outcomes[i] = executor.executeStatement(ctx, handle, statement)
		glog.V(2).Infof("Executor.ExecuteBatch: Batch %s statement %d: %s", batchID, i, outcomes[i])
	}
	return outcomes
}

func (executor *Executor) executeStatement(ctx context.Context, handle ps.Handle, statement core.Statement) (outcome core.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			glog.Errorf("Executor.executeStatement: Recovered from panic: %v", r)
			outcome = core.Failed(fmt.Sprint(r), core.UnknownErr)
		}
	}()

	statementType, err := sql.Classify(statement.SQL)
	if err != nil {
		return failure(err)
	}

	switch statementType {
	case sql.UpdateStatementType, sql.DeleteStatementType:
		return executor.executeUpdateDelete(ctx, handle, statement)
	case sql.InsertStatementType:
		return executor.executeInsert(ctx, handle, statement)
	case sql.BeginStatementType:
		return transactionOutcome(executor.Tx.Begin(ctx, handle))
	case sql.CommitStatementType:
		return transactionOutcome(executor.Tx.Commit(ctx, handle))
	case sql.RollbackStatementType:
		return transactionOutcome(executor.Tx.Rollback(ctx, handle))
	default:
		return executor.executeQuery(ctx, handle, statement)
	}
}

func (executor *Executor) executeUpdateDelete(ctx context.Context, handle ps.Handle, statement core.Statement) core.Outcome {
	prepared, err := prepareAndBind(ctx, handle, statement)
	if err != nil {
		return failure(err)
	}
	defer prepared.Close()

	rowsAffected, err := prepared.ExecuteUpdateDelete(ctx)
	if err != nil {
		return failure(err)
	}
	return core.RowsAffected(rowsAffected)
}

func (executor *Executor) executeInsert(ctx context.Context, handle ps.Handle, statement core.Statement) core.Outcome {
	prepared, err := prepareAndBind(ctx, handle, statement)
	if err != nil {
		return failure(err)
	}
	defer prepared.Close()

	insertID, err := prepared.ExecuteInsert(ctx)
	if err != nil {
		return failure(err)
	}
	if insertID == -1 {
		return core.RowsAffected(0)
	}
	return core.Inserted(insertID)
}

func (executor *Executor) executeQuery(ctx context.Context, handle ps.Handle, statement core.Statement) core.Outcome {
	params := statement.Params
	if executor.LegacyNullAsEmptyText {
		params = make([]core.Value, len(statement.Params))
		for i, param := range statement.Params {
			params[i] = core.Text(param.String())
		}
	}

	cursor, err := handle.Query(ctx, statement.SQL, params)
	if err != nil {
		return failure(err)
	}
	defer cursor.Close()

	rows, err := Marshal(cursor)
	if err != nil {
		return failure(err)
	}
	return core.Rows(rows)
}

func prepareAndBind(ctx context.Context, handle ps.Handle, statement core.Statement) (ps.PreparedStatement, error) {
	prepared, err := handle.Prepare(ctx, statement.SQL)
	if err != nil {
		return nil, err
	}
	if err := Bind(prepared, statement.Params); err != nil {
		prepared.Close()
		return nil, err
	}
	return prepared, nil
}

func transactionOutcome(err error) core.Outcome {
	if err != nil {
		return failure(err)
	}
	return core.RowsAffected(0)
}

// failure converts a statement error into its outcome. Constraint
// violations get their own code and message prefix.
func failure(err error) core.Outcome {
	if ps.IsConstraint(err) {
		glog.V(1).Infof("Executor: Constraint violation: %v", err)
		return core.Failed(constraintPrefix+err.Error(), core.ConstraintErr)
	}
	glog.V(1).Infof("Executor: Statement failed: %v", err)
	return core.Failed(err.Error(), core.UnknownErr)
}
