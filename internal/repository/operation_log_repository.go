package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/iliyamo/venue-reservation/internal/model"
)

// OperationLogRepo appends and reads the immutable audit trail of
// reservation orders.  Entries are only ever inserted; no update or
// delete path exists.  The before/after change sets are stored as JSON
// columns so entries stay machine-checkable.
type OperationLogRepo struct {
	db *sql.DB
}

// NewOperationLogRepo returns an OperationLogRepo bound to the database.
func NewOperationLogRepo(db *sql.DB) *OperationLogRepo { return &OperationLogRepo{db: db} }

// AppendTx inserts one log entry within the caller's transaction.  The
// caller commits or rolls back; a rolled-back transaction discards the
// entry together with the mutation it described, keeping trail and state
// consistent.
func (r *OperationLogRepo) AppendTx(ctx context.Context, tx *sql.Tx, e *model.OperationLog) error {
	beforeJSON, err := marshalChangeSet(e.Before)
	if err != nil {
		return err
	}
	afterJSON, err := marshalChangeSet(e.After)
	if err != nil {
		return err
	}
	const q = `INSERT INTO reservation_operation_logs
	           (order_id, kind, operator_id, operator_name, before_json, after_json, remark)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, e.OrderID, string(e.Kind), e.OperatorID, e.OperatorName, beforeJSON, afterJSON, e.Remark)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// ListByOrder returns all entries for an order, oldest first.
func (r *OperationLogRepo) ListByOrder(ctx context.Context, orderID uint64) ([]model.OperationLog, error) {
	return r.listByOrder(ctx, r.db, orderID)
}

// ListByOrderTx is ListByOrder within the caller's transaction.  The
// locking mutation path reads the trail under the same row lock so the
// view it returns carries every entry, not just the one it appends.
func (r *OperationLogRepo) ListByOrderTx(ctx context.Context, tx *sql.Tx, orderID uint64) ([]model.OperationLog, error) {
	return r.listByOrder(ctx, tx, orderID)
}

func (r *OperationLogRepo) listByOrder(ctx context.Context, q queryer, orderID uint64) ([]model.OperationLog, error) {
	const sel = `SELECT id, order_id, kind, operator_id, operator_name, before_json, after_json, remark, created_at
	           FROM reservation_operation_logs WHERE order_id = ? ORDER BY id`
	rows, err := q.QueryContext(ctx, sel, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]model.OperationLog, 0)
	for rows.Next() {
		var (
			e          model.OperationLog
			kind       string
			beforeJSON []byte
			afterJSON  []byte
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &kind, &e.OperatorID, &e.OperatorName, &beforeJSON, &afterJSON, &e.Remark, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = model.OperationKind(kind)
		if e.Before, err = unmarshalChangeSet(beforeJSON); err != nil {
			return nil, err
		}
		if e.After, err = unmarshalChangeSet(afterJSON); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func marshalChangeSet(cs model.ChangeSet) ([]byte, error) {
	if cs == nil {
		cs = model.ChangeSet{}
	}
	return json.Marshal(cs)
}

func unmarshalChangeSet(raw []byte) (model.ChangeSet, error) {
	cs := model.ChangeSet{}
	if len(raw) == 0 {
		return cs, nil
	}
	if err := json.Unmarshal(raw, &cs); err != nil {
		return nil, err
	}
	return cs, nil
}
