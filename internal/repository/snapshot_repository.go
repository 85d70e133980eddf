package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/venue-reservation/internal/model"
)

// SnapshotRepo writes and reads slot inventory snapshots: write-once audit
// rows recording a slot's capacity and occupancy at the instant a booking
// committed.
type SnapshotRepo struct {
	db *sql.DB
}

// NewSnapshotRepo returns a SnapshotRepo bound to the database.
func NewSnapshotRepo(db *sql.DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

// InsertTx writes one snapshot within the caller's transaction so the
// recorded occupancy is exactly what the admission check committed.
func (r *SnapshotRepo) InsertTx(ctx context.Context, tx *sql.Tx, s *model.SlotInventorySnapshot) error {
	const q = `INSERT INTO slot_inventory_snapshots
	           (time_slot_template_id, reservation_date, capacity, occupied, order_id)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, s.TimeSlotTemplateID, s.ReservationDate, s.Capacity, s.Occupied, s.OrderID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// ListBySlot returns the snapshot history for one (date, slot) pair,
// newest first.  Used for capacity audits and reporting.
func (r *SnapshotRepo) ListBySlot(ctx context.Context, date string, slotID uint64) ([]model.SlotInventorySnapshot, error) {
	const q = `SELECT id, time_slot_template_id, DATE_FORMAT(reservation_date, '%Y-%m-%d'), capacity, occupied, order_id, created_at
	           FROM slot_inventory_snapshots
	           WHERE reservation_date = ? AND time_slot_template_id = ?
	           ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, q, date, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	snaps := make([]model.SlotInventorySnapshot, 0)
	for rows.Next() {
		var s model.SlotInventorySnapshot
		if err := rows.Scan(&s.ID, &s.TimeSlotTemplateID, &s.ReservationDate, &s.Capacity, &s.Occupied, &s.OrderID, &s.CreatedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snaps, nil
}
