package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/venue-reservation/internal/model"
)

// OrderRepo persists the reservation order aggregate: the order row, its
// add-on item rows, its operation-log trail and the inventory snapshot
// written at admission time.  All multi-row writes happen in a single
// transaction so an aggregate is never half-visible.
type OrderRepo struct {
	db    *sql.DB
	logs  *OperationLogRepo
	snaps *SnapshotRepo
}

// NewOrderRepo returns an OrderRepo.  The log and snapshot repos are used
// for the same-transaction appends during create and mutate.
func NewOrderRepo(db *sql.DB, logs *OperationLogRepo, snaps *SnapshotRepo) *OrderRepo {
	return &OrderRepo{db: db, logs: logs, snaps: snaps}
}

// MutateFn is applied to an order loaded under a row lock.  It returns the
// audit entry to append, or nil when the operation turned out to be a
// no-op (nothing is then written and the row stays untouched).
type MutateFn func(o *model.ReservationOrder) (*model.OperationLog, error)

// OrderFilter narrows FindByConditions.  Zero values mean "no filter".
type OrderFilter struct {
	CustomerID         uint64
	TimeSlotTemplateID uint64
	Status             model.OrderStatus
	ReservationDate    string
	OrderNo            string
}

// Page is 1-based pagination input.  Size is clamped to [1,100] with a
// default of 20.
type Page struct {
	Number int
	Size   int
}

func (p Page) limitOffset() (limit, offset int) {
	size := p.Size
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	num := p.Number
	if num < 1 {
		num = 1
	}
	return size, (num - 1) * size
}

const orderCols = `id, order_no, customer_id, package_id, tier_id, time_slot_template_id,
	DATE_FORMAT(reservation_date, '%Y-%m-%d'), start_time, contact_name, contact_phone, remark,
	total_amount_cents, status, requires_payment, payment_id, paid_at,
	cancel_reason, cancel_reason_type, cancelled_at, created_at, updated_at`

// CreateWithAdmission inserts a new order together with its items, its
// CREATE log entry and an inventory snapshot, gated by the slot admission
// check, all in one transaction.
//
// The admission check pins the slot template row with SELECT ... FOR
// UPDATE before counting, so concurrent creates against the same slot
// serialize on the row lock and the count-then-insert sequence cannot
// oversell.  Creates against different slots proceed in parallel.
//
// Returns ErrSlotNotFound, ErrInsufficientInventory (no writes in either
// case) or ErrDuplicateOrderNumber (caller retries with a fresh number).
func (r *OrderRepo) CreateWithAdmission(ctx context.Context, o *model.ReservationOrder, capacity uint32) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Pin the slot row. Every create for this slot takes the same lock,
	// so the count below cannot race with a concurrent insert.
	var slotID uint64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM time_slot_templates WHERE id = ? FOR UPDATE`,
		o.TimeSlotTemplateID,
	).Scan(&slotID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSlotNotFound
	}
	if err != nil {
		return err
	}

	var occupied uint32
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservation_orders
		 WHERE reservation_date = ? AND time_slot_template_id = ? AND status <> ?`,
		o.ReservationDate, o.TimeSlotTemplateID, string(model.StatusCancelled),
	).Scan(&occupied)
	if err != nil {
		return err
	}
	if occupied >= capacity {
		return ErrInsufficientInventory
	}

	const ins = `INSERT INTO reservation_orders
		(order_no, customer_id, package_id, tier_id, time_slot_template_id,
		 reservation_date, start_time, contact_name, contact_phone, remark,
		 total_amount_cents, status, requires_payment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, ins,
		o.OrderNo, o.CustomerID, o.PackageID, o.TierID, o.TimeSlotTemplateID,
		o.ReservationDate, o.StartTime, o.ContactName, o.ContactPhone, o.Remark,
		o.TotalAmountCents, string(o.Status), o.RequiresPayment,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateOrderNumber
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)

	if err := r.insertItemsTx(ctx, tx, o); err != nil {
		return err
	}
	for i := range o.Logs {
		o.Logs[i].OrderID = o.ID
		if err := r.logs.AppendTx(ctx, tx, &o.Logs[i]); err != nil {
			return err
		}
	}
	snap := &model.SlotInventorySnapshot{
		TimeSlotTemplateID: o.TimeSlotTemplateID,
		ReservationDate:    o.ReservationDate,
		Capacity:           capacity,
		Occupied:           occupied + 1,
		OrderID:            o.ID,
	}
	if err := r.snaps.InsertTx(ctx, tx, snap); err != nil {
		return err
	}

	// Read timestamps back so the returned aggregate matches the row.
	err = tx.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM reservation_orders WHERE id = ?`, o.ID,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// insertItemsTx bulk-inserts the order's add-on lines in one statement.
func (r *OrderRepo) insertItemsTx(ctx context.Context, tx *sql.Tx, o *model.ReservationOrder) error {
	if len(o.Items) == 0 {
		return nil
	}
	query := `INSERT INTO reservation_items
		(order_id, addon_id, name_snapshot, unit_price_cents, quantity, subtotal_cents) VALUES `
	args := make([]interface{}, 0, len(o.Items)*6)
	for i := range o.Items {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		it := &o.Items[i]
		it.OrderID = o.ID
		args = append(args, it.OrderID, it.AddonID, it.NameSnapshot, it.UnitPriceCents, it.Quantity, it.SubtotalCents)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// Mutate loads the order by id under SELECT ... FOR UPDATE, applies fn and
// persists the result plus the returned audit entry in the same
// transaction.  Two concurrent mutations of the same order serialize on
// the row lock; the second applies fn to the committed state of the
// first, so stale guards are never evaluated.
func (r *OrderRepo) Mutate(ctx context.Context, id uint64, fn MutateFn) (*model.ReservationOrder, error) {
	return r.mutate(ctx, "id = ?", id, fn)
}

// MutateByOrderNumber is Mutate keyed by the external order number, used
// by the payment completion callback.
func (r *OrderRepo) MutateByOrderNumber(ctx context.Context, orderNo string, fn MutateFn) (*model.ReservationOrder, error) {
	return r.mutate(ctx, "order_no = ?", orderNo, fn)
}

func (r *OrderRepo) mutate(ctx context.Context, where string, key interface{}, fn MutateFn) (*model.ReservationOrder, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx, `SELECT `+orderCols+` FROM reservation_orders WHERE `+where+` FOR UPDATE`, key)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, tx, o); err != nil {
		return nil, err
	}
	logs, err := r.logs.ListByOrderTx(ctx, tx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Logs = logs

	entry, err := fn(o)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		// No-op mutation: nothing to write, release the lock.
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return o, nil
	}

	const upd = `UPDATE reservation_orders SET
		status = ?, requires_payment = ?, contact_name = ?, contact_phone = ?, remark = ?,
		payment_id = ?, paid_at = ?, cancel_reason = ?, cancel_reason_type = ?, cancelled_at = ?,
		updated_at = UTC_TIMESTAMP()
		WHERE id = ?`
	_, err = tx.ExecContext(ctx, upd,
		string(o.Status), o.RequiresPayment, o.ContactName, o.ContactPhone, o.Remark,
		o.PaymentID, o.PaidAt, o.CancelReason, o.CancelReasonType, o.CancelledAt,
		o.ID,
	)
	if err != nil {
		return nil, err
	}
	entry.OrderID = o.ID
	if err := r.logs.AppendTx(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	o.Logs = append(o.Logs, *entry)
	return o, nil
}

// GetByID returns the full aggregate including items and the log trail.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.ReservationOrder, error) {
	return r.get(ctx, "id = ?", id)
}

// GetByOrderNumber is GetByID keyed by the external order number.
func (r *OrderRepo) GetByOrderNumber(ctx context.Context, orderNo string) (*model.ReservationOrder, error) {
	return r.get(ctx, "order_no = ?", orderNo)
}

func (r *OrderRepo) get(ctx context.Context, where string, key interface{}) (*model.ReservationOrder, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderCols+` FROM reservation_orders WHERE `+where, key)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, r.db, o); err != nil {
		return nil, err
	}
	logs, err := r.logs.ListByOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Logs = logs
	return o, nil
}

// ListByCustomer returns all orders of one customer, newest first, with
// items but without log trails (the detail endpoint carries those).
func (r *OrderRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]*model.ReservationOrder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderCols+` FROM reservation_orders WHERE customer_id = ? ORDER BY created_at DESC, id DESC`,
		customerID,
	)
	if err != nil {
		return nil, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadItemsBulk(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// FindByConditions returns one page of orders matching the filter plus the
// total match count.  Items are attached; log trails are not.
func (r *OrderRepo) FindByConditions(ctx context.Context, f OrderFilter, p Page) ([]*model.ReservationOrder, int64, error) {
	where := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)
	if f.CustomerID != 0 {
		where = append(where, "customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if f.TimeSlotTemplateID != 0 {
		where = append(where, "time_slot_template_id = ?")
		args = append(args, f.TimeSlotTemplateID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.ReservationDate != "" {
		where = append(where, "reservation_date = ?")
		args = append(args, f.ReservationDate)
	}
	if f.OrderNo != "" {
		where = append(where, "order_no = ?")
		args = append(args, f.OrderNo)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservation_orders`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := p.limitOffset()
	pageArgs := append(append([]interface{}{}, args...), limit, offset)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderCols+` FROM reservation_orders`+cond+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		pageArgs...,
	)
	if err != nil {
		return nil, 0, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.loadItemsBulk(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// CountActiveBySlot counts non-cancelled orders for a (date, slot) pair.
// This is the live occupancy number: cancellations lower it immediately
// with no separate release step.
func (r *OrderRepo) CountActiveBySlot(ctx context.Context, date string, slotID uint64) (uint32, error) {
	var n uint32
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservation_orders
		 WHERE reservation_date = ? AND time_slot_template_id = ? AND status <> ?`,
		date, slotID, string(model.StatusCancelled),
	).Scan(&n)
	return n, err
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (r *OrderRepo) loadItems(ctx context.Context, q queryer, o *model.ReservationOrder) error {
	const sel = `SELECT id, order_id, addon_id, name_snapshot, unit_price_cents, quantity, subtotal_cents, created_at
	             FROM reservation_items WHERE order_id = ? ORDER BY id`
	rows, err := q.QueryContext(ctx, sel, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	o.Items = make([]model.ReservationItem, 0)
	for rows.Next() {
		var it model.ReservationItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.AddonID, &it.NameSnapshot, &it.UnitPriceCents, &it.Quantity, &it.SubtotalCents, &it.CreatedAt); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

// loadItemsBulk attaches items to every order in one IN-clause query.
func (r *OrderRepo) loadItemsBulk(ctx context.Context, orders []*model.ReservationOrder) error {
	if len(orders) == 0 {
		return nil
	}
	index := make(map[uint64]*model.ReservationOrder, len(orders))
	ids := make([]interface{}, 0, len(orders))
	placeholders := make([]string, 0, len(orders))
	for _, o := range orders {
		o.Items = make([]model.ReservationItem, 0)
		index[o.ID] = o
		ids = append(ids, o.ID)
		placeholders = append(placeholders, "?")
	}
	query := `SELECT id, order_id, addon_id, name_snapshot, unit_price_cents, quantity, subtotal_cents, created_at
	          FROM reservation_items WHERE order_id IN (` + strings.Join(placeholders, ",") + `) ORDER BY order_id, id`
	rows, err := r.db.QueryContext(ctx, query, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it model.ReservationItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.AddonID, &it.NameSnapshot, &it.UnitPriceCents, &it.Quantity, &it.SubtotalCents, &it.CreatedAt); err != nil {
			return err
		}
		if o, ok := index[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(s rowScanner) (*model.ReservationOrder, error) {
	var (
		o          model.ReservationOrder
		status     string
		paymentID  sql.NullString
		paidAt     sql.NullTime
		reason     sql.NullString
		reasonType sql.NullString
		cancelled  sql.NullTime
	)
	err := s.Scan(
		&o.ID, &o.OrderNo, &o.CustomerID, &o.PackageID, &o.TierID, &o.TimeSlotTemplateID,
		&o.ReservationDate, &o.StartTime, &o.ContactName, &o.ContactPhone, &o.Remark,
		&o.TotalAmountCents, &status, &o.RequiresPayment, &paymentID, &paidAt,
		&reason, &reasonType, &cancelled, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = model.OrderStatus(status)
	if paymentID.Valid {
		v := paymentID.String
		o.PaymentID = &v
	}
	if paidAt.Valid {
		t := paidAt.Time.UTC()
		o.PaidAt = &t
	}
	if reason.Valid {
		v := reason.String
		o.CancelReason = &v
	}
	if reasonType.Valid {
		v := reasonType.String
		o.CancelReasonType = &v
	}
	if cancelled.Valid {
		t := cancelled.Time.UTC()
		o.CancelledAt = &t
	}
	return &o, nil
}

func collectOrders(rows *sql.Rows) ([]*model.ReservationOrder, error) {
	defer rows.Close()
	orders := make([]*model.ReservationOrder, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// isDuplicateKey reports MySQL error 1062 (duplicate entry for a unique
// index).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
