package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/venue-reservation/internal/model"
)

// CatalogRepo provides read-only access to the bookable catalog: scenario
// packages, price tiers, time-slot templates and add-on items.  The
// booking engine only resolves references and copies price/name snapshots
// from these tables; their admin CRUD is owned elsewhere.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo returns a CatalogRepo bound to the given database.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// PackageByID loads one scenario package.  Returns ErrPackageNotFound when
// absent.
func (r *CatalogRepo) PackageByID(ctx context.Context, id uint64) (*model.ScenarioPackage, error) {
	const q = `SELECT id, name, is_active, created_at, updated_at
	           FROM scenario_packages WHERE id = ?`
	var p model.ScenarioPackage
	err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// TierByID loads one price tier.  Returns ErrTierNotFound when absent.
func (r *CatalogRepo) TierByID(ctx context.Context, id uint64) (*model.PriceTier, error) {
	const q = `SELECT id, package_id, name, price_cents, created_at, updated_at
	           FROM price_tiers WHERE id = ?`
	var t model.PriceTier
	err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.PackageID, &t.Name, &t.PriceCents, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTierNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TimeSlotTemplateByID loads one slot template.  Returns ErrSlotNotFound
// when absent.
func (r *CatalogRepo) TimeSlotTemplateByID(ctx context.Context, id uint64) (*model.TimeSlotTemplate, error) {
	const q = `SELECT id, start_time, end_time, capacity, is_active, created_at, updated_at
	           FROM time_slot_templates WHERE id = ?`
	var s model.TimeSlotTemplate
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.StartTime, &s.EndTime, &s.Capacity, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// AddonItemByID loads one add-on item.  Returns ErrAddonNotFound when
// absent.
func (r *CatalogRepo) AddonItemByID(ctx context.Context, id uint64) (*model.AddonItem, error) {
	const q = `SELECT id, name, price_cents, is_active, created_at, updated_at
	           FROM addon_items WHERE id = ?`
	var a model.AddonItem
	err := r.db.QueryRowContext(ctx, q, id).Scan(&a.ID, &a.Name, &a.PriceCents, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddonNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListActiveSlots returns all active slot templates ordered by start time.
// Used by the public availability projection.
func (r *CatalogRepo) ListActiveSlots(ctx context.Context) ([]model.TimeSlotTemplate, error) {
	const q = `SELECT id, start_time, end_time, capacity, is_active, created_at, updated_at
	           FROM time_slot_templates WHERE is_active = 1 ORDER BY start_time`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	slots := make([]model.TimeSlotTemplate, 0)
	for rows.Next() {
		var s model.TimeSlotTemplate
		if err := rows.Scan(&s.ID, &s.StartTime, &s.EndTime, &s.Capacity, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}
