package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dkoryagin/vehiclehold/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HoldWithVehicle is the reconciliation read model: a hold request joined
// with summary columns of its vehicle.
type HoldWithVehicle struct {
	Hold         domain.HoldRequest
	VehicleMake  string
	VehicleModel string
}

type HoldRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, hold *domain.HoldRequest) error
	GetByID(ctx context.Context, kind domain.HoldKind, id int64) (*domain.HoldRequest, error)
	ListByVehicle(ctx context.Context, vehicleID int64) ([]domain.HoldRequest, error)
	ListAllWithVehicle(ctx context.Context) ([]HoldWithVehicle, error)
	UpdateStatus(ctx context.Context, id int64, status domain.HoldStatus, holdExpiry *time.Time) (*domain.HoldRequest, error)
	Delete(ctx context.Context, kind domain.HoldKind, id int64) error
}

type PGHoldRepository struct {
	db *pgxpool.Pool
}

func NewHoldRepository(db *pgxpool.Pool) HoldRepository {
	return &PGHoldRepository{db: db}
}

const holdColumns = `id, kind, vehicle_id, reference, customer_name, customer_email, customer_phone, status, preferred_date, preferred_time, hold_expiry, created_at, updated_at`

func (r *PGHoldRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

func (r *PGHoldRepository) Create(ctx context.Context, hold *domain.HoldRequest) error {
	hold.Status = domain.HoldStatusPending
	return r.queryRow(ctx, `INSERT INTO hold_requests (kind, vehicle_id, reference, customer_name, customer_email, customer_phone, status, preferred_date, preferred_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		hold.Kind, hold.VehicleID, hold.Reference, hold.CustomerName, hold.CustomerEmail, hold.CustomerPhone, hold.Status, hold.PreferredDate, hold.PreferredTime).
		Scan(&hold.ID, &hold.CreatedAt, &hold.UpdatedAt)
}

func (r *PGHoldRepository) GetByID(ctx context.Context, kind domain.HoldKind, id int64) (*domain.HoldRequest, error) {
	var h domain.HoldRequest
	err := scanHold(r.queryRow(ctx, `SELECT `+holdColumns+` FROM hold_requests WHERE id=$1 AND kind=$2`, id, kind), &h)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrHoldNotFound
		}
		return nil, err
	}
	return &h, nil
}

func (r *PGHoldRepository) ListByVehicle(ctx context.Context, vehicleID int64) ([]domain.HoldRequest, error) {
	rows, err := r.query(ctx, `SELECT `+holdColumns+` FROM hold_requests WHERE vehicle_id=$1 ORDER BY created_at DESC`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holds := make([]domain.HoldRequest, 0)
	for rows.Next() {
		var h domain.HoldRequest
		if err := scanHold(rows, &h); err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}

func (r *PGHoldRepository) ListAllWithVehicle(ctx context.Context) ([]HoldWithVehicle, error) {
	rows, err := r.query(ctx, `SELECT h.id, h.kind, h.vehicle_id, h.reference, h.customer_name, h.customer_email, h.customer_phone, h.status, h.preferred_date, h.preferred_time, h.hold_expiry, h.created_at, h.updated_at, v.make, v.model
		FROM hold_requests h
		JOIN vehicles v ON v.id = h.vehicle_id
		ORDER BY h.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]HoldWithVehicle, 0)
	for rows.Next() {
		var hw HoldWithVehicle
		h := &hw.Hold
		if err := rows.Scan(&h.ID, &h.Kind, &h.VehicleID, &h.Reference, &h.CustomerName, &h.CustomerEmail, &h.CustomerPhone, &h.Status, &h.PreferredDate, &h.PreferredTime, &h.HoldExpiry, &h.CreatedAt, &h.UpdatedAt, &hw.VehicleMake, &hw.VehicleModel); err != nil {
			return nil, err
		}
		result = append(result, hw)
	}
	return result, rows.Err()
}

func (r *PGHoldRepository) UpdateStatus(ctx context.Context, id int64, status domain.HoldStatus, holdExpiry *time.Time) (*domain.HoldRequest, error) {
	var h domain.HoldRequest
	err := scanHold(r.queryRow(ctx, `UPDATE hold_requests SET status=$1, hold_expiry=$2, updated_at=now() WHERE id=$3 RETURNING `+holdColumns, status, holdExpiry, id), &h)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrHoldNotFound
		}
		return nil, err
	}
	return &h, nil
}

func (r *PGHoldRepository) Delete(ctx context.Context, kind domain.HoldKind, id int64) error {
	cmd, err := r.exec(ctx, `DELETE FROM hold_requests WHERE id=$1 AND kind=$2`, id, kind)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrHoldNotFound
	}
	return nil
}

func scanHold(row pgx.Row, h *domain.HoldRequest) error {
	return row.Scan(&h.ID, &h.Kind, &h.VehicleID, &h.Reference, &h.CustomerName, &h.CustomerEmail, &h.CustomerPhone, &h.Status, &h.PreferredDate, &h.PreferredTime, &h.HoldExpiry, &h.CreatedAt, &h.UpdatedAt)
}

func (r *PGHoldRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.db.Exec(ctx, sql, args...)
}

func (r *PGHoldRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.db.Query(ctx, sql, args...)
}

func (r *PGHoldRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.db.QueryRow(ctx, sql, args...)
}

var _ HoldRepository = (*PGHoldRepository)(nil)
