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

type VehicleRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	List(ctx context.Context) ([]domain.Vehicle, error)
	ListByStatus(ctx context.Context, status domain.VehicleStatus) ([]domain.Vehicle, error)
	GetByID(ctx context.Context, id int64) (*domain.Vehicle, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Vehicle, error)
	SetStatus(ctx context.Context, id int64, status domain.VehicleStatus, holdExpiry *time.Time) error
	ReleaseExpiredBefore(ctx context.Context, deadline time.Time) ([]domain.Vehicle, error)
}

type PGVehicleRepository struct {
	db *pgxpool.Pool
}

func NewVehicleRepository(db *pgxpool.Pool) VehicleRepository {
	return &PGVehicleRepository{db: db}
}

const vehicleColumns = `id, make, model, year, price_cents, status, hold_expiry, created_at, updated_at`

func (r *PGVehicleRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

func (r *PGVehicleRepository) List(ctx context.Context) ([]domain.Vehicle, error) {
	rows, err := r.query(ctx, `SELECT `+vehicleColumns+` FROM vehicles ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVehicles(rows)
}

func (r *PGVehicleRepository) ListByStatus(ctx context.Context, status domain.VehicleStatus) ([]domain.Vehicle, error) {
	rows, err := r.query(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE status=$1 ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVehicles(rows)
}

func (r *PGVehicleRepository) GetByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	return r.getByID(ctx, id, false)
}

func (r *PGVehicleRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Vehicle, error) {
	return r.getByID(ctx, id, true)
}

func (r *PGVehicleRepository) getByID(ctx context.Context, id int64, forUpdate bool) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id=$1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var v domain.Vehicle
	if err := scanVehicle(r.queryRow(ctx, query, id), &v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVehicleNotFound
		}
		return nil, err
	}
	return &v, nil
}

// SetStatus is the only writer of vehicles.hold_expiry.
func (r *PGVehicleRepository) SetStatus(ctx context.Context, id int64, status domain.VehicleStatus, holdExpiry *time.Time) error {
	cmd, err := r.exec(ctx, `UPDATE vehicles SET status=$1, hold_expiry=$2, updated_at=now() WHERE id=$3`, status, holdExpiry, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrVehicleNotFound
	}
	return nil
}

// ReleaseExpiredBefore releases every vehicle whose hold has lapsed in a
// single conditional update, so it never overwrites a confirmation that
// lands concurrently. Running it again without new confirmations is a no-op.
func (r *PGVehicleRepository) ReleaseExpiredBefore(ctx context.Context, deadline time.Time) ([]domain.Vehicle, error) {
	rows, err := r.query(ctx, `UPDATE vehicles SET status=$1, hold_expiry=NULL, updated_at=now()
		WHERE status=$2 AND hold_expiry IS NOT NULL AND hold_expiry < $3
		RETURNING `+vehicleColumns, domain.VehicleStatusAvailable, domain.VehicleStatusReserved, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVehicles(rows)
}

func scanVehicle(row pgx.Row, v *domain.Vehicle) error {
	return row.Scan(&v.ID, &v.Make, &v.Model, &v.Year, &v.PriceCents, &v.Status, &v.HoldExpiry, &v.CreatedAt, &v.UpdatedAt)
}

func scanVehicles(rows pgx.Rows) ([]domain.Vehicle, error) {
	vehicles := make([]domain.Vehicle, 0)
	for rows.Next() {
		var v domain.Vehicle
		if err := scanVehicle(rows, &v); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func (r *PGVehicleRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.db.Exec(ctx, sql, args...)
}

func (r *PGVehicleRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.db.Query(ctx, sql, args...)
}

func (r *PGVehicleRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.db.QueryRow(ctx, sql, args...)
}

var _ VehicleRepository = (*PGVehicleRepository)(nil)
