package city

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type hospitalRepoPG struct{ db queryable }

// NewHospitalRepoPG reads summaries from the city_hospital_summary table.
// db is usually a *pgxpool.Pool.
func NewHospitalRepoPG(db queryable) Repository { return &hospitalRepoPG{db: db} }

const hospitalCols = `id, name, available_beds, total_beds, icu_available, icu_total,
	opd_load, emergency_capacity, updated_at`

func scanHospital(row pgx.Row) (*Hospital, error) {
	var h Hospital
	var load string
	err := row.Scan(&h.ID, &h.Name, &h.AvailableBeds, &h.TotalBeds, &h.ICUAvailable, &h.ICUTotal,
		&load, &h.EmergencyCapacity, &h.UpdatedAt)
	h.OPDLoad = Load(load)
	return &h, err
}

func (r *hospitalRepoPG) List(ctx context.Context) ([]Hospital, error) {
	rows, err := r.db.Query(ctx, `SELECT `+hospitalCols+` FROM city_hospital_summary ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query hospitals: %w", err)
	}
	defer rows.Close()

	var out []Hospital
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hospital: %w", err)
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

func (r *hospitalRepoPG) GetByID(ctx context.Context, id string) (*Hospital, error) {
	h, err := scanHospital(r.db.QueryRow(ctx, `SELECT `+hospitalCols+` FROM city_hospital_summary WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrHospitalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get hospital %s: %w", id, err)
	}
	return h, nil
}

func (r *hospitalRepoPG) Upsert(ctx context.Context, h *Hospital) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO city_hospital_summary (id, name, available_beds, total_beds, icu_available, icu_total,
			opd_load, emergency_capacity)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, available_beds=EXCLUDED.available_beds,
			total_beds=EXCLUDED.total_beds, icu_available=EXCLUDED.icu_available, icu_total=EXCLUDED.icu_total,
			opd_load=EXCLUDED.opd_load, emergency_capacity=EXCLUDED.emergency_capacity, updated_at=NOW()
		RETURNING updated_at`,
		h.ID, h.Name, h.AvailableBeds, h.TotalBeds, h.ICUAvailable, h.ICUTotal,
		string(h.OPDLoad), h.EmergencyCapacity).Scan(&h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert hospital %s: %w", h.ID, err)
	}
	return nil
}
