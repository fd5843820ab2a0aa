package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores appointments in the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by a pgx pool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

const appointmentColumns = `id, patient_name, patient_email, patient_phone, service,
	to_char(appointment_date, 'YYYY-MM-DD'), appointment_time, status, notes,
	numero_cita, created_at, updated_at`

// uniqueViolation is the Postgres error code raised by the partial unique
// index on active (date, time) pairs.
const uniqueViolation = "23505"

// Create runs the existence pre-check and inserts the row. The pre-check
// keeps the friendly error message cheap; the unique index is what actually
// closes the race between two concurrent bookings for the same slot.
func (r *PostgresRepository) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM appointments
			WHERE appointment_date = $1
			  AND appointment_time = $2
			  AND status IN ('PENDIENTE','CONFIRMADA'))`,
		a.Date, a.Time,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("appointments: conflict pre-check: %w", err)
	}
	if exists {
		return nil, ErrSlotTaken
	}

	id := a.ID
	if id == "" {
		id = uuid.NewString()
	}
	stored := *a
	stored.ID = id

	err = r.pool.QueryRow(ctx,
		`INSERT INTO appointments
			(id, patient_name, patient_email, patient_phone, service,
			 appointment_date, appointment_time, status, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING numero_cita, created_at, updated_at`,
		id, a.PatientName, a.PatientEmail, a.PatientPhone, a.Service,
		a.Date, a.Time, a.Status, a.Notes,
	).Scan(&stored.NumeroCita, &stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}
	return &stored, nil
}

// OccupiedTimes returns the slots held by active appointments on a date.
func (r *PostgresRepository) OccupiedTimes(ctx context.Context, date string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT appointment_time FROM appointments
		 WHERE appointment_date = $1
		   AND status IN ('PENDIENTE','CONFIRMADA')
		 ORDER BY appointment_time`, date)
	if err != nil {
		return nil, fmt.Errorf("appointments: occupied lookup: %w", err)
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("appointments: occupied scan: %w", err)
		}
		times = append(times, NormalizeTime(t))
	}
	return times, rows.Err()
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) List(ctx context.Context, f ListFilter) ([]*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(patient_name ILIKE $%d OR patient_email ILIKE $%d OR patient_phone ILIKE $%d)", n, n, n))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: list scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, id string, req *UpdateAppointmentRequest) (*Appointment, error) {
	sets := []string{"updated_at = NOW()"}
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if req.PatientName != nil {
		add("patient_name", *req.PatientName)
	}
	if req.PatientEmail != nil {
		add("patient_email", *req.PatientEmail)
	}
	if req.PatientPhone != nil {
		add("patient_phone", NormalizePhone(*req.PatientPhone))
	}
	if req.Service != nil {
		add("service", strings.ToUpper(*req.Service))
	}
	if req.Date != nil {
		add("appointment_date", *req.Date)
	}
	if req.Time != nil {
		add("appointment_time", NormalizeTime(*req.Time))
	}
	if req.Notes != nil {
		add("notes", *req.Notes)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE appointments SET %s WHERE id = $%d RETURNING `+appointmentColumns,
		strings.Join(sets, ", "), len(args))

	row := r.pool.QueryRow(ctx, query, args...)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("appointments: update failed: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE appointments SET status = $1, updated_at = NOW()
		 WHERE id = $2 RETURNING `+appointmentColumns, status, id)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// Reactivating a cancelled appointment whose slot has since
			// been taken by someone else.
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("appointments: status update failed: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("appointments: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Calendar(ctx context.Context, month string) ([]DayCounts, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT to_char(appointment_date, 'YYYY-MM-DD'),
		        count(*) FILTER (WHERE status = 'PENDIENTE'),
		        count(*) FILTER (WHERE status = 'CONFIRMADA'),
		        count(*) FILTER (WHERE status = 'COMPLETADA'),
		        count(*) FILTER (WHERE status = 'CANCELADA')
		 FROM appointments
		 WHERE to_char(appointment_date, 'YYYY-MM') = $1
		 GROUP BY appointment_date
		 ORDER BY appointment_date`, month)
	if err != nil {
		return nil, fmt.Errorf("appointments: calendar failed: %w", err)
	}
	defer rows.Close()

	var out []DayCounts
	for rows.Next() {
		var dc DayCounts
		if err := rows.Scan(&dc.Date, &dc.Pendiente, &dc.Confirmada, &dc.Completada, &dc.Cancelada); err != nil {
			return nil, fmt.Errorf("appointments: calendar scan: %w", err)
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.PatientName, &a.PatientEmail, &a.PatientPhone, &a.Service,
		&a.Date, &a.Time, &a.Status, &a.Notes,
		&a.NumeroCita, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Time = NormalizeTime(a.Time)
	return &a, nil
}
