package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var apptCols = []string{
	"id", "patient_name", "patient_email", "patient_phone", "service",
	"to_char", "appointment_time", "status", "notes",
	"numero_cita", "created_at", "updated_at",
}

func TestPostgresCreateInsertsWhenSlotFree(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("2025-06-10", "09:00").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "Juana Pérez", "juana@example.com", "987654321",
			ServiceBrackets, "2025-06-10", "09:00", StatusPendiente, DefaultNotes).
		WillReturnRows(pgxmock.NewRows([]string{"numero_cita", "created_at", "updated_at"}).
			AddRow(int64(7), now, now))

	appt, err := repo.Create(context.Background(), &Appointment{
		PatientName:  "Juana Pérez",
		PatientEmail: "juana@example.com",
		PatientPhone: "987654321",
		Service:      ServiceBrackets,
		Date:         "2025-06-10",
		Time:         "09:00",
		Status:       StatusPendiente,
		Notes:        DefaultNotes,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if appt.NumeroCita != 7 {
		t.Errorf("expected numero_cita 7, got %d", appt.NumeroCita)
	}
	if appt.ID == "" {
		t.Error("expected generated id")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresCreatePreCheckConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("2025-06-10", "09:00").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	_, err = repo.Create(context.Background(), &Appointment{Date: "2025-06-10", Time: "09:00"})
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresCreateUniqueIndexConflict(t *testing.T) {
	// The pre-check can pass and the insert still lose the race; the unique
	// index violation must come back as the same ErrSlotTaken.
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("2025-06-10", "09:00").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), "2025-06-10", "09:00", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uniq_active_slot"})

	_, err = repo.Create(context.Background(), &Appointment{Date: "2025-06-10", Time: "09:00"})
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken from unique index, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresOccupiedTimesNormalizes(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("SELECT appointment_time FROM appointments").
		WithArgs("2025-06-10").
		WillReturnRows(pgxmock.NewRows([]string{"appointment_time"}).
			AddRow("09:00:00").AddRow("14:00"))

	times, err := repo.OccupiedTimes(context.Background(), "2025-06-10")
	if err != nil {
		t.Fatalf("occupied lookup failed: %v", err)
	}
	if len(times) != 2 || times[0] != "09:00" || times[1] != "14:00" {
		t.Fatalf("unexpected times: %v", times)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("SELECT id, patient_name").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(apptCols))

	_, err = repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresListWithFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	now := time.Now().UTC()

	rows := pgxmock.NewRows(apptCols).AddRow(
		"a1", "Juana Pérez", "juana@example.com", "987654321", ServiceBrackets,
		"2025-06-10", "09:00:00", StatusPendiente, DefaultNotes,
		int64(1), now, now)

	mock.ExpectQuery("SELECT id, patient_name").
		WithArgs(StatusPendiente, "%juana%", 20).
		WillReturnRows(rows)

	out, err := repo.List(context.Background(), ListFilter{
		Status: StatusPendiente,
		Search: "juana",
		Limit:  20,
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(out) != 1 || out[0].ID != "a1" || out[0].Time != "09:00" {
		t.Fatalf("unexpected listing: %+v", out)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresUpdateStatusReactivationConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("UPDATE appointments SET status").
		WithArgs(StatusConfirmada, "a1").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uniq_active_slot"})

	_, err = repo.UpdateStatus(context.Background(), "a1", StatusConfirmada)
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken on reactivation, got %v", err)
	}
}

func TestPostgresDeleteMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectExec("DELETE FROM appointments").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresCalendar(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("GROUP BY appointment_date").
		WithArgs("2025-06").
		WillReturnRows(pgxmock.NewRows([]string{"date", "p", "co", "cp", "ca"}).
			AddRow("2025-06-10", 2, 1, 0, 1))

	days, err := repo.Calendar(context.Background(), "2025-06")
	if err != nil {
		t.Fatalf("calendar failed: %v", err)
	}
	if len(days) != 1 || days[0].Pendiente != 2 || days[0].Cancelada != 1 {
		t.Fatalf("unexpected calendar: %+v", days)
	}
}
