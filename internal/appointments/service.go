package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dentalespejo/clinic-platform/internal/observability/metrics"
	"github.com/dentalespejo/clinic-platform/pkg/logging"
)

var bookingTracer = otel.Tracer("dentalespejo.internal.appointments")

// Notifier delivers best-effort messages after a booking lands. Failures
// never reach the patient-facing path.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, a *Appointment) error
	SendStaffNotice(ctx context.Context, a *Appointment) error
}

// BookingService coordinates the booking pipeline: validate, check the occupied
// set, insert, then fire the confirmation email without blocking.
type BookingService struct {
	repo     Repository
	cache    *AvailabilityCache // nil disables caching
	notifier Notifier           // nil disables notifications
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger

	now           func() time.Time
	notifyTimeout time.Duration
}

// NewBookingService constructs a booking service.
func NewBookingService(repo Repository, cache *AvailabilityCache, notifier Notifier, m *metrics.BookingMetrics, logger *logging.Logger) *BookingService {
	if repo == nil {
		panic("appointments: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingService{
		repo:          repo,
		cache:         cache,
		notifier:      notifier,
		metrics:       m,
		logger:        logger,
		now:           time.Now,
		notifyTimeout: 10 * time.Second,
	}
}

// WithClock overrides the time source. Tests use this to pin "today".
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// Occupied returns the active slots for a date, read through the cache.
// Store or cache-backend failures are surfaced; the handler turns them into
// 503 so the form can disable submission instead of showing a free day.
func (s *BookingService) Occupied(ctx context.Context, date string) ([]string, error) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	date = day.Format(DateLayout)

	start := s.now()
	defer func() {
		s.metrics.ObserveAvailabilityLatency(time.Since(start).Seconds())
	}()

	if s.cache != nil {
		times, hit, err := s.cache.Get(ctx, date)
		if err != nil {
			return nil, err
		}
		if hit {
			return times, nil
		}
	}

	times, err := s.repo.OccupiedTimes(ctx, date)
	if err != nil {
		return nil, err
	}
	if times == nil {
		times = []string{}
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, date, times); err != nil {
			// A failed cache fill only costs the next lookup a DB round trip.
			s.logger.Warn("availability cache fill failed", "date", date, "error", err)
		}
	}
	return times, nil
}

// RefreshOccupied drops the cached set for a date and re-reads it, so a
// conflict response can carry current occupancy.
func (s *BookingService) RefreshOccupied(ctx context.Context, date string) ([]string, error) {
	s.invalidate(ctx, date)
	return s.Occupied(ctx, date)
}

// Book validates the request and creates the appointment with status
// PENDIENTE. A taken slot fails with ErrSlotTaken whether caught by the
// occupied-set check, the repository pre-check, or the unique index.
func (s *BookingService) Book(ctx context.Context, req *CreateAppointmentRequest) (*Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "appointments.book")
	defer span.End()

	if err := req.Validate(s.now()); err != nil {
		s.metrics.ObserveBooking(metrics.OutcomeValidationError)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("dentalespejo.service", req.Service),
		attribute.String("dentalespejo.date", req.Date),
		attribute.String("dentalespejo.time", req.Time),
	)

	occupied, err := s.Occupied(ctx, req.Date)
	if err != nil {
		s.metrics.ObserveBooking(metrics.OutcomeWriteError)
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: availability check: %w", err)
	}
	for _, t := range occupied {
		if t == req.Time {
			s.metrics.ObserveBooking(metrics.OutcomeSlotConflict)
			return nil, ErrSlotTaken
		}
	}

	notes := req.Notes
	if notes == "" {
		notes = DefaultNotes
	}
	appt := &Appointment{
		PatientName:  req.PatientName,
		PatientEmail: req.PatientEmail,
		PatientPhone: req.PatientPhone,
		Service:      Service(req.Service),
		Date:         req.Date,
		Time:         req.Time,
		Status:       StatusPendiente,
		Notes:        notes,
	}

	created, err := s.repo.Create(ctx, appt)
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveBooking(metrics.OutcomeSlotConflict)
			s.invalidate(ctx, req.Date)
			return nil, err
		}
		s.metrics.ObserveBooking(metrics.OutcomeWriteError)
		span.RecordError(err)
		return nil, err
	}

	s.invalidate(ctx, created.Date)
	s.metrics.ObserveBooking(metrics.OutcomeCreated)
	s.logger.Info("appointment booked",
		"id", created.ID,
		"numero_cita", created.NumeroCita,
		"date", created.Date,
		"time", created.Time,
		"service", created.Service,
	)

	s.dispatchNotifications(created)
	return created, nil
}

// dispatchNotifications fires the confirmation email and staff notice in a
// detached goroutine with its own deadline. The booking outcome is already
// decided; failures here are logged and counted only.
func (s *BookingService) dispatchNotifications(a *Appointment) {
	if s.notifier == nil {
		return
	}
	appt := *a
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		if err := s.notifier.SendBookingConfirmation(ctx, &appt); err != nil {
			s.metrics.ObserveConfirmationEmail(false)
			s.logger.Error("confirmation email failed", "id", appt.ID, "error", err)
		} else {
			s.metrics.ObserveConfirmationEmail(true)
		}

		if err := s.notifier.SendStaffNotice(ctx, &appt); err != nil {
			s.logger.Error("staff notice failed", "id", appt.ID, "error", err)
		}
	}()
}

// Get returns one appointment.
func (s *BookingService) Get(ctx context.Context, id string) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns appointments for the admin screens.
func (s *BookingService) List(ctx context.Context, f ListFilter) ([]*Appointment, error) {
	return s.repo.List(ctx, f)
}

// Update applies admin edits and keeps the occupied-set cache honest for
// both the old and the new date.
func (s *BookingService) Update(ctx context.Context, id string, req *UpdateAppointmentRequest) (*Appointment, error) {
	if req.Service != nil && !ValidService(Service(*req.Service)) {
		return nil, ErrInvalidService
	}
	if req.Time != nil && !ValidTimeSlot(NormalizeTime(*req.Time)) {
		return nil, ErrInvalidTime
	}
	if req.Date != nil {
		if _, err := time.Parse(DateLayout, *req.Date); err != nil {
			return nil, ErrInvalidDate
		}
	}

	prev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, prev.Date)
	if updated.Date != prev.Date {
		s.invalidate(ctx, updated.Date)
	}
	return updated, nil
}

// UpdateStatus moves an appointment through its lifecycle.
func (s *BookingService) UpdateStatus(ctx context.Context, id string, status Status) (*Appointment, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("appointments: unknown status %q", status)
	}
	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, updated.Date)
	return updated, nil
}

// Delete removes an appointment outright.
func (s *BookingService) Delete(ctx context.Context, id string) error {
	prev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, prev.Date)
	return nil
}

// Calendar aggregates a YYYY-MM month for the admin calendar.
func (s *BookingService) Calendar(ctx context.Context, month string) ([]DayCounts, error) {
	if _, err := time.Parse("2006-01", month); err != nil {
		return nil, ErrInvalidDate
	}
	return s.repo.Calendar(ctx, month)
}

func (s *BookingService) invalidate(ctx context.Context, date string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, date); err != nil {
		s.logger.Warn("availability cache invalidate failed", "date", date, "error", err)
	}
}
