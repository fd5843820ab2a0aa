package appointments

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for appointment storage.
type Repository interface {
	// Create inserts the appointment. It fails with ErrSlotTaken when an
	// active appointment already occupies the same date/time.
	Create(ctx context.Context, a *Appointment) (*Appointment, error)
	// OccupiedTimes returns the HH:MM slots held by active appointments
	// on the given date.
	OccupiedTimes(ctx context.Context, date string) ([]string, error)
	GetByID(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context, f ListFilter) ([]*Appointment, error)
	Update(ctx context.Context, id string, req *UpdateAppointmentRequest) (*Appointment, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Appointment, error)
	Delete(ctx context.Context, id string) error
	// Calendar aggregates per-day status counts for a YYYY-MM month.
	Calendar(ctx context.Context, month string) ([]DayCounts, error)
}

// InMemoryRepository keeps appointments in memory. It backs handler tests
// and local development without Postgres.
type InMemoryRepository struct {
	mu   sync.RWMutex
	rows map[string]*Appointment
	seq  int64
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{rows: make(map[string]*Appointment)}
}

func (r *InMemoryRepository) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if row.Date == a.Date && row.Time == a.Time && isActive(row.Status) {
			return nil, ErrSlotTaken
		}
	}

	r.seq++
	now := time.Now().UTC()
	stored := *a
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.NumeroCita = r.seq
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.rows[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (r *InMemoryRepository) OccupiedTimes(ctx context.Context, date string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var times []string
	for _, row := range r.rows {
		if row.Date == date && isActive(row.Status) {
			times = append(times, NormalizeTime(row.Time))
		}
	}
	sort.Strings(times)
	return times, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *row
	return &out, nil
}

func (r *InMemoryRepository) List(ctx context.Context, f ListFilter) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Appointment
	for _, row := range r.rows {
		if f.Status != "" && row.Status != f.Status {
			continue
		}
		if f.Search != "" && !matchesSearch(row, f.Search) {
			continue
		}
		c := *row
		out = append(out, &c)
	}
	// Most recent first, like the original admin listing.
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id string, req *UpdateAppointmentRequest) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.PatientName != nil {
		row.PatientName = *req.PatientName
	}
	if req.PatientEmail != nil {
		row.PatientEmail = *req.PatientEmail
	}
	if req.PatientPhone != nil {
		row.PatientPhone = NormalizePhone(*req.PatientPhone)
	}
	if req.Service != nil {
		row.Service = Service(strings.ToUpper(*req.Service))
	}
	if req.Date != nil {
		row.Date = *req.Date
	}
	if req.Time != nil {
		row.Time = NormalizeTime(*req.Time)
	}
	if req.Notes != nil {
		row.Notes = *req.Notes
	}
	row.UpdatedAt = time.Now().UTC()
	out := *row
	return &out, nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id string, status Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	row.Status = status
	row.UpdatedAt = time.Now().UTC()
	out := *row
	return &out, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *InMemoryRepository) Calendar(ctx context.Context, month string) ([]DayCounts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byDate := make(map[string]*DayCounts)
	for _, row := range r.rows {
		if !strings.HasPrefix(row.Date, month+"-") {
			continue
		}
		dc, ok := byDate[row.Date]
		if !ok {
			dc = &DayCounts{Date: row.Date}
			byDate[row.Date] = dc
		}
		switch row.Status {
		case StatusPendiente:
			dc.Pendiente++
		case StatusConfirmada:
			dc.Confirmada++
		case StatusCompletada:
			dc.Completada++
		case StatusCancelada:
			dc.Cancelada++
		}
	}

	out := make([]DayCounts, 0, len(byDate))
	for _, dc := range byDate {
		out = append(out, *dc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func isActive(s Status) bool {
	return s == StatusPendiente || s == StatusConfirmada
}

func matchesSearch(a *Appointment, term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(a.PatientName), term) ||
		strings.Contains(strings.ToLower(a.PatientEmail), term) ||
		strings.Contains(a.PatientPhone, term)
}
