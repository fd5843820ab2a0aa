// Package appointments implements the public booking workflow and the
// admin-side appointment management for the clinic.
package appointments

import (
	"regexp"
	"strings"
	"time"
)

// Status is the lifecycle state of an appointment. New bookings always
// start as StatusPendiente; only admin actions move them afterwards.
type Status string

const (
	StatusPendiente  Status = "PENDIENTE"
	StatusConfirmada Status = "CONFIRMADA"
	StatusCompletada Status = "COMPLETADA"
	StatusCancelada  Status = "CANCELADA"
)

// ActiveStatuses are the states that keep a slot occupied. COMPLETADA and
// CANCELADA free the slot.
var ActiveStatuses = []Status{StatusPendiente, StatusConfirmada}

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPendiente, StatusConfirmada, StatusCompletada, StatusCancelada:
		return true
	}
	return false
}

// Service is one of the treatments the clinic offers.
type Service string

const (
	ServiceBrackets    Service = "BRACKETS"
	ServiceProtesis    Service = "PROTESIS"
	ServiceEndodoncias Service = "ENDODONCIAS"
	ServiceImplantes   Service = "IMPLANTES"
)

// Services lists every bookable treatment.
var Services = []Service{ServiceBrackets, ServiceProtesis, ServiceEndodoncias, ServiceImplantes}

// ValidService reports whether s is a bookable treatment.
func ValidService(s Service) bool {
	switch s {
	case ServiceBrackets, ServiceProtesis, ServiceEndodoncias, ServiceImplantes:
		return true
	}
	return false
}

// TimeSlots are the bookable times of day. 13:00 is the lunch break.
var TimeSlots = []string{
	"09:00", "10:00", "11:00", "12:00",
	"14:00", "15:00", "16:00", "17:00", "18:00",
}

// ValidTimeSlot reports whether t is one of the fixed slots.
func ValidTimeSlot(t string) bool {
	for _, s := range TimeSlots {
		if s == t {
			return true
		}
	}
	return false
}

// DefaultNotes is stored when the patient leaves the notes field empty.
const DefaultNotes = "Sin observaciones"

// DateLayout is the wire format for appointment dates.
const DateLayout = "2006-01-02"

// Appointment is one booked slot. JSON field names match the columns the
// original site stored, so existing clients keep working.
type Appointment struct {
	ID           string    `json:"id"`
	PatientName  string    `json:"patient_name"`
	PatientEmail string    `json:"patient_email"`
	PatientPhone string    `json:"patient_phone"`
	Service      Service   `json:"service"`
	Date         string    `json:"appointment_date"`
	Time         string    `json:"appointment_time"`
	Status       Status    `json:"status"`
	Notes        string    `json:"notes"`
	NumeroCita   int64     `json:"numero_cita"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateAppointmentRequest is the public booking payload.
type CreateAppointmentRequest struct {
	PatientName  string `json:"patient_name"`
	PatientEmail string `json:"patient_email"`
	PatientPhone string `json:"patient_phone"`
	Service      string `json:"service"`
	Date         string `json:"appointment_date"`
	Time         string `json:"appointment_time"`
	Notes        string `json:"notes"`
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone strips every non-digit character.
func NormalizePhone(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

// NormalizeTime truncates a seconds component the store may return,
// e.g. "09:00:00" becomes "09:00".
func NormalizeTime(t string) string {
	if len(t) > 5 {
		return t[:5]
	}
	return t
}

// Validate checks the request against the booking rules in a fixed order;
// the first failing rule wins. ref is "now": the date must not be earlier
// than ref's calendar date. On success the request fields are normalized in
// place (trimmed, upper-cased service, zero-padded date, digits-only phone).
func (r *CreateAppointmentRequest) Validate(ref time.Time) error {
	r.Service = strings.ToUpper(strings.TrimSpace(r.Service))
	if r.Service == "" || !ValidService(Service(r.Service)) {
		return ErrInvalidService
	}

	r.Date = strings.TrimSpace(r.Date)
	day, err := time.Parse(DateLayout, r.Date)
	if err != nil {
		// Accept non-padded input and normalize it.
		day, err = time.Parse("2006-1-2", r.Date)
		if err != nil {
			return ErrInvalidDate
		}
	}
	r.Date = day.Format(DateLayout)
	today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(today) {
		return ErrPastDate
	}

	r.Time = NormalizeTime(strings.TrimSpace(r.Time))
	if !ValidTimeSlot(r.Time) {
		return ErrInvalidTime
	}

	// Email is required. The original form labelled it optional but the
	// submit path rejected an empty value; the stricter rule is kept.
	r.PatientEmail = strings.TrimSpace(r.PatientEmail)
	if r.PatientEmail == "" {
		return ErrMissingEmail
	}
	if !emailPattern.MatchString(r.PatientEmail) {
		return ErrInvalidEmail
	}

	r.PatientPhone = NormalizePhone(r.PatientPhone)
	if len(r.PatientPhone) != 9 {
		return ErrInvalidPhone
	}

	r.PatientName = strings.TrimSpace(r.PatientName)
	if r.PatientName == "" {
		return ErrMissingName
	}

	r.Notes = strings.TrimSpace(r.Notes)
	return nil
}

// UpdateAppointmentRequest carries admin edits. Nil fields are unchanged.
type UpdateAppointmentRequest struct {
	PatientName  *string `json:"patient_name,omitempty"`
	PatientEmail *string `json:"patient_email,omitempty"`
	PatientPhone *string `json:"patient_phone,omitempty"`
	Service      *string `json:"service,omitempty"`
	Date         *string `json:"appointment_date,omitempty"`
	Time         *string `json:"appointment_time,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

// ListFilter narrows admin listings.
type ListFilter struct {
	Status Status // empty means all
	Search string // matches patient name, email or phone
	Limit  int
	Offset int
}

// DayCounts aggregates one calendar day for the admin calendar view.
type DayCounts struct {
	Date       string `json:"date"`
	Pendiente  int    `json:"pendiente"`
	Confirmada int    `json:"confirmada"`
	Completada int    `json:"completada"`
	Cancelada  int    `json:"cancelada"`
}
