package appointments

import "errors"

var (
	// Validation failures; each maps to one field on the booking form.
	ErrMissingName    = errors.New("el nombre es obligatorio")
	ErrMissingEmail   = errors.New("el correo electrónico es obligatorio")
	ErrInvalidEmail   = errors.New("el correo electrónico no es válido")
	ErrInvalidPhone   = errors.New("el teléfono debe tener exactamente 9 dígitos")
	ErrInvalidService = errors.New("selecciona un servicio válido")
	ErrInvalidDate    = errors.New("la fecha no es válida")
	ErrPastDate       = errors.New("la fecha no puede ser anterior a hoy")
	ErrInvalidTime    = errors.New("selecciona un horario válido")

	// ErrSlotTaken is returned when another active appointment already
	// occupies the requested date/time, whether detected by the pre-check
	// or by the unique index rejecting the insert.
	ErrSlotTaken = errors.New("ya existe una cita en este horario")

	// ErrNotFound is returned when an appointment id does not exist.
	ErrNotFound = errors.New("appointment not found")
)

// IsValidationError reports whether err is one of the field-level rules.
func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrMissingName),
		errors.Is(err, ErrMissingEmail),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrInvalidPhone),
		errors.Is(err, ErrInvalidService),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrPastDate),
		errors.Is(err, ErrInvalidTime):
		return true
	}
	return false
}

// FieldFor maps a validation error to the form field it belongs to.
func FieldFor(err error) string {
	switch {
	case errors.Is(err, ErrMissingName):
		return "patient_name"
	case errors.Is(err, ErrMissingEmail), errors.Is(err, ErrInvalidEmail):
		return "patient_email"
	case errors.Is(err, ErrInvalidPhone):
		return "patient_phone"
	case errors.Is(err, ErrInvalidService):
		return "service"
	case errors.Is(err, ErrInvalidDate), errors.Is(err, ErrPastDate):
		return "appointment_date"
	case errors.Is(err, ErrInvalidTime), errors.Is(err, ErrSlotTaken):
		return "appointment_time"
	}
	return ""
}
