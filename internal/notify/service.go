package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/dentalespejo/clinic-platform/internal/appointments"
	"github.com/dentalespejo/clinic-platform/internal/clinic"
	"github.com/dentalespejo/clinic-platform/pkg/logging"
)

// SettingsSource yields the current clinic profile for email footers and the
// staff notice recipient.
type SettingsSource interface {
	Current(ctx context.Context) (clinic.Settings, error)
}

// ConfirmationService builds and sends the booking emails. It satisfies
// appointments.Notifier.
type ConfirmationService struct {
	sender   EmailSender
	settings SettingsSource
	logger   *logging.Logger
}

// NewConfirmationService creates the notification service.
func NewConfirmationService(sender EmailSender, settings SettingsSource, logger *logging.Logger) *ConfirmationService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ConfirmationService{sender: sender, settings: settings, logger: logger}
}

// SendBookingConfirmation emails the patient their appointment details.
func (s *ConfirmationService) SendBookingConfirmation(ctx context.Context, a *appointments.Appointment) error {
	info := s.clinicInfo(ctx)

	msg := EmailMessage{
		To:      a.PatientEmail,
		ToName:  a.PatientName,
		Subject: fmt.Sprintf("Confirmación de cita %d - %s", a.NumeroCita, info.Name),
		Body:    confirmationBody(a, info),
		HTML:    confirmationHTML(a, info),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: confirmation email: %w", err)
	}
	return nil
}

// SendStaffNotice emails the clinic inbox about a new booking, when a staff
// recipient is configured.
func (s *ConfirmationService) SendStaffNotice(ctx context.Context, a *appointments.Appointment) error {
	info := s.clinicInfo(ctx)
	if !info.NotifyStaff || info.StaffEmail == "" {
		return nil
	}

	msg := EmailMessage{
		To:      info.StaffEmail,
		ToName:  info.Name,
		Subject: fmt.Sprintf("Nueva cita %d: %s", a.NumeroCita, a.PatientName),
		Body:    staffNoticeBody(a),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: staff notice: %w", err)
	}
	return nil
}

func (s *ConfirmationService) clinicInfo(ctx context.Context) clinic.Settings {
	info, err := s.settings.Current(ctx)
	if err != nil {
		// Current falls back to defaults on store failures.
		s.logger.Warn("clinic settings lookup failed, using defaults", "error", err)
	}
	return info
}

func confirmationBody(a *appointments.Appointment, info clinic.Settings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Estimado/a %s,\n\n", a.PatientName)
	fmt.Fprintf(&b, "Nos complace confirmar su cita en %s:\n\n", info.Name)
	fmt.Fprintf(&b, "Número de cita: %d\n", a.NumeroCita)
	fmt.Fprintf(&b, "Fecha: %s\n", a.Date)
	fmt.Fprintf(&b, "Hora: %s\n", a.Time)
	fmt.Fprintf(&b, "Servicio: %s\n", a.Service)
	fmt.Fprintf(&b, "Teléfono: %s\n\n", a.PatientPhone)
	fmt.Fprintf(&b, "Observaciones: %s\n\n", a.Notes)
	b.WriteString("Por favor, llegue 10 minutos antes de su cita.\n\n")
	if info.Address != "" {
		fmt.Fprintf(&b, "Ubicación: %s\n", info.Address)
	}
	if info.Phone != "" {
		fmt.Fprintf(&b, "Teléfono: %s\n", info.Phone)
	}
	b.WriteString("\n¡Esperamos verle pronto!\n\nSaludos cordiales,\n")
	if info.Doctor != "" {
		b.WriteString(info.Doctor + "\n")
	}
	b.WriteString(info.Name + "\n")
	return b.String()
}

func confirmationHTML(a *appointments.Appointment, info clinic.Settings) string {
	var b strings.Builder
	b.WriteString("<html><body style=\"font-family:Arial,sans-serif;color:#333\">")
	fmt.Fprintf(&b, "<p>Estimado/a <strong>%s</strong>,</p>", html.EscapeString(a.PatientName))
	fmt.Fprintf(&b, "<p>Nos complace confirmar su cita en %s:</p>", html.EscapeString(info.Name))
	b.WriteString("<table cellpadding=\"4\">")
	fmt.Fprintf(&b, "<tr><td><strong>Número de cita</strong></td><td>%d</td></tr>", a.NumeroCita)
	fmt.Fprintf(&b, "<tr><td><strong>Fecha</strong></td><td>%s</td></tr>", a.Date)
	fmt.Fprintf(&b, "<tr><td><strong>Hora</strong></td><td>%s</td></tr>", a.Time)
	fmt.Fprintf(&b, "<tr><td><strong>Servicio</strong></td><td>%s</td></tr>", a.Service)
	fmt.Fprintf(&b, "<tr><td><strong>Teléfono</strong></td><td>%s</td></tr>", html.EscapeString(a.PatientPhone))
	fmt.Fprintf(&b, "<tr><td><strong>Observaciones</strong></td><td>%s</td></tr>", html.EscapeString(a.Notes))
	b.WriteString("</table>")
	b.WriteString("<p>Por favor, llegue 10 minutos antes de su cita.</p>")
	if info.Address != "" {
		fmt.Fprintf(&b, "<p><strong>Ubicación:</strong> %s</p>", html.EscapeString(info.Address))
	}
	if info.Phone != "" {
		fmt.Fprintf(&b, "<p><strong>Teléfono:</strong> %s</p>", html.EscapeString(info.Phone))
	}
	b.WriteString("<p>¡Esperamos verle pronto!</p>")
	fmt.Fprintf(&b, "<p>Saludos cordiales,<br>%s<br>%s</p>", html.EscapeString(info.Doctor), html.EscapeString(info.Name))
	b.WriteString("</body></html>")
	return b.String()
}

func staffNoticeBody(a *appointments.Appointment) string {
	var b strings.Builder
	b.WriteString("Se registró una nueva cita desde la web:\n\n")
	fmt.Fprintf(&b, "Número de cita: %d\n", a.NumeroCita)
	fmt.Fprintf(&b, "Paciente: %s\n", a.PatientName)
	fmt.Fprintf(&b, "Correo: %s\n", a.PatientEmail)
	fmt.Fprintf(&b, "Teléfono: %s\n", a.PatientPhone)
	fmt.Fprintf(&b, "Servicio: %s\n", a.Service)
	fmt.Fprintf(&b, "Fecha: %s\n", a.Date)
	fmt.Fprintf(&b, "Hora: %s\n", a.Time)
	fmt.Fprintf(&b, "Observaciones: %s\n", a.Notes)
	return b.String()
}
