package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/praxisfinder/therapy-platform/internal/observability/metrics"
	"github.com/praxisfinder/therapy-platform/internal/patients"
	"github.com/praxisfinder/therapy-platform/internal/therapists"
	"github.com/praxisfinder/therapy-platform/pkg/logging"
)

// Config holds notification service settings. OpsRecipients get a copy of
// every match summary for directory monitoring.
type Config struct {
	OpsRecipients []string
}

// Service composes an email sender with the message templates. All methods
// are best-effort from the caller's point of view; a returned error means at
// least one recipient was not reached.
type Service struct {
	email   EmailSender
	cfg     Config
	logger  *logging.Logger
	metrics *metrics.NotifyMetrics
}

// NewService creates a notification service.
func NewService(email EmailSender, cfg Config, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:  email,
		cfg:    cfg,
		logger: logger,
	}
}

// WithMetrics attaches notification metrics.
func (s *Service) WithMetrics(m *metrics.NotifyMetrics) *Service {
	s.metrics = m
	return s
}

// SendMatchSummary mails the patient their candidate list and the link to the
// match page, with copies to the configured ops recipients.
func (s *Service) SendMatchSummary(ctx context.Context, patient *patients.Patient, candidates []therapists.PublicView, quality, matchURL string) error {
	if s.email == nil {
		s.logger.Debug("notify: email sender not configured, skipping match summary")
		return nil
	}

	subject := "Ihre Therapeuten-Vorschläge sind da"
	if quality == "none" {
		subject = "Wir suchen weiter nach passenden Therapeut:innen"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Guten Tag %s,\n\n", patient.Name)
	if len(candidates) == 0 {
		b.WriteString("leider konnten wir aktuell keine passenden Therapeut:innen finden. " +
			"Wir melden uns, sobald neue Profile verfügbar sind.\n")
	} else {
		fmt.Fprintf(&b, "wir haben %d Therapeut:innen für Sie gefunden:\n\n", len(candidates))
		for _, c := range candidates {
			line := "- " + c.Name
			if c.City != "" {
				line += " (" + c.City + ")"
			}
			if len(c.Modalities) > 0 {
				line += " – " + strings.Join(c.Modalities, ", ")
			}
			b.WriteString(line + "\n")
		}
		if quality == "partial" {
			b.WriteString("\nEinige Vorschläge weichen in einzelnen Punkten von Ihren Wünschen ab.\n")
		}
		if matchURL != "" {
			fmt.Fprintf(&b, "\nIhre Vorschläge im Detail: %s\n", matchURL)
		}
	}
	b.WriteString("\nHerzliche Grüße\nIhr Praxisfinder-Team")

	recipients := append([]string{patient.Email}, s.cfg.OpsRecipients...)

	var errs []error
	for _, to := range recipients {
		msg := EmailMessage{
			To:      to,
			ToName:  patient.Name,
			Subject: subject,
			Body:    b.String(),
		}
		err := s.email.Send(ctx, msg)
		s.metrics.ObserveEmail("match_summary", err)
		if err != nil {
			s.logger.Error("notify: failed to send match summary", "error", err, "to", to)
			errs = append(errs, err)
			continue
		}
		s.logger.Info("notify: match summary sent", "to", to, "patient_id", patient.ID, "quality", quality)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d notification(s) failed", len(errs))
	}
	return nil
}

// SendContactRequest mails the therapist that a matched patient wants to be
// contacted.
func (s *Service) SendContactRequest(ctx context.Context, therapist *therapists.Therapist, patient *patients.Patient) error {
	if s.email == nil {
		s.logger.Debug("notify: email sender not configured, skipping contact request")
		return nil
	}
	if therapist.Email == "" {
		return fmt.Errorf("notify: therapist %s has no email address", therapist.ID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Guten Tag %s,\n\n", therapist.Name)
	fmt.Fprintf(&b, "%s möchte über Praxisfinder Kontakt mit Ihnen aufnehmen.\n\n", patient.Name)
	fmt.Fprintf(&b, "E-Mail: %s\n", patient.Email)
	if patient.Phone != "" {
		fmt.Fprintf(&b, "Telefon: %s\n", patient.Phone)
	}
	if len(patient.Specializations) > 0 {
		fmt.Fprintf(&b, "Anliegen: %s\n", strings.Join(patient.Specializations, ", "))
	}
	b.WriteString("\nBitte melden Sie sich innerhalb von zwei Werktagen zurück.\n")
	b.WriteString("\nHerzliche Grüße\nIhr Praxisfinder-Team")

	err := s.email.Send(ctx, EmailMessage{
		To:      therapist.Email,
		ToName:  therapist.Name,
		Subject: "Neue Kontaktanfrage über Praxisfinder",
		Body:    b.String(),
		ReplyTo: patient.Email,
	})
	s.metrics.ObserveEmail("contact_request", err)
	if err != nil {
		s.logger.Error("notify: failed to send contact request", "error", err, "therapist_id", therapist.ID)
		return fmt.Errorf("notify: 1 notification(s) failed")
	}

	s.logger.Info("notify: contact request sent", "therapist_id", therapist.ID, "patient_id", patient.ID)
	return nil
}
