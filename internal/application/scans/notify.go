package scans

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
	"github.com/bryanwahyu/brainscan/internal/domain/scanerrors"
	"github.com/bryanwahyu/brainscan/internal/logging"
)

const notificationSubject = "Your BrainScan Analysis is Ready!"

var notificationBody = template.Must(template.New("scan-ready").Parse(`Hello {{.Name}},

Your brain scan has been analyzed by our AI system.

Analysis Results:
{{.Diagnosis}}

Confidence Level: {{.Confidence}}%

Thank you for using BrainScan!

Best regards,
BrainScan Team
`))

// BuildNotification renders the "analysis ready" email for rec.
func BuildNotification(owner domain.Owner, rec *domain.ScanRecord) (domain.Email, error) {
	name := strings.TrimSpace(owner.FirstName)
	if name == "" {
		name = owner.DisplayName()
	}

	var body strings.Builder
	err := notificationBody.Execute(&body, struct {
		Name       string
		Diagnosis  string
		Confidence string
	}{
		Name:       name,
		Diagnosis:  rec.DiagnosisText,
		Confidence: fmt.Sprintf("%.1f", rec.Confidence*100),
	})
	if err != nil {
		return domain.Email{}, domain.E(domain.KindNotify, "notify.render", err)
	}
	return domain.Email{To: owner.Email, Subject: notificationSubject, Body: body.String()}, nil
}

// dispatchNotification sends the email on its own goroutine. The caller never
// waits for it; the outcome is logged, counted and, on failure, journaled.
func (s *Service) dispatchNotification(ctx context.Context, log logging.Logger, owner domain.Owner, rec *domain.ScanRecord) {
	if s.Notifier == nil || strings.TrimSpace(owner.Email) == "" {
		log.Debug(ctx, "notification skipped", "reason", "no notifier or recipient")
		return
	}

	email, err := BuildNotification(owner, rec)
	if err != nil {
		s.notifyOutcome(ctx, log, owner.ID, rec.ID, err)
		return
	}

	ctx = context.WithoutCancel(ctx)
	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()

		nctx, cancel := context.WithTimeout(ctx, s.notifyTimeout())
		defer cancel()

		err := s.Notifier.Notify(nctx, email)
		if err != nil {
			err = domain.E(domain.KindNotify, "notify.send", err)
		}
		s.notifyOutcome(ctx, log, owner.ID, rec.ID, err)
	}()
}

func (s *Service) notifyOutcome(ctx context.Context, log logging.Logger, ownerID string, id domain.ScanID, err error) {
	if s.Metrics != nil {
		s.Metrics.Notified(err == nil)
	}
	if err == nil {
		log.Info(ctx, "notification sent")
		return
	}
	log.Warn(ctx, "notification failed", "error", err)
	s.journal(ctx, log, ownerID, id, scanerrors.StageNotify, err)
}
