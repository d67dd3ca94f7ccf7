package mail

import (
	"context"

	domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
	"github.com/bryanwahyu/brainscan/internal/logging"
)

// LogNotifier writes emails to the log instead of sending them. Used when no
// SMTP relay is configured.
type LogNotifier struct {
	Log logging.Logger
}

func (n LogNotifier) Notify(ctx context.Context, e domain.Email) error {
	if n.Log == nil {
		return nil
	}
	n.Log.Info(ctx, "email not sent, smtp disabled", "to", e.To, "subject", e.Subject, "bytes", len(e.Body))
	return nil
}
