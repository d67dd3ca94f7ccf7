package mail

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
)

// SMTPNotifier delivers emails through an SMTP relay.
type SMTPNotifier struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
	// TLS is disabled when false; used by tests and local relays like mailpit.
	TLS bool
}

func NewSMTP(host string, port int, username, password, from string) *SMTPNotifier {
	return &SMTPNotifier{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		Timeout:  15 * time.Second,
		TLS:      true,
	}
}

func (n *SMTPNotifier) Notify(ctx context.Context, e domain.Email) error {
	const op = "notify.smtp"

	msg := gomail.NewMsg()
	if err := msg.From(n.From); err != nil {
		return domain.E(domain.KindNotify, op, fmt.Errorf("from %q: %w", n.From, err))
	}
	if err := msg.To(e.To); err != nil {
		return domain.E(domain.KindNotify, op, fmt.Errorf("to %q: %w", e.To, err))
	}
	msg.Subject(e.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, e.Body)

	client, err := gomail.NewClient(n.Host, n.options()...)
	if err != nil {
		return domain.E(domain.KindNotify, op, err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return domain.E(domain.KindNotify, op, err)
	}
	return nil
}

func (n *SMTPNotifier) options() []gomail.Option {
	opts := []gomail.Option{gomail.WithPort(n.Port)}
	if n.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(n.Timeout))
	}
	if n.TLS {
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSOpportunistic))
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}
	if n.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(n.Username),
			gomail.WithPassword(n.Password),
		)
	}
	return opts
}
