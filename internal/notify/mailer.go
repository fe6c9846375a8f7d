package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopstock/stock-backend/pkg/config"
	"github.com/shopstock/stock-backend/pkg/logger"
	"github.com/wneessen/go-mail"
)

// Sender delivers a composed message.
type Sender interface {
	Send(ctx context.Context, msg Message, to []string) error
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	client *mail.Client
	from   string
	logger *logger.Logger
}

// NewSMTPMailer creates a mailer from the mail settings.
func NewSMTPMailer(cfg config.MailConfig, log *logger.Logger) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(tlsPolicy(cfg.TLS)),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From, logger: log}, nil
}

func tlsPolicy(name string) mail.TLSPolicy {
	switch name {
	case "none":
		return mail.NoTLS
	case "opportunistic":
		return mail.TLSOpportunistic
	default:
		return mail.TLSMandatory
	}
}

// Send delivers msg to every valid address in to. Invalid addresses are
// logged and dropped.
func (m *SMTPMailer) Send(ctx context.Context, msg Message, to []string) error {
	out := mail.NewMsg()
	if err := out.From(m.from); err != nil {
		return fmt.Errorf("invalid from address %q: %w", m.from, err)
	}

	valid := 0
	for _, addr := range to {
		if err := out.AddTo(addr); err != nil {
			m.logger.Error().Err(err).Str("address", addr).Msg("skipping invalid recipient")
			continue
		}
		valid++
	}
	if valid == 0 {
		return errors.New("no valid recipients")
	}

	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextPlain, msg.Text)
	out.AddAlternativeString(mail.TypeTextHTML, msg.HTML)

	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
