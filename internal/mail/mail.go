// Package mail delivers operator reports. Two transports exist: the
// classic system mail utility, and direct SMTP for hosts without a
// local MTA. Reports are plain text; delivery is best effort and
// failures surface as errors to the caller.
package mail

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Transport names accepted in configuration.
const (
	TransportCommand = "command"
	TransportSMTP    = "smtp"
)

// Message is a plain-text mail to a single recipient.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages to the site operators.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Config selects and configures the outgoing transport.
type Config struct {
	Transport string
	Command   string
	SMTP      SMTPConfig
}

// New builds the Mailer described by cfg. An empty transport means
// the command transport.
func New(cfg Config, logger zerolog.Logger) (Mailer, error) {
	switch cfg.Transport {
	case "", TransportCommand:
		return NewCommandMailer(cfg.Command, logger), nil
	case TransportSMTP:
		return NewSMTPMailer(cfg.SMTP, logger)
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
}
