package mail

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// CommandMailer pipes the message body to the system mail utility,
// the traditional `mail -s <subject> <recipient>` contract.
type CommandMailer struct {
	command string
	log     zerolog.Logger
}

// NewCommandMailer returns a mailer that shells out to command, or to
// "mail" when command is empty.
func NewCommandMailer(command string, logger zerolog.Logger) *CommandMailer {
	if command == "" {
		command = "mail"
	}
	return &CommandMailer{
		command: command,
		log:     logger.With().Str("component", "mail").Str("transport", TransportCommand).Logger(),
	}
}

// Send pipes msg.Body to the mail utility. The utility's combined
// output is folded into the error on failure since mail(1) tends to
// print its reason rather than use distinct exit codes.
func (m *CommandMailer) Send(ctx context.Context, msg Message) error {
	cmd := exec.CommandContext(ctx, m.command, "-s", msg.Subject, msg.To)
	cmd.Stdin = strings.NewReader(msg.Body)

	out, err := cmd.CombinedOutput()
	if err != nil {
		if trimmed := strings.TrimSpace(string(out)); trimmed != "" {
			return fmt.Errorf("%s failed: %w: %s", m.command, err, trimmed)
		}
		return fmt.Errorf("%s failed: %w", m.command, err)
	}

	m.log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("mail handed to utility")
	return nil
}
