package control

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/convergeops/convergectl/internal/lockfile"
	"github.com/convergeops/convergectl/internal/mail"
)

// Report mails the disabled reason to recipient, falling back to the
// configured admin address. With no lock present nothing is sent.
func (c *Controller) Report(ctx context.Context, recipient string) error {
	lk, err := c.lock.Read()
	if errors.Is(err, lockfile.ErrNotLocked) {
		fmt.Fprintln(c.out, "Scheduled agent runs are enabled; nothing to report.")
		return nil
	}
	if err != nil {
		return err
	}

	if recipient == "" {
		recipient = c.cfg.AdminEmail
	}
	if recipient == "" {
		return errors.New("no report recipient: use -t or set admin_email")
	}

	subject, body := c.composeReport(lk)
	if err := c.mailer.Send(ctx, mail.Message{To: recipient, Subject: subject, Body: body}); err != nil {
		return fmt.Errorf("sending report: %w", err)
	}

	c.log.Info().Str("op", "report").Str("to", recipient).Msg("report sent")
	fmt.Fprintf(c.out, "Report sent to %s.\n", recipient)
	return nil
}

// composeReport qualifies the lock content: an operator message is
// relayed with its owner, a PID marker is checked against the process
// table to tell an active run from a crashed one.
func (c *Controller) composeReport(lk lockfile.Lock) (subject, body string) {
	host := c.hostname()
	var b strings.Builder

	switch lk.Kind {
	case lockfile.KindPID:
		if c.alive(lk.PID) {
			subject = fmt.Sprintf("converge agent run in progress on %s", host)
			if detail := c.procDetail(lk.PID); detail != "" {
				fmt.Fprintf(&b, "An agent run is in progress (pid %d: %s).\n", lk.PID, detail)
			} else {
				fmt.Fprintf(&b, "An agent run is in progress (pid %d).\n", lk.PID)
			}
		} else {
			subject = fmt.Sprintf("converge agent possibly stuck on %s", host)
			fmt.Fprintf(&b, "WARNING: the lock file names pid %d, which is no longer running.\n", lk.PID)
			b.WriteString("The agent may have crashed mid-run; scheduled runs stay disabled until the lock is removed.\n")
		}
	default:
		subject = fmt.Sprintf("converge agent disabled on %s", host)
		if lk.Message == "" {
			b.WriteString("WARNING: scheduled agent runs are disabled with no reason given.\n")
		} else {
			fmt.Fprintf(&b, "Scheduled agent runs are disabled: %s\n", lk.Message)
		}
		if owner := c.lock.Owner(); owner != "" {
			fmt.Fprintf(&b, "Disabled by: %s\n", owner)
		}
	}

	if since, err := c.lock.ModTime(); err == nil {
		fmt.Fprintf(&b, "Since: %s\n", since.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(&b, "Lock file: %s\n", c.lock.Path())

	return subject, b.String()
}
