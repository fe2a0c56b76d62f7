// Package control implements the convergectl operations: enabling and
// disabling scheduled agent runs through the lock file, reporting the
// disabled reason, one-off runs, status, and waiting for a run to
// finish.
//
// All operator-facing output goes to the controller's out writer
// (stdout in production); the structured log goes elsewhere. Returned
// errors are precondition or environment failures the command layer
// turns into a diagnostic and exit code 1.
package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/convergeops/convergectl/internal/config"
	"github.com/convergeops/convergectl/internal/lockfile"
	"github.com/convergeops/convergectl/internal/mail"
	"github.com/convergeops/convergectl/internal/proc"
	"github.com/convergeops/convergectl/internal/session"
	"github.com/convergeops/convergectl/pkg/metrics"
)

// Runner starts one-off agent runs. *agent.Invoker satisfies it.
type Runner interface {
	RunOnce(ctx context.Context, runID string, args []string) (int, error)
}

// Controller coordinates the lock file, the agent, the mailer and the
// process table. The func fields exist so tests can pin time, process
// liveness and the invoking user.
type Controller struct {
	cfg    *config.Config
	lock   *lockfile.Store
	runner Runner
	mailer mail.Mailer
	rec    *metrics.Recorder
	out    io.Writer
	log    zerolog.Logger

	now        func() time.Time
	alive      func(pid int) bool
	procDetail func(pid int) string
	user       func(ctx context.Context) string
	hostname   func() string
	newRunID   func() string
	waitPoll   time.Duration
}

// New wires a Controller with production collaborators. rec may be
// nil to disable metrics entirely.
func New(cfg *config.Config, lock *lockfile.Store, runner Runner, mailer mail.Mailer, rec *metrics.Recorder, out io.Writer, logger zerolog.Logger) *Controller {
	sess := session.Resolver{}
	return &Controller{
		cfg:    cfg,
		lock:   lock,
		runner: runner,
		mailer: mailer,
		rec:    rec,
		out:    out,
		log:    logger.With().Str("component", "control").Logger(),

		now:        time.Now,
		alive:      proc.Alive,
		procDetail: proc.Describe,
		user:       sess.User,
		hostname:   hostname,
		newRunID:   func() string { return uuid.New().String() },
		waitPoll:   2 * time.Second,
	}
}

func hostname() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "localhost"
	}
	return host
}

// Enable removes the disable lock. A lock naming a live agent process
// is left alone: the agent removes its own run marker when it
// finishes.
func (c *Controller) Enable(ctx context.Context) error {
	lk, err := c.lock.Read()
	if errors.Is(err, lockfile.ErrNotLocked) {
		fmt.Fprintln(c.out, "Scheduled agent runs are already enabled.")
		c.flushMetrics()
		return nil
	}
	if err != nil {
		return err
	}

	if lk.Kind == lockfile.KindPID {
		if c.alive(lk.PID) {
			fmt.Fprintf(c.out, "The agent is currently running (pid %d); leaving the lock in place.\n", lk.PID)
			return nil
		}
		fmt.Fprintf(c.out, "Removed stale lock left by pid %d.\n", lk.PID)
	}

	if err := c.lock.Remove(); err != nil {
		return err
	}
	c.removeStalePIDFile()

	c.log.Info().Str("op", "enable").Str("user", c.user(ctx)).Msg("scheduled runs enabled")
	fmt.Fprintln(c.out, "Scheduled agent runs enabled.")
	c.flushMetrics()
	return nil
}

// removeStalePIDFile clears an agent PID file whose process is gone.
// A PID file naming a live process is the agent's business and stays.
func (c *Controller) removeStalePIDFile() {
	pid, err := lockfile.ReadPIDFile(c.cfg.PIDFile)
	if err != nil || c.alive(pid) {
		return
	}
	if err := os.Remove(c.cfg.PIDFile); err != nil && !os.IsNotExist(err) {
		c.log.Warn().Err(err).Str("path", c.cfg.PIDFile).Msg("could not remove stale pid file")
		return
	}
	c.log.Debug().Int("pid", pid).Str("path", c.cfg.PIDFile).Msg("removed stale pid file")
}

// Disable writes the lock with message, or with a timestamped default
// naming the invoking operator. An existing lock is printed and kept;
// disable never overwrites.
func (c *Controller) Disable(ctx context.Context, message string) error {
	lk, err := c.lock.Read()
	if err == nil {
		c.printAlreadyDisabled(lk)
		return nil
	}
	if !errors.Is(err, lockfile.ErrNotLocked) {
		return err
	}

	user := c.user(ctx)
	if message == "" {
		message = fmt.Sprintf("Disabled at %s by %s", c.now().Format("2006-01-02 15:04:05"), user)
	}

	if err := c.lock.Write(message); err != nil {
		if errors.Is(err, lockfile.ErrLockHeld) {
			// Lost the creation race; whoever won owns the reason.
			if lk, rerr := c.lock.Read(); rerr == nil {
				c.printAlreadyDisabled(lk)
				return nil
			}
		}
		return err
	}
	if err := c.lock.WriteOwner(user); err != nil {
		c.log.Warn().Err(err).Msg("lock written but owner file failed")
	}

	c.log.Info().Str("op", "disable").Str("user", user).Str("message", message).Msg("scheduled runs disabled")
	fmt.Fprintf(c.out, "Scheduled agent runs disabled: %s\n", message)
	c.flushMetrics()
	return nil
}

func (c *Controller) printAlreadyDisabled(lk lockfile.Lock) {
	fmt.Fprintln(c.out, "Scheduled agent runs are already disabled:")
	switch lk.Kind {
	case lockfile.KindPID:
		if c.alive(lk.PID) {
			fmt.Fprintf(c.out, "  a run is in progress (pid %d)\n", lk.PID)
		} else {
			fmt.Fprintf(c.out, "  stale lock held by pid %d (process gone)\n", lk.PID)
		}
	default:
		if lk.Message == "" {
			fmt.Fprintln(c.out, "  no reason was given")
		} else {
			fmt.Fprintf(c.out, "  reason: %s\n", lk.Message)
		}
		if owner := c.lock.Owner(); owner != "" {
			fmt.Fprintf(c.out, "  owner: %s\n", owner)
		}
	}
}

// flushMetrics rewrites the textfile with the current disabled state.
// Metrics never change an operation's outcome.
func (c *Controller) flushMetrics() {
	if c.rec == nil || c.cfg.MetricsTextfileDir == "" {
		return
	}
	c.rec.SetDisabled(c.lock.Exists())
	if err := c.rec.WriteTextfile(c.cfg.MetricsTextfileDir); err != nil {
		c.log.Warn().Err(err).Msg("metrics textfile write failed")
	}
}
