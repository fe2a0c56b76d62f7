package control

import (
	"context"
	"errors"
	"fmt"

	"github.com/convergeops/convergectl/internal/lockfile"
)

// Run performs a one-off agent run, passing args through untouched.
// The returned code is the agent's own exit code, which the command
// layer mirrors as the process exit code.
func (c *Controller) Run(ctx context.Context, args []string) (int, error) {
	start := c.now()
	code, err := c.runner.RunOnce(ctx, c.newRunID(), args)
	if err != nil {
		return code, err
	}

	if c.rec != nil && c.cfg.MetricsTextfileDir != "" {
		c.rec.ObserveRun(code, c.now().Sub(start), c.now())
	}
	c.flushMetrics()
	return code, nil
}

// LockedRun runs the agent once on a disabled instance, then puts the
// disable back: the prior operator message is snapshotted, the lock
// removed for the duration of the run, and restored afterwards no
// matter how the run went. Exits with the run's code once the lock is
// back; a failed restore trumps the run result.
func (c *Controller) LockedRun(ctx context.Context, args []string) (int, error) {
	var priorMessage, priorOwner string

	lk, err := c.lock.Read()
	switch {
	case errors.Is(err, lockfile.ErrNotLocked):
		// Not disabled; behave like run but leave a disable behind,
		// which is what the operator asked for.
	case err != nil:
		return 1, err
	case lk.Kind == lockfile.KindPID:
		if c.alive(lk.PID) {
			return 1, fmt.Errorf("an agent run is already in progress (pid %d)", lk.PID)
		}
		// Stale run marker carries no reason worth restoring.
	default:
		priorMessage = lk.Message
		priorOwner = c.lock.Owner()
	}

	if err := c.lock.Remove(); err != nil {
		return 1, err
	}

	start := c.now()
	code, runErr := c.runner.RunOnce(ctx, c.newRunID(), args)
	duration := c.now().Sub(start)

	message := priorMessage
	user := c.user(ctx)
	if message == "" {
		message = fmt.Sprintf("Disabled at %s by %s", c.now().Format("2006-01-02 15:04:05"), user)
	}
	owner := priorOwner
	if owner == "" {
		owner = user
	}

	if werr := c.lock.Write(message); werr != nil {
		return 1, fmt.Errorf("agent run finished (exit %d) but restoring the disable lock failed: %w", code, werr)
	}
	if werr := c.lock.WriteOwner(owner); werr != nil {
		c.log.Warn().Err(werr).Msg("lock restored but owner file failed")
	}
	fmt.Fprintf(c.out, "Disable lock restored: %s\n", message)

	if runErr != nil {
		return 1, runErr
	}

	if c.rec != nil && c.cfg.MetricsTextfileDir != "" {
		c.rec.ObserveRun(code, duration, c.now())
	}
	c.flushMetrics()
	return code, nil
}
