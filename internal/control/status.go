package control

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/convergeops/convergectl/internal/lockfile"
)

// StatusInfo is the control state as displayed by the status command.
type StatusInfo struct {
	// State is "enabled" or "locked", tracking lock file existence
	// exactly.
	State    string `json:"state"`
	Disabled bool   `json:"disabled"`
	LockFile string `json:"lock_file"`

	// Message and Owner describe an operator disable.
	Message string `json:"message,omitempty"`
	Owner   string `json:"owner,omitempty"`

	// LockPID describes a run-marker lock.
	LockPID      int    `json:"lock_pid,omitempty"`
	LockPIDAlive bool   `json:"lock_pid_alive,omitempty"`
	Process      string `json:"process,omitempty"`

	// Since is the lock file's mtime, when the disable took effect.
	Since *time.Time `json:"since,omitempty"`

	// NextRun is the next scheduled agent run, enabled state only.
	NextRun *time.Time `json:"next_run,omitempty"`

	// AgentPID is set when the agent's PID file names a live process.
	AgentPID int `json:"agent_pid,omitempty"`
}

// Status reads the lock and PID files fresh on every call.
func (c *Controller) Status(ctx context.Context) (*StatusInfo, error) {
	info := &StatusInfo{LockFile: c.lock.Path()}

	lk, err := c.lock.Read()
	switch {
	case errors.Is(err, lockfile.ErrNotLocked):
		info.State = "enabled"
		if c.cfg.Schedule != "" {
			if sched, perr := cron.ParseStandard(c.cfg.Schedule); perr == nil {
				next := sched.Next(c.now())
				info.NextRun = &next
			}
		}
	case err != nil:
		return nil, err
	default:
		info.State = "locked"
		info.Disabled = true
		if since, serr := c.lock.ModTime(); serr == nil {
			info.Since = &since
		}
		switch lk.Kind {
		case lockfile.KindPID:
			info.LockPID = lk.PID
			info.LockPIDAlive = c.alive(lk.PID)
			if info.LockPIDAlive {
				info.Process = c.procDetail(lk.PID)
			}
		default:
			info.Message = lk.Message
			info.Owner = c.lock.Owner()
		}
	}

	if pid, perr := lockfile.ReadPIDFile(c.cfg.PIDFile); perr == nil && c.alive(pid) {
		info.AgentPID = pid
	}

	return info, nil
}

// Wait blocks until no agent run is in progress, or until timeout
// (zero means wait forever). Filesystem events on the lock and PID
// file directories wake the check early; a poll tick catches a
// process that died without cleaning up.
func (c *Controller) Wait(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if !c.runInProgress() {
		fmt.Fprintln(c.out, "No agent run in progress.")
		return nil
	}
	fmt.Fprintln(c.out, "Waiting for the agent run to finish...")

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	if watcher, err := fsnotify.NewWatcher(); err == nil {
		defer watcher.Close()
		dirs := map[string]struct{}{
			filepath.Dir(c.lock.Path()): {},
			filepath.Dir(c.cfg.PIDFile): {},
		}
		for dir := range dirs {
			if werr := watcher.Add(dir); werr != nil {
				c.log.Debug().Err(werr).Str("dir", dir).Msg("watch failed, relying on polling")
			}
		}
		events = watcher.Events
		watchErrs = watcher.Errors
	} else {
		c.log.Debug().Err(err).Msg("fsnotify unavailable, relying on polling")
	}

	ticker := time.NewTicker(c.waitPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return errors.New("timed out waiting for the agent run to finish")
			}
			return ctx.Err()
		case <-ticker.C:
		case <-events:
		case werr := <-watchErrs:
			c.log.Debug().Err(werr).Msg("watch error")
		}

		if !c.runInProgress() {
			fmt.Fprintln(c.out, "Agent run finished.")
			return nil
		}
	}
}

// runInProgress is true when either the lock file carries a live run
// marker or the agent's PID file names a live process.
func (c *Controller) runInProgress() bool {
	if lk, err := c.lock.Read(); err == nil && lk.Kind == lockfile.KindPID && c.alive(lk.PID) {
		return true
	}
	if pid, err := lockfile.ReadPIDFile(c.cfg.PIDFile); err == nil && c.alive(pid) {
		return true
	}
	return false
}
