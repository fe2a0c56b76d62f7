// Package proc answers liveness questions about process IDs found in lock
// and PID files. It is the tool's view of the process table.
package proc

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Alive reports whether pid refers to a live process. Invalid PIDs and
// lookup failures count as not alive: a lock that cannot be tied to a live
// process is a stale lock.
func Alive(pid int) bool {
	exists, err := process.PidExists(int32(pid))
	return err == nil && exists
}

// Describe returns a short human-readable description of a live process for
// report and status output, e.g. "converge, started 2026-08-25 12:00:05".
// Returns "" when the process is gone or cannot be inspected.
func Describe(pid int) string {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}

	name, err := p.Name()
	if err != nil || name == "" {
		return ""
	}

	if created, err := p.CreateTime(); err == nil && created > 0 {
		started := time.UnixMilli(created).Format("2006-01-02 15:04:05")
		return fmt.Sprintf("%s, started %s", name, started)
	}
	return name
}
