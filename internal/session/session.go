// Package session resolves the operator behind the terminal session. The
// result is recorded in the lock-owner file and in default disable messages,
// so "who turned this off" survives sudo.
package session

import (
	"context"
	"os"
	"os/exec"
	"os/user"
	"strings"
)

// Resolver looks up the invoking operator. The zero value uses the real
// collaborators; fields exist so tests can substitute them.
type Resolver struct {
	// WhoAmI returns the `who am i` output for the controlling terminal.
	WhoAmI func(ctx context.Context) (string, error)
	// Getenv reads an environment variable.
	Getenv func(string) string
	// CurrentUser returns the process user.
	CurrentUser func() (*user.User, error)
}

// User resolves the operator name. Order: the terminal session owner from
// `who am i` (correct under sudo), then SUDO_USER, then the process user.
// Never empty: "unknown" is the last resort so disable always has a
// resolvable default message.
func (r Resolver) User(ctx context.Context) string {
	whoAmI := r.WhoAmI
	if whoAmI == nil {
		whoAmI = runWhoAmI
	}
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	currentUser := r.CurrentUser
	if currentUser == nil {
		currentUser = user.Current
	}

	if out, err := whoAmI(ctx); err == nil {
		if name := firstField(out); name != "" {
			return name
		}
	}

	if name := getenv("SUDO_USER"); name != "" {
		return name
	}

	if u, err := currentUser(); err == nil && u.Username != "" {
		return u.Username
	}

	return "unknown"
}

// runWhoAmI shells out to who(1). With no controlling terminal (cron, CI)
// the command prints nothing, which callers treat as "not resolvable here".
func runWhoAmI(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "who", "am", "i").Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// firstField extracts the user column from who(1) output.
func firstField(out string) string {
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
