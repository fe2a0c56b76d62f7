// Package agent invokes the converge agent binary on behalf of the
// control tool: one-off convergence runs and configuration queries.
// The agent itself is a black box; all interaction goes through its
// command line.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// OneShotFlag forces a single convergence run instead of the agent's
// daemon mode. It is prepended to every run started by the control
// tool so operator-supplied arguments cannot undo it.
const OneShotFlag = "--once"

// RunIDEnv carries the run identifier into the agent's environment so
// its reports can be correlated with the invoking operator session.
const RunIDEnv = "CONVERGECTL_RUN_ID"

// Invoker shells out to the agent binary. Stdout and stderr of runs
// are streamed to the configured writers so the operator sees agent
// output live.
type Invoker struct {
	bin    string
	stdout io.Writer
	stderr io.Writer
	log    zerolog.Logger
}

// New returns an Invoker for the agent at bin. Run output is streamed
// to stdout and stderr.
func New(bin string, stdout, stderr io.Writer, logger zerolog.Logger) *Invoker {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Invoker{
		bin:    bin,
		stdout: stdout,
		stderr: stderr,
		log:    logger.With().Str("component", "agent").Logger(),
	}
}

// RunOnce performs a single convergence run, forwarding args to the
// agent after the one-shot flag. It returns the agent's exit code; a
// non-zero code is not an error, it is the run's result. The returned
// error covers only failures to start the agent at all.
func (i *Invoker) RunOnce(ctx context.Context, runID string, args []string) (int, error) {
	argv := append([]string{"agent", OneShotFlag}, args...)

	cmd := exec.CommandContext(ctx, i.bin, argv...)
	cmd.Stdout = i.stdout
	cmd.Stderr = i.stderr
	cmd.Env = append(os.Environ(), fmt.Sprintf("%s=%s", RunIDEnv, runID))

	i.log.Info().
		Str("run_id", runID).
		Str("bin", i.bin).
		Strs("args", args).
		Msg("starting agent run")

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if err == nil {
		i.log.Info().
			Str("run_id", runID).
			Dur("duration", duration).
			Msg("agent run succeeded")
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// Killed by a signal; there is no exit code to mirror.
			code = 1
		}
		i.log.Warn().
			Str("run_id", runID).
			Int("exit_code", code).
			Dur("duration", duration).
			Msg("agent run failed")
		return code, nil
	}

	return 1, fmt.Errorf("starting agent %s: %w", i.bin, err)
}

// ConfigPrint asks the agent for one of its effective configuration
// values via `agent --configprint <key>` and returns the trimmed
// output. An empty value with a nil error means the agent does not
// set the key.
func (i *Invoker) ConfigPrint(ctx context.Context, key string) (string, error) {
	cmd := exec.CommandContext(ctx, i.bin, "agent", "--configprint", key)

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("querying agent for %s: %w", key, err)
	}

	value := strings.TrimSpace(string(out))
	i.log.Debug().Str("key", key).Str("value", value).Msg("agent config queried")
	return value, nil
}
