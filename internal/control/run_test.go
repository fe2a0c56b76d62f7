package control

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convergeops/convergectl/internal/lockfile"
)

func TestRun_MirrorsAgentExitCode(t *testing.T) {
	env := newTestEnv(t)
	env.runner.code = 2

	code, err := env.ctl.Run(context.Background(), []string{"--noop", "--verbose"})
	require.NoError(t, err)
	assert.Equal(t, 2, code)

	require.Len(t, env.runner.calls, 1)
	assert.Equal(t, []string{"--noop", "--verbose"}, env.runner.calls[0])
	assert.Equal(t, []string{"run-test"}, env.runner.runIDs)
}

func TestRun_StartFailure(t *testing.T) {
	env := newTestEnv(t)
	env.runner.code = 1
	env.runner.err = errors.New("no such binary")

	code, err := env.ctl.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, code)
}

func TestRun_DoesNotTouchLockState(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.lock.Write("maintenance"))

	_, err := env.ctl.Run(context.Background(), nil)
	require.NoError(t, err)

	lk, err := env.lock.Read()
	require.NoError(t, err)
	assert.Equal(t, "maintenance", lk.Message)
}

func TestLockedRun_RestoresPriorMessage(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.lock.Write("kernel upgrade in progress"))
	require.NoError(t, env.lock.WriteOwner("bob"))

	code, err := env.ctl.LockedRun(context.Background(), []string{"--noop"})
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	lk, err := env.lock.Read()
	require.NoError(t, err)
	assert.Equal(t, "kernel upgrade in progress", lk.Message)
	assert.Equal(t, "bob", env.lock.Owner(), "prior owner survives the cycle")
	assert.Contains(t, env.out.String(), "Disable lock restored")
	require.Len(t, env.runner.calls, 1)
	assert.Equal(t, []string{"--noop"}, env.runner.calls[0])
}

func TestLockedRun_RestoresEvenWhenRunFails(t *testing.T) {
	env := newTestEnv(t)
	env.runner.code = 4
	require.NoError(t, env.lock.Write("maintenance"))

	code, err := env.ctl.LockedRun(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, code, "exit mirrors the failed run after the lock is back")

	lk, err := env.lock.Read()
	require.NoError(t, err)
	assert.Equal(t, "maintenance", lk.Message)
}

func TestLockedRun_DefaultDisableWhenNoPrior(t *testing.T) {
	env := newTestEnv(t)

	code, err := env.ctl.LockedRun(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	lk, err := env.lock.Read()
	require.NoError(t, err)
	assert.Equal(t, "Disabled at 2025-06-01 12:00:00 by alice", lk.Message)
	assert.Equal(t, "alice", env.lock.Owner())
}

func TestLockedRun_RefusesLiveRunMarker(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.lock.Write("4242"))
	env.setAlive(4242, true)

	code, err := env.ctl.LockedRun(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, code)
	assert.Empty(t, env.runner.calls, "no second run while one is in progress")

	lk, rerr := env.lock.Read()
	require.NoError(t, rerr)
	assert.Equal(t, lockfile.KindPID, lk.Kind)
	assert.Equal(t, 4242, lk.PID)
}

func TestLockedRun_StaleMarkerRestoredAsDefault(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.lock.Write("4242"))

	code, err := env.ctl.LockedRun(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	lk, err := env.lock.Read()
	require.NoError(t, err)
	assert.Equal(t, lockfile.KindMessage, lk.Kind, "a dead pid is not worth restoring")
	assert.Equal(t, "Disabled at 2025-06-01 12:00:00 by alice", lk.Message)
}

func TestLockedRun_StartFailureStillRestores(t *testing.T) {
	env := newTestEnv(t)
	env.runner.code = 1
	env.runner.err = errors.New("no such binary")
	require.NoError(t, env.lock.Write("maintenance"))

	code, err := env.ctl.LockedRun(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, code)

	lk, rerr := env.lock.Read()
	require.NoError(t, rerr)
	assert.Equal(t, "maintenance", lk.Message, "lock comes back even when the agent never started")
}
