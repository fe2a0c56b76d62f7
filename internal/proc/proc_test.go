package proc

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

// A PID far above any realistic pid_max, so it can never be live.
const deadPID = 999999999

func TestAlive_Self(t *testing.T) {
	assert.True(t, Alive(os.Getpid()))
}

func TestAlive_DeadPID(t *testing.T) {
	assert.False(t, Alive(deadPID))
}

func TestAlive_InvalidPID(t *testing.T) {
	assert.False(t, Alive(0))
	assert.False(t, Alive(-1))
}

func TestDescribe_Self(t *testing.T) {
	desc := Describe(os.Getpid())
	assert.NotEmpty(t, desc)
}

func TestDescribe_DeadPID(t *testing.T) {
	assert.Empty(t, Describe(deadPID))
}
