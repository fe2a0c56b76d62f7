package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gaugeValue digs a plain gauge out of the registry.
func gaugeValue(t *testing.T, r *Recorder, name string) float64 {
	t.Helper()
	families, err := r.Registry().Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() == name {
			require.Len(t, fam.GetMetric(), 1)
			return fam.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

func TestRecorder_SetDisabled(t *testing.T) {
	r := NewRecorder()

	r.SetDisabled(true)
	assert.Equal(t, 1.0, gaugeValue(t, r, "convergectl_agent_disabled"))

	r.SetDisabled(false)
	assert.Equal(t, 0.0, gaugeValue(t, r, "convergectl_agent_disabled"))
}

func TestRecorder_ObserveRun(t *testing.T) {
	r := NewRecorder()

	finished := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.ObserveRun(2, 42500*time.Millisecond, finished)

	assert.Equal(t, 2.0, gaugeValue(t, r, "convergectl_last_run_exit_code"))
	assert.Equal(t, 42.5, gaugeValue(t, r, "convergectl_last_run_duration_seconds"))
	assert.Equal(t, float64(finished.Unix()), gaugeValue(t, r, "convergectl_last_run_timestamp_seconds"))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.SetDisabled(true)
	r.ObserveRun(0, 10*time.Second, time.Now())

	dir := t.TempDir()
	require.NoError(t, r.WriteTextfile(dir))

	data, err := os.ReadFile(filepath.Join(dir, TextfileName))
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "# HELP convergectl_agent_disabled")
	assert.Contains(t, out, "convergectl_agent_disabled 1")
	assert.Contains(t, out, "convergectl_last_run_exit_code 0")
	assert.Contains(t, out, "convergectl_last_run_duration_seconds 10")
	assert.Contains(t, out, "convergectl_last_run_timestamp_seconds")
}

func TestRecorder_WriteTextfileCreatesDirectory(t *testing.T) {
	r := NewRecorder()
	dir := filepath.Join(t.TempDir(), "node_exporter", "textfile")

	require.NoError(t, r.WriteTextfile(dir))

	_, err := os.Stat(filepath.Join(dir, TextfileName))
	assert.NoError(t, err)
}

func TestRecorder_LoadTextfileSeedsGauges(t *testing.T) {
	dir := t.TempDir()

	old := NewRecorder()
	old.SetDisabled(true)
	old.ObserveRun(2, 90*time.Second, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, old.WriteTextfile(dir))

	fresh := NewRecorder()
	require.NoError(t, fresh.LoadTextfile(dir))

	assert.Equal(t, 1.0, gaugeValue(t, fresh, "convergectl_agent_disabled"))
	assert.Equal(t, 2.0, gaugeValue(t, fresh, "convergectl_last_run_exit_code"))
	assert.Equal(t, 90.0, gaugeValue(t, fresh, "convergectl_last_run_duration_seconds"))
}

func TestRecorder_LoadTextfileMissingIsFine(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.LoadTextfile(t.TempDir()))
	assert.Equal(t, 0.0, gaugeValue(t, r, "convergectl_agent_disabled"))
}
