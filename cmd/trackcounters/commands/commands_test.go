package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/trackcounters/internal/domain/entities"
	"github.com/taskmaster/trackcounters/internal/infrastructure/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func tracksFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracks.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBackfillCommandRewritesFile(t *testing.T) {
	path := tracksFile(t, `{"tracks":[{"name":"A"},{"name":"B","likes":5}]}`)

	out, err := execute(t, "backfill", "--file", path, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "2 tracks, 2 updated (likes added: 1, dislikes added: 2)")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"tracks\": [\n    {\n      \"name\": \"A\",\n      \"likes\": 0,\n      \"dislikes\": 0\n    },\n    {\n      \"name\": \"B\",\n      \"likes\": 5,\n      \"dislikes\": 0\n    }\n  ]\n}", string(data))
}

func TestBackfillCommandCompactOutputPath(t *testing.T) {
	path := tracksFile(t, `{"tracks":[{"name":"A"}]}`)
	target := filepath.Join(filepath.Dir(path), "out.json")

	_, err := execute(t, "backfill", "-f", path, "-o", target, "--indent", "0", "--atomic", "--log-level", "error")
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, `{"tracks":[{"name":"A","likes":0,"dislikes":0}]}`, string(data))
}

func TestBackfillCommandFailsOnMissingFile(t *testing.T) {
	_, err := execute(t, "backfill", "--file", filepath.Join(t.TempDir(), "nope.json"), "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.json")
}

func TestBackfillCommandWritesMetrics(t *testing.T) {
	path := tracksFile(t, `{"tracks":[{"name":"A"}]}`)
	promPath := filepath.Join(filepath.Dir(path), "trackcounters.prom")
	t.Setenv("ENABLE_METRICS", "true")
	t.Setenv("METRICS_TEXTFILE_PATH", promPath)

	_, err := execute(t, "backfill", "--file", path, "--log-level", "error")
	require.NoError(t, err)

	data, err := os.ReadFile(promPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "trackcounters_tracks_processed_total 1")
}

func TestCheckCommandLeavesFileAlone(t *testing.T) {
	content := `{"tracks":[{"name":"A"},{"likes":1,"dislikes":1}]}`
	path := tracksFile(t, content)

	out, err := execute(t, "check", "--file", path, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Tracks: 2")
	assert.Contains(t, out, "Missing likes: 1")
	assert.Contains(t, out, "Missing dislikes: 1")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestCheckCommandJSONReport(t *testing.T) {
	path := tracksFile(t, `{"tracks":[{"name":"A"},{"name":"B","likes":3}]}`)

	out, err := execute(t, "check", "--file", path, "--json", "--log-level", "error")
	require.NoError(t, err)

	var report entities.BackfillReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, entities.BackfillReport{TotalTracks: 2, TracksChanged: 2, LikesAdded: 1, DislikesAdded: 2}, report)
	assert.Contains(t, out, "\n  \"likes_added\": 1,")
}

func TestCheckCommandStrict(t *testing.T) {
	path := tracksFile(t, `{"tracks":[{"name":"A"}]}`)

	_, err := execute(t, "check", "--file", path, "--strict", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 tracks are missing counters")

	_, err = execute(t, "backfill", "--file", path, "--log-level", "error")
	require.NoError(t, err)

	_, err = execute(t, "check", "--file", path, "--strict", "--log-level", "error")
	require.NoError(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "trackcounters v"+config.DefaultVersion)
	assert.Contains(t, out, "Environment: development")
}

func TestVersionCommandUsesAppConfig(t *testing.T) {
	t.Setenv("APP_NAME", "library-backfill")
	t.Setenv("APP_VERSION", "2.3.0")
	t.Setenv("APP_ENVIRONMENT", "production")

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "library-backfill v2.3.0")
	assert.Contains(t, out, "Environment: production")
}

func TestBackfillCommandLogsAppInfoAtStart(t *testing.T) {
	path := tracksFile(t, `{"tracks":[{"name":"A"}]}`)
	logPath := filepath.Join(filepath.Dir(path), "trackcounters.log")
	t.Setenv("LOG_OUTPUT", "file")
	t.Setenv("LOG_FILENAME", logPath)
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("APP_ENVIRONMENT", "staging")

	_, err := execute(t, "backfill", "--file", path)
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)

	var start map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == "Starting trackcounters" {
			start = entry
			break
		}
	}
	require.NotNil(t, start, "no start entry in %s", data)
	assert.Equal(t, "trackcounters", start["app"])
	assert.Equal(t, config.DefaultVersion, start["version"])
	assert.Equal(t, "staging", start["environment"])
	assert.Equal(t, "backfill", start["command"])
}
