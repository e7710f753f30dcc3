package watchdog

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2017, 8, 28, 12, 0, 0, 0, time.UTC)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestOpen_FailsOnBadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "bolt.log"), LevelInfo, "bolt")
	require.ErrorIs(t, err, ErrSinkOpen)
}

func TestSink_LevelsAndFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bolt.log")
	sink, err := Open(path, LevelInfo, "bolt")
	require.NoError(t, err)
	sink.now = fixedClock

	require.NoError(t, sink.Error("boom"))
	require.NoError(t, sink.Warn("careful"))
	require.NoError(t, sink.Info("hello\nworld"))
	require.NoError(t, sink.Debug("hidden"))
	require.NoError(t, sink.Close())

	assert.Equal(t, []string{
		"2017-08-28T12:00:00Z:bolt[ERROR]:boom",
		"2017-08-28T12:00:00Z:bolt[WARNING]:careful",
		`2017-08-28T12:00:00Z:bolt[INFO]:hello\nworld`,
	}, readLines(t, path))
}

func TestSink_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bolt.log")
	require.NoError(t, os.WriteFile(path, []byte("existing\n"), 0o644))

	sink, err := Open(path, LevelDebug, "bolt")
	require.NoError(t, err)
	require.NoError(t, sink.Debug("next"))
	require.NoError(t, sink.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "existing", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ":bolt[DEBUG]:next"))
}

func TestSink_Closed(t *testing.T) {
	sink, err := Open(filepath.Join(t.TempDir(), "bolt.log"), LevelInfo, "bolt")
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.ErrorIs(t, sink.Close(), ErrSinkClosed)
	assert.ErrorIs(t, sink.Info("late"), ErrSinkClosed)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"ERROR": LevelError, "warn": LevelWarning, "warning": LevelWarning, " info ": LevelInfo, "debug": LevelDebug}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("fatal")
	assert.True(t, errors.Is(err, ErrBadLevel))
}

func TestHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bolt.log")
	sink, err := Open(path, LevelWarning, "bolt")
	require.NoError(t, err)
	sink.now = fixedClock

	logger := slog.New(NewHandler(sink)).With("component", "publisher")
	logger.Info("dropped_by_level")
	logger.Warn("subscriber_queue_full", "subscriber_id", "abc")
	logger.WithGroup("frame").Error("publish_failed", "topic", "heartbeat", slog.Group("size", slog.Int("bytes", 12)))
	require.NoError(t, sink.Close())

	assert.Equal(t, []string{
		"2017-08-28T12:00:00Z:bolt[WARNING]:subscriber_queue_full component=publisher subscriber_id=abc",
		"2017-08-28T12:00:00Z:bolt[ERROR]:publish_failed component=publisher frame.topic=heartbeat frame.size.bytes=12",
	}, readLines(t, path))
}

func TestFanout(t *testing.T) {
	dir := t.TempDir()
	debugSink, err := Open(filepath.Join(dir, "debug.log"), LevelDebug, "a")
	require.NoError(t, err)
	errorSink, err := Open(filepath.Join(dir, "error.log"), LevelError, "b")
	require.NoError(t, err)

	logger := slog.New(Fanout(NewHandler(debugSink), NewHandler(errorSink)))
	logger.Debug("one")
	logger.Error("two")
	require.NoError(t, debugSink.Close())
	require.NoError(t, errorSink.Close())

	assert.Len(t, readLines(t, filepath.Join(dir, "debug.log")), 2)
	assert.Len(t, readLines(t, filepath.Join(dir, "error.log")), 1)
}
