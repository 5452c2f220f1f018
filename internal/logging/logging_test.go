package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	message  string
	priority journal.Priority
	fields   map[string]string
}

func recorder(out *[]sent) SendFunc {
	return func(message string, p journal.Priority, fields map[string]string) error {
		*out = append(*out, sent{message, p, fields})
		return nil
	}
}

func TestJournalHandler_Fields(t *testing.T) {
	var got []sent
	logger := slog.New(NewJournalHandlerWithSend(slog.LevelInfo, recorder(&got)))

	logger.With("phase", "sweep").Warn("remove failed", "path", "/srv/a.pyc", "error-kind", "EACCES")
	logger.Debug("dropped")
	logger.WithGroup("launch").Error("exec failed", "argv", []string{"gunicorn", "-w", "4"},
		slog.Group("bind", "host", "0.0.0.0", "port", 8000))

	require.Len(t, got, 2)

	assert.Equal(t, "remove failed", got[0].message)
	assert.Equal(t, journal.PriWarning, got[0].priority)
	assert.Equal(t, map[string]string{
		"LAUNCHPAD_PHASE":      "sweep",
		"LAUNCHPAD_PATH":       "/srv/a.pyc",
		"LAUNCHPAD_ERROR_KIND": "EACCES",
	}, got[0].fields)

	assert.Equal(t, journal.PriErr, got[1].priority)
	assert.Equal(t, "[gunicorn -w 4]", got[1].fields["LAUNCHPAD_LAUNCH_ARGV"])
	assert.Equal(t, "0.0.0.0", got[1].fields["LAUNCHPAD_LAUNCH_BIND_HOST"])
	assert.Equal(t, "8000", got[1].fields["LAUNCHPAD_LAUNCH_BIND_PORT"])
}

func TestFieldName(t *testing.T) {
	assert.Equal(t, "LAUNCHPAD_REMOVED", FieldName("removed"))
	assert.Equal(t, "LAUNCHPAD_WORKER_CLASS", FieldName("worker.class"))
	assert.Equal(t, "LAUNCHPAD_A1", FieldName("a1"))
}

func TestNew_TextHandlerForFiles(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "log"))
	require.NoError(t, err)
	defer f.Close()

	off := false
	logger := New(f, Options{Journal: &off})
	logger.Info("swept", "removed", 2)

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=swept")
	assert.Contains(t, string(data), "removed=2")
}

func TestNew_ForcedJournal(t *testing.T) {
	on := true
	logger := New(os.Stderr, Options{Journal: &on, Level: slog.LevelDebug})
	_, ok := logger.Handler().(*JournalHandler)
	assert.True(t, ok)
}
