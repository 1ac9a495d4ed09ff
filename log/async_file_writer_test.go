package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.log")
	w, err := NewAsyncFileWriter(path, 100, 0)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	require.Error(t, w.Start())

	n, err := w.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	w.Write([]byte("world\n"))
	w.Stop()

	target, err := os.Readlink(path)
	require.NoError(t, err)
	assert.Equal(t, w.timeFilePath(path), target)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", string(content))
}

func TestWriterStopTwice(t *testing.T) {
	w, err := NewAsyncFileWriter(filepath.Join(t.TempDir(), "twice.log"), 10, 1)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	w.Stop()
	require.NotPanics(t, w.Stop)
}

func TestWriterNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.log")
	w, err := NewAsyncFileWriter(path, 10, 1)
	require.NoError(t, err)
	w.now = func() time.Time { return time.Date(2024, 3, 9, 7, 45, 0, 0, time.UTC) }
	assert.Equal(t, path+".2024-03-09_07", w.timeFilePath(path))
}

func TestNextRotation(t *testing.T) {
	tests := []struct {
		now   time.Time
		hours uint
		want  time.Time
	}{
		{time.Date(2024, 1, 1, 11, 32, 0, 0, time.UTC), 1, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
		{time.Date(2024, 1, 1, 9, 12, 0, 0, time.UTC), 2, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), 2, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
		{time.Date(2024, 1, 1, 23, 5, 0, 0, time.UTC), 6, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextRotation(tt.now, tt.hours), "now %v every %d", tt.now, tt.hours)
	}
}
