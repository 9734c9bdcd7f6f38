package feeder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestNewCSVFeeder_CyclesRecords(t *testing.T) {
	path := writeCSV(t, "username,password\nalice,pw1\nbob,pw2\n")
	f, err := NewCSVFeeder(path)
	require.NoError(t, err)

	first := f.Next()
	second := f.Next()
	third := f.Next()

	assert.Equal(t, "alice", first["username"])
	assert.Equal(t, "bob", second["username"])
	assert.Equal(t, first, third)
}

func TestNewCSVFeeder_RejectsMissingDataRows(t *testing.T) {
	path := writeCSV(t, "username,password\n")
	_, err := NewCSVFeeder(path)
	assert.Error(t, err)
}

func TestNewCSVFeeder_RejectsEmptyHeaderField(t *testing.T) {
	path := writeCSV(t, "username,\nalice,pw1\n")
	_, err := NewCSVFeeder(path)
	assert.Error(t, err)
}

func TestNewCSVFeeder_MissingFileErrors(t *testing.T) {
	_, err := NewCSVFeeder("/nonexistent/path.csv")
	assert.Error(t, err)
}
