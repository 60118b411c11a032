package notes

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byterings/noter/internal/apperr"
)

var fixedNow = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func newWriter(backups bool) *Writer {
	return &Writer{
		CreateBackups: backups,
		Now:           func() time.Time { return fixedNow },
		Logger:        log.New(io.Discard),
	}
}

func TestCreateFileWithContent_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "02101", LecturesDir, "2024-03-10-02101-lecture.typ")

	backup, err := newWriter(false).CreateFileWithContent(path, "= Overview\n")
	require.NoError(t, err)
	assert.Empty(t, backup)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "= Overview\n", string(data))
}

func TestCreateFileWithContent_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.typ")
	require.NoError(t, os.WriteFile(path, []byte("mine"), 0644))

	_, err := newWriter(false).CreateFileWithContent(path, "generated")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrIO)
	assert.ErrorIs(t, err, os.ErrExist)
	assert.Contains(t, apperr.HintOf(err), "create_backups")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))
}

func TestCreateFileWithContent_BacksUpExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.typ")
	require.NoError(t, os.WriteFile(path, []byte("mine"), 0644))

	backup, err := newWriter(true).CreateFileWithContent(path, "generated")
	require.NoError(t, err)
	assert.Equal(t, path+".bak.20240310-093000", backup)

	old, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, "mine", string(old))

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "generated", string(current))
}

func TestKindDir(t *testing.T) {
	assert.Equal(t, LecturesDir, KindDir("lecture"))
	assert.Equal(t, AssignmentsDir, KindDir("assignment"))
	assert.Equal(t, "lab", KindDir("lab"))
	assert.Equal(t, filepath.Join("n", "02101", "lectures"), CourseDir("n", "02101", LecturesDir))
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	write := func(rel string, mod time.Time) {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		require.NoError(t, os.Chtimes(path, mod, mod))
	}
	write("02101/lectures/a.typ", fixedNow.Add(-2*time.Hour))
	write("02101/assignments/b.typ", fixedNow)
	write("01005/lectures/c.typ", fixedNow.Add(-time.Hour))
	write("01005/lectures/c.pdf", fixedNow)

	all, err := Scan(root, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "02101", all[0].CourseID)
	assert.Equal(t, AssignmentsDir, all[0].Kind)
	assert.Equal(t, "01005", all[1].CourseID)

	one, err := Scan(root, "01005")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, filepath.Join(root, "01005", "lectures", "c.typ"), one[0].Path)
}

func TestScan_MissingRoot(t *testing.T) {
	found, err := Scan(filepath.Join(t.TempDir(), "nope"), "")
	require.NoError(t, err)
	assert.Empty(t, found)
}
