// Package notes writes generated documents into the course directory tree.
package notes

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/natefinch/atomic"

	"github.com/byterings/noter/internal/apperr"
	"github.com/byterings/noter/internal/platform"
)

// BackupTimeFormat is appended to backed up note names
const BackupTimeFormat = "20060102-150405"

// Subdirectories per document type
const (
	LecturesDir    = "lectures"
	AssignmentsDir = "assignments"
)

// Note is a document found in the notes tree
type Note struct {
	Path     string
	CourseID string
	Kind     string // lectures, assignments or a custom type directory
	ModTime  time.Time
}

// CourseDir returns notes_dir/<course>/<kind>
func CourseDir(notesDir, courseID, kind string) string {
	return filepath.Join(notesDir, courseID, kind)
}

// KindDir maps a document type name to its subdirectory
func KindDir(docType string) string {
	switch docType {
	case "lecture":
		return LecturesDir
	case "assignment":
		return AssignmentsDir
	}
	return docType
}

// Writer creates note files
type Writer struct {
	// CreateBackups allows overwriting an existing note after copying it aside
	CreateBackups bool
	Now           func() time.Time
	Logger        *log.Logger
}

func (w *Writer) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Writer) logger() *log.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return log.Default()
}

// CreateFileWithContent writes content to path, creating parent directories.
// An existing file is refused unless CreateBackups is set, in which case it
// is copied to <path>.bak.<timestamp> first. Returns the backup path, if any.
func (w *Writer) CreateFileWithContent(path, content string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", apperr.IO("create note directory", filepath.Dir(path), err)
	}

	backup := ""
	if _, err := os.Stat(path); err == nil {
		if !w.CreateBackups {
			return "", &apperr.Error{
				Kind: apperr.ErrIO,
				Op:   "create note",
				Path: path,
				Err:  fs.ErrExist,
				Hint: "pick another title, or enable note_preferences.create_backups",
			}
		}
		if backup, err = w.Backup(path); err != nil {
			return "", err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", apperr.IO("stat note", path, err)
	}

	if err := atomic.WriteFile(path, strings.NewReader(content)); err != nil {
		return "", apperr.IO("write note", path, err)
	}
	w.logger().Debug("note written", "path", path, "bytes", len(content))
	return backup, nil
}

// Backup copies path to <path>.bak.<timestamp>
func (w *Writer) Backup(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperr.IO("read note for backup", path, err)
	}
	backup := path + ".bak." + w.now().Format(BackupTimeFormat)
	if err := atomic.WriteFile(backup, bytes.NewReader(data)); err != nil {
		return "", apperr.IO("write note backup", backup, err)
	}
	w.logger().Info("existing note backed up", "backup", backup)
	return backup, nil
}

// Scan lists every .typ note under notesDir, newest first.
// When courseID is not empty only that course is scanned.
func Scan(notesDir, courseID string) ([]Note, error) {
	pattern := "*/*/*.typ"
	if courseID != "" {
		pattern = courseID + "/*/*.typ"
	}

	var found []Note
	err := doublestar.GlobWalk(os.DirFS(notesDir), pattern, func(path string, d fs.DirEntry) error {
		info, err := d.Info()
		if err != nil {
			return err
		}
		parts := strings.Split(path, "/")
		found = append(found, Note{
			Path:     filepath.Join(notesDir, filepath.FromSlash(path)),
			CourseID: parts[0],
			Kind:     parts[1],
			ModTime:  info.ModTime(),
		})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.IO("scan notes", notesDir, err)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].ModTime.After(found[j].ModTime) })
	return found, nil
}

// OpenInEditor starts the first editor that exists, preferred first.
// The editor runs detached; noter does not wait for it.
func OpenInEditor(path, preferred string) (string, error) {
	for _, editor := range platform.EditorCandidates(preferred) {
		fields := strings.Fields(editor)
		if len(fields) == 0 || !platform.HasCommand(fields[0]) {
			continue
		}
		cmd := exec.Command(fields[0], append(fields[1:], path)...)
		cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
		if err := cmd.Start(); err != nil {
			continue
		}
		return editor, nil
	}
	return "", fmt.Errorf("no editor found: set preferred_editor or $EDITOR")
}

// OpenDir reveals a directory in the platform file manager
func OpenDir(dir string) error {
	opener := platform.DirOpenCommand()
	if !platform.HasCommand(opener) {
		return fmt.Errorf("%s not found", opener)
	}
	return exec.Command(opener, dir).Start()
}
