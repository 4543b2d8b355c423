// Package promptfile names and writes prompt documents on disk.
package promptfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	Prefix = "prompt_"
	Suffix = ".md"

	dirPerm  = 0o755
	filePerm = 0o644
)

// WriteError reports a prompt that could not be written.
type WriteError struct {
	Path string
	Op   string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing prompt: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// NewToken returns 32 lowercase hex characters drawn from a random UUID,
// which leaves 122 bits of entropy per name.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewName returns a fresh prompt_<token>.md file name.
func NewName() string {
	return Prefix + NewToken() + Suffix
}

// IsPromptName reports whether name looks like a file produced by NewName.
func IsPromptName(name string) bool {
	if !strings.HasPrefix(name, Prefix) || !strings.HasSuffix(name, Suffix) {
		return false
	}
	token := strings.TrimSuffix(strings.TrimPrefix(name, Prefix), Suffix)
	if len(token) != 32 {
		return false
	}
	for _, r := range token {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}

// Writer writes prompt documents into a directory.
type Writer struct {
	Dir string

	// newName is swapped in tests.
	newName func() string
}

// NewWriter creates a Writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, newName: NewName}
}

// Write stores doc under a fresh name in the writer's directory, creating
// the directory if needed, and returns the file's path. The file is created
// exclusively: an existing file is never overwritten. On error no file is
// left behind.
func (w *Writer) Write(doc string) (string, error) {
	if err := os.MkdirAll(w.Dir, dirPerm); err != nil {
		return "", &WriteError{Path: w.Dir, Op: "mkdir", Err: err}
	}

	name := NewName
	if w.newName != nil {
		name = w.newName
	}
	path := filepath.Join(w.Dir, name())

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return "", &WriteError{Path: path, Op: "create", Err: err}
	}

	if _, err := f.WriteString(doc); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", &WriteError{Path: path, Op: "write", Err: err}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", &WriteError{Path: path, Op: "close", Err: err}
	}
	return path, nil
}

// IsPermission reports whether err is a permission failure.
func IsPermission(err error) bool {
	return errors.Is(err, os.ErrPermission)
}
