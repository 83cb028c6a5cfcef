// Package songs keeps per-group audio folders on disk and picks tracks for playback.
// The directory listing is the index: there is no manifest next to the files.
package songs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/squonkradio/core/logger"
)

// Extension is appended to the Telegram unique file id to build the stored name.
const Extension = ".mp3"

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// ErrInvalidName is returned when a group or file id cannot be used as a path segment.
var ErrInvalidName = errors.New("songs: invalid name")

// StorageError wraps a filesystem failure for a group folder.
type StorageError struct {
	Op    string
	Group string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("songs: %s group %q: %v", e.Op, e.Group, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Code is picked up by the handler summary logger as err_code.
func (e *StorageError) Code() string { return "storage_error" }

// Library maps group identifiers to folders below Root.
type Library struct {
	root string
}

// NewLibrary returns a Library rooted at dir. The root itself is created lazily.
func NewLibrary(root string) *Library {
	root = strings.TrimSpace(root)
	if root == "" {
		root = "songs"
	}
	return &Library{root: filepath.Clean(root)}
}

// Root returns the storage root directory.
func (l *Library) Root() string {
	return l.root
}

// Folder returns the folder path for a group without touching the filesystem.
func (l *Library) Folder(groupID string) string {
	return filepath.Join(l.root, groupID)
}

// Path returns the full path of a stored entry.
func (l *Library) Path(groupID, name string) string {
	return filepath.Join(l.root, groupID, name)
}

// EnsureFolder creates the group folder if needed and returns its path.
func (l *Library) EnsureFolder(ctx context.Context, groupID string) (string, error) {
	if err := checkSegment(groupID); err != nil {
		return "", &StorageError{Op: "ensure", Group: groupID, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := l.Folder(groupID)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", &StorageError{Op: "ensure", Group: groupID, Err: err}
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", &StorageError{Op: "ensure", Group: groupID, Err: err}
	}
	if !info.IsDir() {
		return "", &StorageError{Op: "ensure", Group: groupID, Err: fmt.Errorf("%s is not a directory", dir)}
	}
	return dir, nil
}

// Save streams r into <root>/<groupID>/<uniqueID>.mp3. An existing file with
// the same name is replaced.
func (l *Library) Save(ctx context.Context, groupID, uniqueID string, r io.Reader) (string, error) {
	if err := checkSegment(uniqueID); err != nil {
		return "", &StorageError{Op: "save", Group: groupID, Err: err}
	}
	start := time.Now()
	dir, err := l.EnsureFolder(ctx, groupID)
	if err != nil {
		return "", err
	}

	final := filepath.Join(dir, uniqueID+Extension)
	tmp := filepath.Join(dir, "."+uuid.NewString()+".part")

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, filePerm)
	if err != nil {
		return "", &StorageError{Op: "save", Group: groupID, Err: err}
	}
	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(tmp)
		return "", &StorageError{Op: "save", Group: groupID, Err: copyErr}
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", &StorageError{Op: "save", Group: groupID, Err: err}
	}

	logger.Info(ctx, "storage.songs", "song.saved",
		slog.String("status", "ok"),
		slog.String("group_id", groupID),
		slog.String("song", filepath.Base(final)),
		slog.Int64("bytes", n),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return final, nil
}

// List returns the sorted file names stored for a group. A missing folder
// yields an empty listing.
func (l *Library) List(ctx context.Context, groupID string) ([]string, error) {
	if err := checkSegment(groupID); err != nil {
		return nil, &StorageError{Op: "list", Group: groupID, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(l.Folder(groupID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, &StorageError{Op: "list", Group: groupID, Err: err}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Pick lists the group folder and chooses an entry according to mode.
func (l *Library) Pick(ctx context.Context, groupID string, mode Mode) (string, error) {
	names, err := l.List(ctx, groupID)
	if err != nil {
		return "", err
	}
	name, err := Choose(names, mode, nil)
	if err != nil {
		return "", err
	}
	logger.Debug(ctx, "storage.songs", "song.picked",
		slog.String("group_id", groupID),
		slog.String("mode", mode.String()),
		slog.String("song", name),
		slog.Int("count", len(names)),
	)
	return name, nil
}

func checkSegment(s string) error {
	switch {
	case s == "", s == ".", s == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, s)
	case strings.ContainsAny(s, `/\`), strings.ContainsRune(s, 0):
		return fmt.Errorf("%w: %q", ErrInvalidName, s)
	}
	return nil
}
