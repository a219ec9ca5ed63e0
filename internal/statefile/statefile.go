// Package statefile provides the whole-document replace primitive shared by
// the upload ledger, the completed history, and the OAuth token cache.
//
// Readers observe either the previous version or the new version of a
// document, never a torn write. Read-modify-write cycles are serialized across
// processes with an advisory lock on a sibling ".lock" file.
package statefile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
)

const lockRetryDelay = 25 * time.Millisecond

// ErrLocked is returned when the document lock cannot be acquired before the
// context ends.
var ErrLocked = errors.New("state file locked")

// File is a durable document replaced atomically on every write.
type File struct {
	path string
	perm os.FileMode
	lock *flock.Flock
}

// New returns a File for path. perm applies to newly written versions.
func New(path string, perm os.FileMode) *File {
	if perm == 0 {
		perm = 0o644
	}
	return &File{path: path, perm: perm, lock: flock.New(path + ".lock")}
}

// Path returns the document path.
func (f *File) Path() string {
	return f.path
}

// Read returns the current document. A missing document reads as nil.
func (f *File) Read() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return data, nil
}

// Replace writes data as the new version of the document. The data is synced
// to disk before it is renamed over the previous version.
func (f *File) Replace(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	pending, err := renameio.NewPendingFile(f.path, renameio.WithPermissions(f.perm))
	if err != nil {
		return fmt.Errorf("create pending %s: %w", filepath.Base(f.path), err)
	}
	defer pending.Cleanup() //nolint:errcheck // no-op after a successful replace

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write pending %s: %w", filepath.Base(f.path), err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(f.path), err)
	}
	return nil
}

// Update runs a read-modify-write cycle under the document lock. fn receives
// the current contents (nil when missing) and returns the next version.
// Returning ErrUnchanged skips the write.
func (f *File) Update(ctx context.Context, fn func(current []byte) ([]byte, error)) error {
	unlock, err := f.Lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	current, err := f.Read()
	if err != nil {
		return err
	}
	next, err := fn(current)
	if errors.Is(err, ErrUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}
	return f.Replace(next)
}

// ErrUnchanged may be returned from an Update callback to skip the write.
var ErrUnchanged = errors.New("state file unchanged")

// Lock acquires the exclusive document lock and returns its release func.
func (f *File) Lock(ctx context.Context) (func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	ok, err := f.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLocked, f.path, ctxErr)
		}
		return nil, fmt.Errorf("lock %s: %w", f.path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, f.path)
	}
	return func() { _ = f.lock.Unlock() }, nil
}
