package hostconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// LockName is the advisory lock file created next to HOST_CONFIG.
const LockName = ".HOST_CONFIG.lock"

// Store serialises writers of one HOST_CONFIG path. Readers do not lock:
// Save replaces the file atomically, so a read always sees a complete
// version. Writers hold an flock on LockName for the whole
// load-modify-save cycle, which keeps two editors (or two web UI
// processes) from silently discarding each other's changes.
type Store struct {
	Path string

	// RetryDelay is the poll interval while another process holds the lock.
	RetryDelay time.Duration

	sem  chan struct{}
	lock *flock.Flock
}

// NewStore returns a Store for the HOST_CONFIG at path.
func NewStore(path string) *Store {
	return &Store{
		Path:       path,
		RetryDelay: 50 * time.Millisecond,
		sem:        make(chan struct{}, 1),
		lock:       flock.New(filepath.Join(filepath.Dir(path), LockName)),
	}
}

// Load reads the current file without locking.
func (st *Store) Load() (*Set, error) {
	return Load(st.Path)
}

// Update runs load, fn and save under the writer lock. When expectVersion
// is not empty and the file no longer has that version, fn is not called
// and a *ConflictError is returned. fn returning an error aborts without
// writing.
func (st *Store) Update(ctx context.Context, expectVersion string, fn func(*Set) error) (*Set, error) {
	unlock, err := st.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := Load(st.Path)
	if err != nil {
		return nil, err
	}
	if expectVersion != "" && !strings.EqualFold(expectVersion, s.Version) {
		return nil, &ConflictError{Expected: expectVersion, Actual: s.Version}
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	if err := Save(s, st.Path); err != nil {
		return nil, err
	}
	return s, nil
}

// acquire takes the in-process semaphore, then the file lock. The Flock
// value reports success to a second caller of the same process, hence the
// semaphore.
func (st *Store) acquire(ctx context.Context) (func(), error) {
	select {
	case st.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, &IOError{Op: "lock", Path: st.lock.Path(), Err: ctx.Err()}
	}
	delay := st.RetryDelay
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}
	ok, err := st.lock.TryLockContext(ctx, delay)
	if err != nil || !ok {
		<-st.sem
		if err == nil {
			err = fmt.Errorf("lock not acquired")
		}
		return nil, &IOError{Op: "lock", Path: st.lock.Path(), Err: err}
	}
	return func() {
		_ = st.lock.Unlock()
		<-st.sem
	}, nil
}

// CleanupTemps runs CleanupStale on the directory of st.Path under the
// writer lock, so a temp file of a save in progress is never removed. With
// maxAge 0 every temp file goes.
func (st *Store) CleanupTemps(ctx context.Context, maxAge time.Duration) ([]string, error) {
	unlock, err := st.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return CleanupStale(filepath.Dir(st.Path), maxAge)
}

// CleanupStale removes temp files that an interrupted Save left in dir and
// that are older than maxAge (any age when maxAge is 0). It returns the
// removed paths. Callers that share dir with running writers use
// Store.CleanupTemps.
func CleanupStale(dir string, maxAge time.Duration) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, TempPattern))
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-maxAge)
	var removed []string
	for _, m := range matches {
		fi, err := os.Lstat(m)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if maxAge > 0 && fi.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(m); err != nil {
			return removed, err
		}
		removed = append(removed, m)
	}
	return removed, nil
}
