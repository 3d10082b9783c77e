package hostconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "HOST_CONFIG")
	if err := os.WriteFile(p, []byte(sampleConfig), 0o640); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "HOST_CONFIG"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("want *NotFoundError, got %T", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	p := writeSample(t)
	s, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	oldVersion := s.Version
	if err := s.Patch("idefix", map[string]string{"transfer_timeout": "90"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Save(s, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Version == oldVersion {
		t.Fatalf("version not updated")
	}
	fi, err := os.Stat(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fi.Mode().Perm() != 0o640 {
		t.Fatalf("mode: got %v", fi.Mode().Perm())
	}
	s2, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s2.Version != s.Version {
		t.Fatalf("version mismatch after reload")
	}
	if s2.Hosts["idefix"].TransferTimeout != 90 || len(s2.Header) != 4 {
		t.Fatalf("reloaded: %+v header %q", *s2.Hosts["idefix"], s2.Header)
	}
	assertNoTemp(t, filepath.Dir(p))
}

func TestSaveFailureLeavesOriginal(t *testing.T) {
	p := writeSample(t)
	before, _ := os.ReadFile(p)
	s, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A record that cannot be written in Latin-1 after the valid ones, so
	// encoding fails part way through the file.
	bad := NewHost("zz")
	bad.RealHost1 = "日本"
	s.Hosts["zz"] = bad
	s.Order = append(s.Order, "zz")

	if err := Save(s, p); err == nil {
		t.Fatalf("expected save to fail")
	}
	after, _ := os.ReadFile(p)
	if string(after) != string(before) {
		t.Fatalf("original modified")
	}
	assertNoTemp(t, filepath.Dir(p))
}

func TestSaveMissingDirIsIOError(t *testing.T) {
	s := NewSet()
	err := Save(s, filepath.Join(t.TempDir(), "missing", "HOST_CONFIG"))
	if !errors.Is(err, ErrIO) {
		t.Fatalf("want ErrIO, got %v", err)
	}
}

func assertNoTemp(t *testing.T, dir string) {
	t.Helper()
	m, _ := filepath.Glob(filepath.Join(dir, TempPattern))
	if len(m) != 0 {
		t.Fatalf("temp files left behind: %v", m)
	}
}

func TestStoreUpdateConflict(t *testing.T) {
	p := writeSample(t)
	st := NewStore(p)
	s, err := st.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := s.Version

	// Another writer gets there first.
	if _, err := st.Update(context.Background(), v, func(s *Set) error {
		return s.Patch("idefix", map[string]string{"max_errors": "1"})
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	called := false
	_, err = st.Update(context.Background(), v, func(s *Set) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	if called {
		t.Fatalf("update func ran on a stale version")
	}
}

func TestStoreUpdateAbortsOnError(t *testing.T) {
	p := writeSample(t)
	before, _ := os.ReadFile(p)
	st := NewStore(p)
	_, err := st.Update(context.Background(), "", func(s *Set) error {
		if err := s.Patch("idefix", map[string]string{"max_errors": "2"}); err != nil {
			return err
		}
		return s.Reorder([]string{"nobody"})
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
	after, _ := os.ReadFile(p)
	if string(after) != string(before) {
		t.Fatalf("file changed after aborted update")
	}
}

// Without the lock two load-patch-save cycles can lose one update.
// Update serialises them so every patch survives.
func TestStoreConcurrentUpdates(t *testing.T) {
	p := writeSample(t)
	st := NewStore(p)
	st.RetryDelay = time.Millisecond

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			alias := fmt.Sprintf("h%02d", i)
			_, err := st.Update(context.Background(), "", func(s *Set) error {
				return s.Patch(alias, map[string]string{"host_name_real1": alias + ".example.org"})
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	s, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Order) != 18 {
		t.Fatalf("lost updates: %d hosts", len(s.Order))
	}
}

func TestStoreUpdateCancelled(t *testing.T) {
	p := writeSample(t)
	st := NewStore(p)
	st.sem <- struct{}{} // held by someone else
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := st.Update(ctx, "", func(*Set) error { return nil })
	if !errors.Is(err, ErrIO) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want lock timeout, got %v", err)
	}
}

func TestCleanupStale(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, ".HOST_CONFIG-123")
	fresh := filepath.Join(dir, ".HOST_CONFIG-456")
	keep := filepath.Join(dir, "HOST_CONFIG")
	for _, p := range []string{old, fresh, keep} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	removed, err := CleanupStale(dir, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(removed) != 1 || removed[0] != old {
		t.Fatalf("removed: %v", removed)
	}
	for _, p := range []string{fresh, keep} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("%s removed: %v", p, err)
		}
	}
}

func TestStoreCleanupTemps(t *testing.T) {
	p := writeSample(t)
	fresh := filepath.Join(filepath.Dir(p), ".HOST_CONFIG-789")
	if err := os.WriteFile(fresh, []byte("x"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := NewStore(p)

	st.sem <- struct{}{} // a save is running
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := st.CleanupTemps(ctx, 0); !errors.Is(err, ErrIO) {
		t.Fatalf("want lock timeout, got %v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("temp file removed while locked: %v", err)
	}
	<-st.sem

	removed, err := st.CleanupTemps(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(removed) != 1 || removed[0] != fresh {
		t.Fatalf("removed: %v", removed)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("HOST_CONFIG removed: %v", err)
	}
}
