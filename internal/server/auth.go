package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"afd-webui/internal/fsops"
)

// userStore holds the users file ({"user": "password-or-bcrypt"}). The
// file is re-read when its mtime or size changes.
type userStore struct {
	path string

	mu    sync.Mutex
	mtime time.Time
	size  int64
	users map[string]string
}

func newUserStore(path string) *userStore {
	return &userStore{path: path}
}

func readUsers(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	users := make(map[string]string)
	if err := json.Unmarshal(b, &users); err != nil {
		return nil, fmt.Errorf("parse users file %s: %w", path, err)
	}
	return users, nil
}

func (u *userStore) current() (map[string]string, error) {
	st, err := os.Stat(u.path)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.users != nil && st.ModTime().Equal(u.mtime) && st.Size() == u.size {
		return u.users, nil
	}
	users, err := readUsers(u.path)
	if err != nil {
		return nil, err
	}
	u.users, u.mtime, u.size = users, st.ModTime(), st.Size()
	return users, nil
}

func isBcrypt(v string) bool {
	return strings.HasPrefix(v, "$2a$") || strings.HasPrefix(v, "$2b$") || strings.HasPrefix(v, "$2y$")
}

func (u *userStore) verify(user, pass string) (bool, error) {
	users, err := u.current()
	if err != nil {
		return false, err
	}
	stored, ok := users[user]
	if !ok || stored == "" {
		return false, nil
	}
	if isBcrypt(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(pass)) == nil, nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(pass)) == 1, nil
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if ok {
			good, err := s.users.verify(user, pass)
			if err != nil {
				s.log.Warn().Err(err).Str("users_file", s.users.path).Msg("users file")
			}
			if good {
				next.ServeHTTP(w, r)
				return
			}
		}
		realm := s.cfgSnapshot().Realm
		w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", realm))
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
	})
}

// SetPassword stores a bcrypt hash of pass for user in the users file at
// path, creating the file when missing. The file is replaced atomically
// with mode 0600.
func SetPassword(path, user, pass string) error {
	if user == "" {
		return errors.New("empty user name")
	}
	users, err := readUsers(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		users = make(map[string]string)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	users[user] = string(hash)
	return writeUsers(path, users)
}

// Users lists the user names in the users file.
func Users(path string) ([]string, error) {
	users, err := readUsers(path)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(users))
	for u := range users {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

func writeUsers(path string, users map[string]string) error {
	b, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return fsops.WriteFileAtomic(path, append(b, '\n'), 0o600)
}
