// Package lockfile reads and writes the agent disable lock, the optional
// lock-owner file, and the agent's PID file.
//
// The lock file is the sole source of truth for the disabled state: its
// presence means scheduled agent runs are disabled, its absence means they
// are enabled. The content is a tagged variant: a bare process ID written by
// the agent itself while a run is in progress, or an operator message
// written by `convergectl disable`.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Kind discriminates the lock file content variant.
type Kind int

const (
	// KindMessage is an operator disable message. The message may be empty
	// when the file was created without content.
	KindMessage Kind = iota
	// KindPID means the first line of the file is a bare process ID, written
	// by the agent while a run is in progress.
	KindPID
)

// Lock is the parsed content of an existing lock file.
type Lock struct {
	Kind    Kind
	Message string // KindMessage only; trimmed of trailing whitespace
	PID     int    // KindPID only
}

var (
	// ErrNotLocked is returned when the lock file does not exist.
	ErrNotLocked = errors.New("lock file does not exist")
	// ErrLockHeld is returned when creating a lock that already exists.
	ErrLockHeld = errors.New("lock file already exists")
)

// Parse classifies raw lock file content. A first line consisting solely of
// digits marks a PID variant; everything else, including empty content, is a
// message.
func Parse(data []byte) Lock {
	content := strings.TrimRight(string(data), " \t\r\n")
	first, _, _ := strings.Cut(content, "\n")
	if isAllDigits(first) {
		if pid, err := strconv.Atoi(first); err == nil {
			return Lock{Kind: KindPID, PID: pid}
		}
	}
	return Lock{Kind: KindMessage, Message: content}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Store reads and mutates a lock file and its companion owner file.
type Store struct {
	path      string
	ownerPath string
}

// NewStore creates a store for the given lock file path. An empty ownerPath
// derives the conventional companion path next to the lock file.
func NewStore(path, ownerPath string) *Store {
	if ownerPath == "" {
		ownerPath = path + ".owner"
	}
	return &Store{path: path, ownerPath: ownerPath}
}

// Path returns the lock file path.
func (s *Store) Path() string { return s.path }

// OwnerPath returns the owner file path.
func (s *Store) OwnerPath() string { return s.ownerPath }

// Exists reports whether the lock file is present. This is the disabled
// predicate; it is never cached.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Read parses the current lock file content. Returns ErrNotLocked when the
// file does not exist.
func (s *Store) Read() (Lock, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Lock{}, ErrNotLocked
		}
		return Lock{}, fmt.Errorf("failed to read lock file %s: %w", s.path, err)
	}
	return Parse(data), nil
}

// Write creates the lock file with the given message. The file is created
// exclusively so a concurrent creation surfaces as ErrLockHeld instead of a
// silent overwrite.
func (s *Store) Write(message string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return ErrLockHeld
		}
		return fmt.Errorf("failed to create lock file %s: %w", s.path, err)
	}

	_, werr := f.WriteString(message + "\n")
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("failed to write lock file %s: %w", s.path, werr)
	}
	if cerr != nil {
		return fmt.Errorf("failed to close lock file %s: %w", s.path, cerr)
	}
	return nil
}

// WriteOwner records the operator who issued the disable. The owner file is
// advisory metadata; it is written after the lock file and the pair is not
// transactional.
func (s *Store) WriteOwner(owner string) error {
	if err := os.WriteFile(s.ownerPath, []byte(owner+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write lock owner file %s: %w", s.ownerPath, err)
	}
	return nil
}

// Owner returns the recorded lock owner, or "" when none is recorded or the
// file is unreadable.
func (s *Store) Owner() string {
	data, err := os.ReadFile(s.ownerPath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// ModTime reports when the lock file was last written, which is when
// the disable took effect.
func (s *Store) ModTime() (time.Time, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// Remove deletes the lock file and its owner file. Missing files are not an
// error: enable on an already-enabled instance is a no-op.
func (s *Store) Remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file %s: %w", s.path, err)
	}
	if err := os.Remove(s.ownerPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock owner file %s: %w", s.ownerPath, err)
	}
	return nil
}

// ReadPIDFile reads a bare-integer PID file, the format the agent writes.
// The error preserves os.IsNotExist for absence checks.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file %s: %w", path, err)
	}
	return pid, nil
}
