// Package instance records the running minutes server in the .minutes/
// directory so client commands can find it and a second server refuses to
// share the same directory.
package instance

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/papercomputeco/minutes/pkg/dotdir"
)

const (
	stateFileName = "server.json"
	lockFileName  = "server.lock"
	stateVersion  = 1
)

// ErrRunning is returned by TryLock when another server holds the lock.
var ErrRunning = errors.New("another minutes server is running")

type State struct {
	Version   int       `json:"version"`
	PID       int       `json:"pid"`
	APIURL    string    `json:"api_url"`
	Meeting   string    `json:"meeting,omitempty"`
	Storage   string    `json:"storage,omitempty"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Manager struct {
	Dir       string
	StatePath string
	LockPath  string
}

type Lock struct {
	file *os.File
}

func NewManager(configDir string) (*Manager, error) {
	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, err
	}

	return &Manager{
		Dir:       dir,
		StatePath: filepath.Join(dir, stateFileName),
		LockPath:  filepath.Join(dir, lockFileName),
	}, nil
}

// TryLock takes the server lock without blocking. The lock is held until
// Release or process exit.
func (m *Manager) TryLock() (*Lock, error) {
	file, err := os.OpenFile(m.LockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, ErrRunning
		}
		return nil, fmt.Errorf("locking server file: %w", err)
	}

	return &Lock{file: file}, nil
}

func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = l.file.Close()
		return fmt.Errorf("unlocking server file: %w", err)
	}
	return l.file.Close()
}

// LoadState returns nil, nil when no state was saved.
func (m *Manager) LoadState() (*State, error) {
	data, err := os.ReadFile(m.StatePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading server state: %w", err)
	}

	state := &State{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing server state: %w", err)
	}

	return state, nil
}

func (m *Manager) SaveState(state *State) error {
	if state == nil {
		return errors.New("cannot save nil state")
	}
	if state.Version == 0 {
		state.Version = stateVersion
	}
	state.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling server state: %w", err)
	}

	tmpFile, err := os.CreateTemp(m.Dir, "server-state-*.json")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}

	if err := tmpFile.Chmod(0o600); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("chmod temp state file: %w", err)
	}

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("writing temp state file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), m.StatePath); err != nil {
		return fmt.Errorf("persisting state file: %w", err)
	}

	return nil
}

func (m *Manager) ClearState() error {
	if err := os.Remove(m.StatePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing server state: %w", err)
	}
	return nil
}

// Running returns the saved state when a server still holds the lock, and
// nil when there is no state or it was left behind by a server that died.
func (m *Manager) Running() (*State, error) {
	state, err := m.LoadState()
	if err != nil || state == nil {
		return nil, err
	}

	lock, err := m.TryLock()
	if errors.Is(err, ErrRunning) {
		return state, nil
	}
	if err != nil {
		return nil, err
	}
	_ = lock.Release()
	return nil, nil
}

// ResolveTarget returns the API URL of the server running out of configDir
// unless the configured target was set explicitly.
func ResolveTarget(configDir, configured string, explicit bool) string {
	if explicit {
		return configured
	}

	m, err := NewManager(configDir)
	if err != nil {
		return configured
	}
	state, err := m.Running()
	if err != nil || state == nil || state.APIURL == "" {
		return configured
	}
	return state.APIURL
}

// URLForListen turns a listen address into a URL a local client can dial.
func URLForListen(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
