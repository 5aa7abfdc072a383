// Package dotdir manages the .minutes/ and ~/.minutes directories that hold
// config.toml, credentials.toml, the default SQLite database and prompt files.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirName = ".minutes"

	// HomeEnv names a .minutes/ directory to use when no override is given.
	// A server started from a service manager sets it instead of relying on
	// the working directory.
	HomeEnv = "MINUTES_HOME"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path of the .minutes/ directory to use,
// creating it when missing. The first match wins:
//  1. overrideDir (the --config-dir flag)
//  2. $MINUTES_HOME
//  3. ./.minutes/ when it already exists
//  4. ~/.minutes/
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, err := m.resolve(overrideDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating minutes directory %s: %w", dir, err)
	}
	return filepath.Abs(dir)
}

// File returns the absolute path of name inside the resolved directory.
func (m *Manager) File(overrideDir, name string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func (m *Manager) resolve(overrideDir string) (string, error) {
	if overrideDir != "" {
		return overrideDir, nil
	}
	if env := os.Getenv(HomeEnv); env != "" {
		return env, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	if local := filepath.Join(cwd, dirName); isDir(local) {
		return local, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
