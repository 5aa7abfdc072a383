// Package credentials stores LLM provider API keys in credentials.toml inside
// the .minutes/ directory, next to config.toml.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/minutes/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// hostedProviders lists the providers that need a key, with the environment
// variable consulted when none is stored. Ollama and static run without one.
var hostedProviders = []struct {
	name   string
	envVar string
}{
	{"anthropic", "ANTHROPIC_API_KEY"},
	{"gemini", "GEMINI_API_KEY"},
	{"openai", "OPENAI_API_KEY"},
}

// ErrEmptyKey is returned when storing a blank API key.
var ErrEmptyKey = errors.New("API key cannot be empty")

// Manager reads and writes one credentials.toml.
type Manager struct {
	path string
}

// NewManager resolves the .minutes/ directory (override first, then the
// standard dotdir lookup) and returns a Manager for its credentials file.
func NewManager(override string) (*Manager, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}
	return &Manager{path: filepath.Join(dir, credentialsFile)}, nil
}

// Load reads the credentials file. A missing file yields empty credentials.
func (m *Manager) Load() (*Credentials, error) {
	creds := &Credentials{Version: currentVersion}

	data, err := os.ReadFile(m.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading credentials: %w", err)
	default:
		if err := toml.Unmarshal(data, creds); err != nil {
			return nil, fmt.Errorf("parsing credentials: %w", err)
		}
	}

	if creds.Providers == nil {
		creds.Providers = make(map[string]ProviderCredential)
	}
	return creds, nil
}

// Save replaces the credentials file. The file is written with 0600
// permissions and renamed into place, so readers never see a partial file.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".credentials-*.toml")
	if err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// update loads, applies fn, and saves.
func (m *Manager) update(fn func(*Credentials)) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}
	fn(creds)
	return m.Save(creds)
}

// SetKey stores key for provider, replacing any previous key. Surrounding
// whitespace from pasted keys is dropped.
func (m *Manager) SetKey(provider, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	return m.update(func(c *Credentials) {
		c.Providers[provider] = ProviderCredential{APIKey: key}
	})
}

// GetKey returns the stored key for provider, or "" when none is stored.
func (m *Manager) GetKey(provider string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}
	return creds.Providers[provider].APIKey, nil
}

// RemoveKey deletes the stored key for provider. Removing a missing key is
// not an error.
func (m *Manager) RemoveKey(provider string) error {
	return m.update(func(c *Credentials) {
		delete(c.Providers, provider)
	})
}

// ListProviders returns the providers with a stored key, sorted.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(creds.Providers))
	for name := range creds.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// GetTarget returns the path of the credentials file.
func (m *Manager) GetTarget() string {
	return m.path
}

// EnvVarForProvider returns the environment variable for provider's key, or
// "" for providers that do not need one.
func EnvVarForProvider(provider string) string {
	for _, p := range hostedProviders {
		if p.name == provider {
			return p.envVar
		}
	}
	return ""
}

// SupportedProviders returns the providers that take an API key.
func SupportedProviders() []string {
	names := make([]string, len(hostedProviders))
	for i, p := range hostedProviders {
		names[i] = p.name
	}
	return names
}

// IsSupportedProvider reports whether provider takes an API key.
func IsSupportedProvider(provider string) bool {
	return EnvVarForProvider(provider) != ""
}

// Source describes where a provider's key would come from.
type Source string

const (
	SourceStored  Source = "credentials.toml"
	SourceEnv     Source = "environment"
	SourceMissing Source = "missing"
)

// KeyStatus reports whether a usable key exists for provider, preferring a
// stored key over the provider's environment variable.
func (m *Manager) KeyStatus(provider string) (Source, error) {
	key, err := m.GetKey(provider)
	if err != nil {
		return SourceMissing, err
	}
	if key != "" {
		return SourceStored, nil
	}

	if env := EnvVarForProvider(provider); env != "" && os.Getenv(env) != "" {
		return SourceEnv, nil
	}
	return SourceMissing, nil
}
