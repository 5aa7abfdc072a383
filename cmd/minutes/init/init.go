// Package initcmder provides the init command for initializing a local
// .minutes directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/minutes/pkg/cliui"
	"github.com/papercomputeco/minutes/pkg/config"
	"github.com/papercomputeco/minutes/pkg/prompt"
)

const (
	dirName          = ".minutes"
	configFileName   = "config.toml"
	promptsFileName  = "prompts.yaml"
	remoteGetTimeout = 15 * time.Second
)

const initLongDesc string = `Initialize a new .minutes/ directory in the current working directory.

Creates a local .minutes/ directory that takes precedence over the default
~/.minutes/ directory for configuration, credentials, the SQLite database,
and prompt templates, then writes a config.toml.

Presets configure a summarization provider and SQLite storage in one step:
  openai, anthropic, gemini, ollama

A preset may also be an http(s) URL serving a config.toml to copy.

Examples:
  minutes init
  minutes init --preset gemini
  minutes init --preset ollama --prompts
  minutes init --preset https://example.com/minutes/config.toml`

const initShortDesc string = "Initialize a local .minutes/ directory"

type initCommander struct {
	preset  string
	prompts bool
	out     io.Writer
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Provider preset name or URL of a config.toml")
	cmd.Flags().BoolVar(&cmder.prompts, "prompts", false, "Write the built-in prompt templates to prompts.yaml for editing")

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)
	configPath := filepath.Join(dir, configFileName)

	cfg, err := c.resolveConfig(ctx)
	if err != nil {
		return err
	}

	info, err := os.Stat(dir)
	existed := err == nil && info.IsDir()
	if !existed {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .minutes directory: %w", err)
		}
	}

	// An existing config is only replaced when a preset was asked for.
	_, statErr := os.Stat(configPath)
	writeConfig := c.preset != "" || os.IsNotExist(statErr)

	if c.prompts {
		promptPath := filepath.Join(dir, promptsFileName)
		if err := prompt.WriteDefaults(promptPath); err != nil {
			return fmt.Errorf("writing prompt templates: %w", err)
		}
		cfg.Summarizer.PromptFile = promptPath
		writeConfig = true
		fmt.Fprintf(c.out, "  %s Wrote prompt templates %s\n", cliui.SuccessMark, cliui.DimStyle.Render(promptPath))
	}

	if writeConfig {
		cfger, err := config.NewConfiger(dir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfger.SaveConfig(cfg); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "  %s Wrote %s\n", cliui.SuccessMark, cliui.DimStyle.Render(configPath))
	}

	if existed {
		fmt.Fprintf(c.out, "Already initialized: %s\n", dir)
		return nil
	}

	fmt.Fprintf(c.out, "Initialized .minutes directory: %s\n", dir)
	return nil
}

// resolveConfig returns the config to write: defaults, a named preset, or a
// config.toml fetched from a URL.
func (c *initCommander) resolveConfig(ctx context.Context) (*config.Config, error) {
	switch {
	case c.preset == "":
		return config.NewDefaultConfig(), nil

	case strings.HasPrefix(c.preset, "http://"), strings.HasPrefix(c.preset, "https://"):
		return fetchRemoteConfig(ctx, c.preset)

	default:
		return config.PresetConfig(c.preset)
	}
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, remoteGetTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
