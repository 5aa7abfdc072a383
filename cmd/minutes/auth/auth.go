// Package authcmder provides the auth command for storing API credentials.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/minutes/pkg/cliui"
	"github.com/papercomputeco/minutes/pkg/credentials"
)

const authLongDesc string = `Store API credentials for LLM providers.

Credentials are stored in credentials.toml in the .minutes/ directory and are
used by "minutes serve" when the summarizer provider needs an API key. A key
passed explicitly wins over a stored key, and a stored key wins over the
provider's environment variable.

Supported providers: openai, anthropic, gemini

Examples:
  minutes auth openai              Prompt for OpenAI API key
  minutes auth gemini              Prompt for Gemini API key
  minutes auth --list              Show where each provider's key comes from
  minutes auth --remove openai     Remove stored OpenAI credentials
  echo $KEY | minutes auth openai  Pipe API key from stdin`

const authShortDesc string = "Store API credentials for LLM providers"

func NewAuthCmd() *cobra.Command {
	var listFlag bool
	var removeFlag string

	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			out := cmd.OutOrStdout()

			switch {
			case listFlag:
				return runList(out, configDir)
			case removeFlag != "":
				return runRemove(out, removeFlag, configDir)
			default:
				if len(args) == 0 {
					return fmt.Errorf("provider argument required\n\nSupported providers: %s",
						strings.Join(credentials.SupportedProviders(), ", "))
				}
				return runAuth(out, cmd.InOrStdin(), args[0], configDir)
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List providers and where their keys come from")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove stored credentials for a provider")

	return cmd
}

func runAuth(out io.Writer, in io.Reader, provider, configDir string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	if !credentials.IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s",
			provider, strings.Join(credentials.SupportedProviders(), ", "))
	}

	apiKey, err := readAPIKey(out, in, provider)
	if err != nil {
		return err
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetKey(provider, apiKey); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Stored %s credentials %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(provider),
		cliui.DimStyle.Render("("+mgr.GetTarget()+")"),
	)
	return nil
}

func runList(out io.Writer, configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Provider credentials"))
	for _, p := range credentials.SupportedProviders() {
		source, err := mgr.KeyStatus(p)
		if err != nil {
			return err
		}

		envVar := credentials.EnvVarForProvider(p)
		switch source {
		case credentials.SourceStored:
			fmt.Fprintf(out, "  %s  %s  %s\n", cliui.SuccessMark, cliui.NameStyle.Render(p), cliui.DimStyle.Render("stored"))
		case credentials.SourceEnv:
			fmt.Fprintf(out, "  %s  %s  %s\n", cliui.SuccessMark, cliui.NameStyle.Render(p), cliui.DimStyle.Render("from "+envVar))
		default:
			fmt.Fprintf(out, "  %s  %s  %s\n", cliui.FailMark, cliui.NameStyle.Render(p), cliui.DimStyle.Render("not set ("+envVar+")"))
		}
	}
	fmt.Fprintln(out)

	return nil
}

func runRemove(out io.Writer, provider, configDir string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveKey(provider); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Removed %s credentials.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(provider))

	return nil
}

// readAPIKey reads an API key from in. A terminal on stdin gets a hidden
// prompt; anything else is read as a single line.
func readAPIKey(out io.Writer, in io.Reader, provider string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		envVar := credentials.EnvVarForProvider(provider)
		fmt.Fprintf(out, "Enter API key for %s (%s): ", provider, envVar)

		keyBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out) // newline after hidden input
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return string(keyBytes), nil
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
