// Package tailcmder provides the tail command, which prints the live event
// stream of a running minutes server.
package tailcmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/minutes/pkg/apiclient"
	"github.com/papercomputeco/minutes/pkg/broadcast"
	"github.com/papercomputeco/minutes/pkg/cliui"
	"github.com/papercomputeco/minutes/pkg/config"
	"github.com/papercomputeco/minutes/pkg/instance"
	"github.com/papercomputeco/minutes/pkg/sse"
)

const tailLongDesc string = `Print the live event stream of a running minutes server.

Connects to /v1/events and prints each fragment as it is persisted and each
rolling summary as it is produced, along with model, prompt, and
pause/resume changes. Use --record to save the raw stream to a file.

Examples:
  minutes tail
  minutes tail --summaries-only
  minutes tail --record meeting.sse --api-target http://meeting-room:8090`

const tailShortDesc string = "Print live fragments and summaries"

type tailCommander struct {
	apiTarget     string
	record        string
	summariesOnly bool
	asJSON        bool
	maxText       int
	out           io.Writer
}

func NewTailCmd() *cobra.Command {
	cmder := &tailCommander{}

	cmd := &cobra.Command{
		Use:   "tail",
		Short: tailShortDesc,
		Long:  tailLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.InitCommandViper(cmd, config.FlagAPITarget)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.apiTarget = instance.ResolveTarget(configDir, v.GetString("client.api_target"),
				config.ExplicitlySet(v, cmd, config.FlagAPITarget))
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().StringVar(&cmder.record, "record", "", "Also write the raw event stream to this file")
	cmd.Flags().BoolVar(&cmder.summariesOnly, "summaries-only", false, "Print only summaries")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print each event as a JSON line")
	cmd.Flags().IntVar(&cmder.maxText, "max-text", 0, "Truncate fragment text to this many characters (0 keeps it whole)")

	return cmd
}

func (c *tailCommander) run(ctx context.Context) error {
	client, err := apiclient.New(c.apiTarget)
	if err != nil {
		return err
	}

	body, err := client.Events(ctx)
	if err != nil {
		return err
	}
	defer body.Close()

	dest := io.Discard
	if c.record != "" {
		f, err := os.Create(c.record)
		if err != nil {
			return fmt.Errorf("creating record file: %w", err)
		}
		defer f.Close()
		dest = f
	}

	reader := sse.NewTeeReader(body, dest)
	for {
		ev, err := reader.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("reading event stream: %w", err)
		}
		if ev == nil {
			// server closed the stream
			return nil
		}

		if err := c.print(ev); err != nil {
			return err
		}
	}
}

func (c *tailCommander) print(raw *sse.Event) error {
	var ev broadcast.Event
	if err := json.Unmarshal([]byte(raw.Data), &ev); err != nil {
		return fmt.Errorf("decoding %q event: %w", raw.Type, err)
	}
	if c.summariesOnly && ev.Type != broadcast.TypeSummary {
		return nil
	}

	if c.asJSON {
		_, err := fmt.Fprintln(c.out, raw.Data)
		return err
	}

	var err error
	switch ev.Type {
	case broadcast.TypeSegment:
		if ev.Segment != nil {
			_, err = fmt.Fprintln(c.out, cliui.FormatFragment(*ev.Segment, c.maxText))
		}

	case broadcast.TypeSummary:
		if ev.Summary == nil {
			return nil
		}
		rendered, rerr := cliui.RenderMarkdown(*ev.Summary)
		if rerr != nil {
			rendered = *ev.Summary + "\n"
		}
		_, err = fmt.Fprintf(c.out, "\n%s\n%s", cliui.HeaderStyle.Render("── summary ──"), rendered)

	case broadcast.TypeModelChanged:
		if ev.Model != nil {
			_, err = fmt.Fprintf(c.out, "%s model switched to %s\n", cliui.DimStyle.Render("●"), cliui.NameStyle.Render(*ev.Model))
		}

	case broadcast.TypeSummarizerState:
		if ev.Running != nil {
			_, err = fmt.Fprintf(c.out, "%s summarizer %s\n", cliui.DimStyle.Render("●"), cliui.StateLabel(*ev.Running))
		}

	case broadcast.TypePromptChanged:
		_, err = fmt.Fprintf(c.out, "%s prompt templates reloaded\n", cliui.DimStyle.Render("●"))
	}
	return err
}
