// Package statuscmder provides the status command for displaying the state of
// a running minutes server.
package statuscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/minutes/api"
	"github.com/papercomputeco/minutes/pkg/apiclient"
	"github.com/papercomputeco/minutes/pkg/cliui"
	"github.com/papercomputeco/minutes/pkg/config"
	"github.com/papercomputeco/minutes/pkg/instance"
)

const statusLongDesc string = `Show the state of a running minutes server.

Queries /v1/status on the server and prints whether the summarizer is running
or paused, the active provider and model, how many fragments are waiting,
how many viewers are connected, and the current rolling summary.

Examples:
  minutes status
  minutes status --json
  minutes status --api-target http://meeting-room:8090`

const statusShortDesc string = "Show the state of a running server"

type statusCommander struct {
	apiTarget string
	asJSON    bool
	out       io.Writer
}

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
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
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the raw status JSON")

	return cmd
}

func (c *statusCommander) run(ctx context.Context) error {
	client, err := apiclient.New(c.apiTarget)
	if err != nil {
		return err
	}

	status, err := client.Status(ctx)
	if err != nil {
		return err
	}

	if c.asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	c.print(status)
	return nil
}

func (c *statusCommander) print(s *api.StatusResponse) {
	row := func(key, value string) {
		fmt.Fprintf(c.out, "  %s  %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%-12s", key)), value)
	}

	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.HeaderStyle.Render("minutes"))
	if s.Meeting != "" {
		row("Meeting", cliui.NameStyle.Render(s.Meeting))
	}
	row("Summarizer", cliui.StateLabel(s.Running))

	model := s.Model
	if model == "" {
		model = "default"
	}
	row("Model", cliui.ValueStyle.Render(s.Provider+" / "+model))
	row("Backlog", cliui.ValueStyle.Render(strconv.Itoa(s.Backlog)))
	row("Pending", cliui.ValueStyle.Render(strconv.Itoa(s.Pending)))
	row("Viewers", cliui.ValueStyle.Render(strconv.Itoa(s.Subscribers)))
	row("Summaries", cliui.ValueStyle.Render(fmt.Sprintf("%d (%d failed)", s.Summaries, s.Failures)))

	if s.LastSummaryTime.IsZero() {
		row("Last summary", cliui.DimStyle.Render("never"))
	} else {
		row("Last summary", cliui.TimeStyle.Render(s.LastSummaryTime.Local().Format(time.DateTime)))
	}

	fmt.Fprintln(c.out)
	if s.Summary == nil {
		fmt.Fprintf(c.out, "  %s No summary yet.\n\n", cliui.DimStyle.Render("●"))
		return
	}

	rendered, err := cliui.RenderMarkdown(*s.Summary)
	if err != nil {
		rendered = *s.Summary + "\n"
	}
	fmt.Fprint(c.out, rendered)
}
