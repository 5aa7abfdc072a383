// Package watchcmder provides the watch command, a terminal viewer for a
// running minutes server.
package watchcmder

import (
	"context"
	"fmt"

	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/minutes/pkg/apiclient"
	"github.com/papercomputeco/minutes/pkg/config"
	"github.com/papercomputeco/minutes/pkg/instance"
)

const watchLongDesc string = `Watch a running minutes server in the terminal.

Shows the rolling summary above the live transcript. Updates arrive over the
server's /v1/ws websocket as fragments are persisted and summaries produced.

Keys:
  p   pause or resume the summarizer
  f   summarize pending fragments now
  j/k scroll the transcript
  q   quit

Examples:
  minutes watch
  minutes watch --api-target http://meeting-room:8090`

const watchShortDesc string = "Live terminal view of summary and transcript"

type watchCommander struct {
	apiTarget string
	maxText   int
}

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: watchShortDesc,
		Long:  watchLongDesc,
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
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().IntVar(&cmder.maxText, "max-text", 0, "Truncate fragment text to this many characters (0 keeps it whole)")

	return cmd
}

func (c *watchCommander) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client, err := apiclient.New(c.apiTarget)
	if err != nil {
		return err
	}

	status, err := client.Status(ctx)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, client.WebSocketURL(), nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", client.WebSocketURL(), err)
	}
	defer conn.Close()

	events := make(chan bubbletea.Msg, 64)
	go pumpEvents(ctx, conn, events)

	model := newWatchModel(ctx, client, events, status)
	model.maxText = c.maxText

	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
