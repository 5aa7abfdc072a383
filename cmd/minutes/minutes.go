// Package minutescmder
package minutescmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/minutes/cmd/minutes/auth"
	configcmder "github.com/papercomputeco/minutes/cmd/minutes/config"
	exportcmder "github.com/papercomputeco/minutes/cmd/minutes/export"
	ingestcmder "github.com/papercomputeco/minutes/cmd/minutes/ingest"
	initcmder "github.com/papercomputeco/minutes/cmd/minutes/init"
	servecmder "github.com/papercomputeco/minutes/cmd/minutes/serve"
	statuscmder "github.com/papercomputeco/minutes/cmd/minutes/status"
	tailcmder "github.com/papercomputeco/minutes/cmd/minutes/tail"
	watchcmder "github.com/papercomputeco/minutes/cmd/minutes/watch"
	versioncmder "github.com/papercomputeco/minutes/cmd/version"
)

const minutesLongDesc string = `Minutes turns a live meeting transcript into a rolling summary.

Run the server and feed it captions:
  minutes serve --captions captions.txt   Follow a caption file
  minutes serve --demo                    Summarize a scripted meeting
  minutes ingest transcript.txt           Post lines to a running server

Follow along:
  minutes watch     Live summary and transcript in the terminal
  minutes tail      Print the event stream
  minutes status    Show summarizer state

Afterwards:
  minutes export    Write the minutes to a Word document`

const minutesShortDesc string = "Minutes - live meeting summaries"

func NewMinutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "minutes",
		Short:        minutesShortDesc,
		Long:         minutesLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .minutes/ config directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(tailcmder.NewTailCmd())
	cmd.AddCommand(exportcmder.NewExportCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
