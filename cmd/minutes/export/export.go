// Package exportcmder provides the export command, which writes the stored
// summary and transcript to a Word document.
package exportcmder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/minutes/cmd/minutes/storeopen"
	"github.com/papercomputeco/minutes/pkg/cliui"
	"github.com/papercomputeco/minutes/pkg/config"
	"github.com/papercomputeco/minutes/pkg/export"
	"github.com/papercomputeco/minutes/pkg/logger"
)

const exportLongDesc string = `Export meeting minutes to a .docx file.

Reads the latest summary, the summary history, and the full transcript from
SQLite or Postgres storage and writes them to a Word document. The summary's
markdown headings, bullets, and bold text are kept.

Examples:
  minutes export
  minutes export --sqlite minutes.db --out q4-review.docx --title "Q4 Review"
  minutes export --postgres postgres://localhost/minutes`

const exportShortDesc string = "Export minutes to a Word document"

type exportCommander struct {
	storage storeopen.Options
	outPath string
	title   string
	out     io.Writer
}

func NewExportCmd() *cobra.Command {
	cmder := &exportCommander{}

	var driver, sqlitePath, postgresDSN string

	cmd := &cobra.Command{
		Use:   "export",
		Short: exportShortDesc,
		Long:  exportLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.InitCommandViper(cmd, config.FlagStorageDriver, config.FlagSQLite, config.FlagPostgres)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.storage = storeopen.Options{
				Driver:      v.GetString("storage.driver"),
				SQLitePath:  v.GetString("storage.sqlite_path"),
				PostgresDSN: v.GetString("storage.postgres_dsn"),
				ConfigDir:   configDir,
			}
			if cmder.title == "" {
				cmder.title = v.GetString("summarizer.meeting")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &driver)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &postgresDSN)
	cmd.Flags().StringVarP(&cmder.outPath, "out", "o", "minutes.docx", "Output .docx path")
	cmd.Flags().StringVar(&cmder.title, "title", "", "Document title (defaults to the meeting id)")

	return cmd
}

func (c *exportCommander) run(ctx context.Context) error {
	opts, err := storeopen.Resolve(c.storage)
	if err != nil {
		return err
	}
	if opts.Driver == config.StorageMemory {
		return errors.New("nothing to export from in-memory storage; pass --sqlite or --postgres")
	}

	driver, err := storeopen.Open(ctx, opts, logger.Nop())
	if err != nil {
		return err
	}
	defer driver.Close()

	var minutes *export.Minutes
	err = cliui.Step(c.out, "Loading minutes", func() error {
		minutes, err = export.Load(ctx, driver, c.title)
		return err
	})
	if err != nil {
		return err
	}

	err = cliui.Step(c.out, "Writing "+c.outPath, func() error {
		return export.WriteDOCX(minutes, c.outPath)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %d summaries, %d fragments\n", len(minutes.History), len(minutes.Segments))
	return nil
}
