// Package ingestcmder provides the ingest command, which posts caption lines
// to a running minutes server.
package ingestcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/minutes/api"
	"github.com/papercomputeco/minutes/pkg/apiclient"
	"github.com/papercomputeco/minutes/pkg/cliui"
	"github.com/papercomputeco/minutes/pkg/config"
	"github.com/papercomputeco/minutes/pkg/instance"
	"github.com/papercomputeco/minutes/pkg/transcript"
)

const ingestLongDesc string = `Post caption lines to a running minutes server.

Reads lines from the given files, or from stdin when no file is given, and
posts each non-blank line as one fragment. A line of the form
"Speaker: text" is attributed to that speaker; --speaker labels lines that
have no speaker prefix. Use --delay to replay a transcript at a live pace.

Examples:
  minutes ingest transcript.txt
  echo "Alice: Let's get started." | minutes ingest
  minutes ingest --delay 2s --speaker Narrator notes.txt`

const ingestShortDesc string = "Post caption lines to the server"

type ingestCommander struct {
	apiTarget string
	speaker   string
	delay     time.Duration
	in        io.Reader
	out       io.Writer
	now       func() time.Time
}

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{now: time.Now}

	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
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
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context(), args)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().StringVar(&cmder.speaker, "speaker", "", "Speaker for lines without a \"Speaker:\" prefix")
	cmd.Flags().DurationVar(&cmder.delay, "delay", 0, "Pause between lines")

	return cmd
}

func (c *ingestCommander) run(ctx context.Context, files []string) error {
	client, err := apiclient.New(c.apiTarget)
	if err != nil {
		return err
	}

	total := 0
	if len(files) == 0 {
		total, err = c.ingest(ctx, client, c.in)
		if err != nil {
			return err
		}
	}

	for _, path := range files {
		n, err := c.ingestFile(ctx, client, path)
		total += n
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(c.out, "%s Ingested %d fragments into %s\n", cliui.SuccessMark, total, client.Target())
	return nil
}

func (c *ingestCommander) ingestFile(ctx context.Context, client *apiclient.Client, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return c.ingest(ctx, client, f)
}

func (c *ingestCommander) ingest(ctx context.Context, client *apiclient.Client, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	n := 0
	for scanner.Scan() {
		frag, ok := transcript.ParseLine(c.now(), scanner.Text())
		if !ok {
			continue
		}

		if n > 0 && c.delay > 0 {
			select {
			case <-ctx.Done():
				return n, ctx.Err()
			case <-time.After(c.delay):
			}
		}

		req := api.IngestRequest{Text: frag.Text, Timestamp: &frag.Timestamp}
		if frag.Speaker != nil {
			req.Speaker = *frag.Speaker
		} else {
			req.Speaker = c.speaker
		}

		if err := client.Ingest(ctx, req); err != nil {
			return n, fmt.Errorf("line %d: %w", n+1, err)
		}
		n++
	}

	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("reading input: %w", err)
	}
	return n, nil
}
