// Package servecmder provides the serve command, which runs the fragment bus,
// the summary loop, and the API server in one process.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/papercomputeco/minutes/api"
	"github.com/papercomputeco/minutes/api/mcp"
	"github.com/papercomputeco/minutes/cmd/minutes/storeopen"
	"github.com/papercomputeco/minutes/pkg/broadcast"
	"github.com/papercomputeco/minutes/pkg/bus"
	"github.com/papercomputeco/minutes/pkg/config"
	"github.com/papercomputeco/minutes/pkg/credentials"
	"github.com/papercomputeco/minutes/pkg/eventstream"
	"github.com/papercomputeco/minutes/pkg/eventstream/kafka"
	"github.com/papercomputeco/minutes/pkg/eventstream/nop"
	"github.com/papercomputeco/minutes/pkg/eventstream/worker"
	"github.com/papercomputeco/minutes/pkg/feed"
	"github.com/papercomputeco/minutes/pkg/instance"
	"github.com/papercomputeco/minutes/pkg/llm"
	"github.com/papercomputeco/minutes/pkg/llm/provider"
	"github.com/papercomputeco/minutes/pkg/prompt"
	"github.com/papercomputeco/minutes/pkg/storage"
	"github.com/papercomputeco/minutes/pkg/summary"
)

const serveLongDesc string = `Run the minutes server.

Starts the fragment bus, the summary loop, and the API server. Fragments
arrive over POST /v1/segments, from a caption file followed with --captions,
or from the built-in demo script with --demo. Every persisted fragment and
every new summary is pushed to viewers over /v1/ws and /v1/events.

Settings resolve in order: flags, MINUTES_* environment variables,
.minutes/config.toml, then built-in defaults.

Examples:
  minutes serve --demo --provider static
  minutes serve --captions captions.txt --provider ollama --model llama3.2
  minutes serve --sqlite minutes.db --kafka-brokers localhost:9092 --paused`

const serveShortDesc string = "Run the summarizer and API server"

// registryFlags are the shared flags serve binds into viper.
var registryFlags = []string{
	config.FlagListen,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagInterval,
	config.FlagBacklogWarn,
	config.FlagPromptFile,
	config.FlagMeeting,
	config.FlagProvider,
	config.FlagModel,
	config.FlagBaseURL,
	config.FlagLLMTimeout,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

type serveCommander struct {
	configDir string
	debug     bool
	logLevel  string
	logFile   string

	listen  string
	meeting string
	storage storeopen.Options

	provider   string
	model      string
	baseURL    string
	llmTimeout time.Duration

	interval      time.Duration
	pollInterval  time.Duration
	errorCooldown time.Duration
	backlogWarn   int
	retainFailed  bool
	promptFile    string
	paused        bool

	kafkaBrokers []string
	kafkaTopic   string

	captions     string
	fromStart    bool
	demo         bool
	demoInterval time.Duration
	demoRepeat   bool

	logger *slog.Logger
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	// Flag targets only; resolved values are read back from viper.
	var f struct {
		listen, storage, sqlite, postgres, prompts, meeting string
		provider, model, baseURL, brokers, topic           string
		interval, llmTimeout                               time.Duration
		backlogWarn                                        int
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.InitCommandViper(cmd, registryFlags...)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if f := cmd.Flags().Lookup("retain-failed"); f != nil {
				_ = v.BindPFlag("summarizer.retain_failed_batch", f)
			}

			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			return cmder.load(v)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &f.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &f.storage)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &f.sqlite)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &f.postgres)
	config.AddDurationFlag(cmd, config.Flags, config.FlagInterval, &f.interval)
	config.AddIntFlag(cmd, config.Flags, config.FlagBacklogWarn, &f.backlogWarn)
	config.AddStringFlag(cmd, config.Flags, config.FlagPromptFile, &f.prompts)
	config.AddStringFlag(cmd, config.Flags, config.FlagMeeting, &f.meeting)
	config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &f.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &f.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &f.baseURL)
	config.AddDurationFlag(cmd, config.Flags, config.FlagLLMTimeout, &f.llmTimeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &f.brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &f.topic)

	cmd.Flags().StringVar(&cmder.captions, "captions", "", "Caption file to follow, one \"[speaker:] text\" line per fragment")
	cmd.Flags().BoolVar(&cmder.fromStart, "from-start", false, "Ingest lines already in the caption file")
	cmd.Flags().BoolVar(&cmder.demo, "demo", false, "Feed a scripted meeting into the bus")
	cmd.Flags().DurationVar(&cmder.demoInterval, "demo-interval", feed.DefaultDemoInterval, "Pause between demo lines")
	cmd.Flags().BoolVar(&cmder.demoRepeat, "demo-repeat", false, "Restart the demo script after the last line")
	cmd.Flags().BoolVar(&cmder.paused, "paused", false, "Start with the summarizer paused")
	cmd.Flags().StringVar(&cmder.logLevel, "log-level", "info", "Log level: debug, info, warn, or error")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().Bool("retain-failed", false, "Keep a batch after a failed summary so the next attempt covers it")

	return cmd
}

// load copies the resolved settings out of v.
func (c *serveCommander) load(v *viper.Viper) error {
	c.listen = v.GetString("api.listen")
	c.meeting = v.GetString("summarizer.meeting")
	c.storage = storeopen.Options{
		Driver:      v.GetString("storage.driver"),
		SQLitePath:  v.GetString("storage.sqlite_path"),
		PostgresDSN: v.GetString("storage.postgres_dsn"),
		ConfigDir:   c.configDir,
	}

	c.provider = v.GetString("llm.provider")
	c.model = v.GetString("llm.model")
	c.baseURL = v.GetString("llm.base_url")
	c.backlogWarn = v.GetInt("summarizer.backlog_warn")
	c.retainFailed = v.GetBool("summarizer.retain_failed_batch")
	c.promptFile = v.GetString("summarizer.prompt_file")
	c.kafkaTopic = v.GetString("eventstream.kafka_topic")
	c.kafkaBrokers = splitList(v.GetString("eventstream.kafka_brokers"))

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"llm.timeout", &c.llmTimeout},
		{"summarizer.interval", &c.interval},
		{"summarizer.poll_interval", &c.pollInterval},
		{"summarizer.error_cooldown", &c.errorCooldown},
	}
	for _, d := range durations {
		raw := v.GetString(d.key)
		if raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, raw, err)
		}
		*d.target = parsed
	}

	if c.captions != "" && c.demo {
		return errors.New("--captions and --demo cannot be used together")
	}
	return nil
}

func (c *serveCommander) run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, closeLog, err := newServeLogger(logOptions{
		Debug:    c.debug,
		Level:    c.logLevel,
		File:     c.logFile,
		Terminal: term.IsTerminal(int(os.Stdout.Fd())),
	}, os.Stdout)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	c.logger = log

	instances, err := instance.NewManager(c.configDir)
	if err != nil {
		return err
	}
	lock, err := instances.TryLock()
	if errors.Is(err, instance.ErrRunning) {
		if st, _ := instances.LoadState(); st != nil {
			return fmt.Errorf("%w (pid %d at %s)", err, st.PID, st.APIURL)
		}
		return err
	}
	if err != nil {
		return err
	}
	defer lock.Release()

	storageOpts, err := storeopen.Resolve(c.storage)
	if err != nil {
		return err
	}
	driver, err := storeopen.Open(ctx, storageOpts, c.logger)
	if err != nil {
		return err
	}
	defer driver.Close()

	client, err := c.newLLM(ctx)
	if err != nil {
		return err
	}

	prompts, err := prompt.NewStore(c.promptFile, c.logger)
	if err != nil {
		return fmt.Errorf("loading prompts: %w", err)
	}

	fragments := bus.New()
	hub := broadcast.NewHub(c.logger)

	sinks := summary.MultiSink{hub}
	pool, err := c.newPublisherPool()
	if err != nil {
		return err
	}
	sinks = append(sinks, pool)
	// Deferred so in-flight events drain after the loop has stopped.
	defer func() {
		if err := pool.Close(); err != nil {
			c.logger.Error("closing event publisher", "error", err)
		}
	}()

	loop, err := summary.NewLoop(summary.Config{
		Source:            fragments,
		LLM:               client,
		Storage:           driver,
		State:             summary.NewRunState(!c.paused),
		Prompter:          prompts,
		Sink:              sinks,
		FragmentSink:      hub,
		Logger:            c.logger,
		PollInterval:      c.pollInterval,
		Interval:          c.interval,
		ErrorCooldown:     c.errorCooldown,
		BacklogWarn:       c.backlogWarn,
		RetainFailedBatch: c.retainFailed,
		InitialSummary:    c.initialSummary(ctx, driver),
	})
	if err != nil {
		return fmt.Errorf("creating summary loop: %w", err)
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Snapshots: loop,
		Driver:    driver,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	server, err := api.NewServer(api.Config{
		ListenAddr: c.listen,
		Meeting:    c.meeting,
		Provider:   c.provider,
	}, api.Deps{
		Bus:     fragments,
		Driver:  driver,
		Loop:    loop,
		Hub:     hub,
		LLM:     client,
		Prompts: prompts,
		MCP:     mcpServer.Handler(),
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	caps := llm.Capabilities(client)
	c.logger.Info("starting minutes",
		"listen", c.listen,
		"meeting", c.meeting,
		"provider", c.provider,
		"model", caps.Model(),
		"running", !c.paused,
	)

	err = instances.SaveState(&instance.State{
		PID:       os.Getpid(),
		APIURL:    instance.URLForListen(c.listen),
		Meeting:   c.meeting,
		Storage:   storageOpts.Driver,
		StartedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("recording server state: %w", err)
	}
	defer func() {
		if err := instances.ClearState(); err != nil {
			c.logger.Warn("could not clear server state", "error", err)
		}
	}()

	var follower *feed.Follower
	if c.captions != "" {
		follower, err = feed.NewFollower(feed.FollowerConfig{
			Path:      c.captions,
			FromStart: c.fromStart,
			Logger:    c.logger,
		}, fragments)
		if err != nil {
			return fmt.Errorf("following captions: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error {
		return prompts.Watch(gctx, func() {
			hub.Broadcast(broadcast.PromptChangedEvent())
		})
	})

	switch {
	case follower != nil:
		g.Go(func() error { return follower.Run(gctx) })
	case c.demo:
		demo := &feed.Demo{Interval: c.demoInterval, Repeat: c.demoRepeat}
		g.Go(func() error { return demo.Run(gctx, fragments) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	c.logger.Info("minutes stopped", "backlog", fragments.Len())
	return nil
}

func (c *serveCommander) newLLM(ctx context.Context) (llm.Client, error) {
	keys, err := credentials.NewManager(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	client, err := provider.New(ctx, provider.Config{
		Provider: c.provider,
		Model:    c.model,
		BaseURL:  c.baseURL,
		Timeout:  c.llmTimeout,
		Keys:     keys,
	})
	if errors.Is(err, provider.ErrMissingCredential) {
		return nil, fmt.Errorf("%w; run \"minutes auth %s\" or set %s",
			err, c.provider, provider.EnvVar(c.provider))
	}
	if err != nil {
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}
	return client, nil
}

// newPublisherPool publishes to Kafka when brokers are configured and
// discards events otherwise.
func (c *serveCommander) newPublisherPool() (*worker.Pool, error) {
	publisher, err := c.newPublisher()
	if err != nil {
		return nil, err
	}

	pool, err := worker.NewPool(&worker.Config{
		Publisher: publisher,
		Meeting:   c.meeting,
		Logger:    c.logger,
	})
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("creating publisher pool: %w", err)
	}

	return pool, nil
}

func (c *serveCommander) newPublisher() (eventstream.Publisher, error) {
	if len(c.kafkaBrokers) == 0 {
		c.logger.Debug("no Kafka brokers configured, summary events are discarded")
		return nop.NewPublisher(), nil
	}

	publisher, err := kafka.NewPublisher(kafka.Config{
		Brokers: c.kafkaBrokers,
		Topic:   c.kafkaTopic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Kafka publisher: %w", err)
	}

	c.logger.Info("publishing summaries to Kafka", "brokers", c.kafkaBrokers, "topic", c.kafkaTopic)
	return publisher, nil
}

// initialSummary resumes from the last persisted summary.
func (c *serveCommander) initialSummary(ctx context.Context, driver storage.Driver) *string {
	rec, err := driver.LatestSummary(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		c.logger.Warn("could not load previous summary", "error", err)
		return nil
	}

	c.logger.Info("resuming from previous summary", "created_at", rec.CreatedAt)
	text := rec.Text
	return &text
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
