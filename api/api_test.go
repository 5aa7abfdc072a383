package api

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/minutes/pkg/broadcast"
	"github.com/papercomputeco/minutes/pkg/bus"
	"github.com/papercomputeco/minutes/pkg/llm"
	"github.com/papercomputeco/minutes/pkg/llm/provider/static"
	"github.com/papercomputeco/minutes/pkg/logger"
	"github.com/papercomputeco/minutes/pkg/storage/inmemory"
	"github.com/papercomputeco/minutes/pkg/summary"
)

// switchingClient is an llm.Client that supports model switching.
type switchingClient struct {
	mu    sync.Mutex
	model string
}

func (c *switchingClient) Complete(context.Context, string, []llm.Message) (*llm.Reply, error) {
	return &llm.Reply{Content: "summary", Model: c.Model()}, nil
}

func (c *switchingClient) Provider() string { return "fake" }

func (c *switchingClient) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

func (c *switchingClient) SetModel(model string) error {
	if model == "unknown" {
		return errors.New("unknown model")
	}
	c.mu.Lock()
	c.model = model
	c.mu.Unlock()
	return nil
}

// testEnv holds a server wired to real in-process components.
type testEnv struct {
	server   *Server
	bus      *bus.Bus
	driver   *inmemory.Driver
	loop     *summary.Loop
	hub      *broadcast.Hub
	received *eventLog
}

// eventLog records every envelope the hub delivers.
type eventLog struct {
	mu     sync.Mutex
	events [][]byte
}

func (l *eventLog) send(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, append([]byte(nil), data...))
	return nil
}

func (l *eventLog) Strings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, e := range l.events {
		out[i] = string(e)
	}
	return out
}

func newTestEnv(client llm.Client, deps Deps) *testEnv {
	log := logger.Nop()

	env := &testEnv{
		bus:      bus.New(),
		driver:   inmemory.NewDriver(),
		hub:      broadcast.NewHub(log),
		received: &eventLog{},
	}
	if client == nil {
		client = static.New("")
	}

	loop, err := summary.NewLoop(summary.Config{
		Source:  env.bus,
		LLM:     client,
		Storage: env.driver,
		Logger:  log,
	})
	Expect(err).NotTo(HaveOccurred())
	env.loop = loop

	env.hub.Register(broadcast.NewFuncSubscriber(env.received.send))

	deps.Bus = env.bus
	deps.Driver = env.driver
	deps.Loop = loop
	deps.Hub = env.hub
	deps.LLM = client

	server, err := NewServer(Config{ListenAddr: ":0", Meeting: "standup", Provider: "configured"}, deps, log)
	Expect(err).NotTo(HaveOccurred())
	env.server = server

	return env
}

var _ = Describe("NewServer", func() {
	It("requires every core component", func() {
		log := logger.Nop()
		_, err := NewServer(Config{}, Deps{}, log)
		Expect(err).To(MatchError(ContainSubstring("fragment bus is required")))

		_, err = NewServer(Config{}, Deps{Bus: bus.New()}, log)
		Expect(err).To(MatchError(ContainSubstring("storage driver is required")))

		_, err = NewServer(Config{}, Deps{Bus: bus.New(), Driver: inmemory.NewDriver()}, log)
		Expect(err).To(MatchError(ContainSubstring("summary loop is required")))
	})

	It("requires a logger", func() {
		env := newTestEnv(nil, Deps{})
		_, err := NewServer(Config{}, env.server.deps, nil)
		Expect(err).To(MatchError(ContainSubstring("logger is required")))
	})
})
