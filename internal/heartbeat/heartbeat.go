// Package heartbeat periodically publishes liveness messages.
package heartbeat

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"bolt/internal/messages"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultTopic    = "heartbeat"
)

// Publisher is the part of the publish endpoint the generator needs.
type Publisher interface {
	Publish(topic string, body []byte) error
}

// Generator builds a fresh Heartbeat on every tick and publishes it.
type Generator struct {
	pub      Publisher
	interval time.Duration
	topic    string
	logger   *slog.Logger
	now      func() time.Time

	sent     atomic.Int64
	failures atomic.Int64
}

type Option func(*Generator)

func WithInterval(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.interval = d
		}
	}
}

func WithTopic(topic string) Option {
	return func(g *Generator) {
		if topic != "" {
			g.topic = topic
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

func New(pub Publisher, opts ...Option) *Generator {
	g := &Generator{
		pub:      pub,
		interval: DefaultInterval,
		topic:    DefaultTopic,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Interval() time.Duration { return g.interval }
func (g *Generator) Topic() string           { return g.topic }
func (g *Generator) Sent() int64             { return g.sent.Load() }
func (g *Generator) Failures() int64         { return g.failures.Load() }

// Beat publishes one heartbeat. The error is logged as well as returned.
func (g *Generator) Beat() error {
	hb := messages.NewHeartbeat(g.now())
	body, err := hb.Serialize()
	if err == nil {
		err = g.pub.Publish(g.topic, body)
	}
	if err != nil {
		g.failures.Add(1)
		g.logger.Error("heartbeat_publish_failed",
			"topic", g.topic,
			"error", err.Error(),
		)
		return err
	}
	g.sent.Add(1)
	g.logger.Debug("heartbeat_sent", "topic", g.topic, "heartbeat", hb.String())
	return nil
}

// Run beats on every interval until ctx is done. Publish failures never stop it.
func (g *Generator) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	g.logger.Info("heartbeat_started",
		"topic", g.topic,
		"interval", g.interval.String(),
	)
	for {
		select {
		case <-ticker.C:
			g.Beat()
		case <-ctx.Done():
			g.logger.Info("heartbeat_stopped", "sent", g.Sent(), "failures", g.Failures())
			return
		}
	}
}
