// Package eventbus forwards pool lifecycle events to NATS.
package eventbus

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"llmpoold/internal/pool"
)

// Message is the JSON body published for each event.
type Message struct {
	Event    string         `json:"event"`
	WorkerID string         `json:"worker_id"`
	Time     time.Time      `json:"time"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// NATSPublisher implements pool.EventPublisher by publishing each event to
// "<prefix>.<event name>". Publish never blocks on the network; nats.go
// buffers outgoing messages and reconnects on its own.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	log    zerolog.Logger
}

// Config configures a NATSPublisher.
type Config struct {
	URL    string
	Prefix string
	Name   string
	Logger zerolog.Logger
}

// Connect dials NATS and returns a publisher.
func Connect(cfg Config) (*NATSPublisher, error) {
	prefix := strings.Trim(strings.TrimSpace(cfg.Prefix), ".")
	if prefix == "" {
		prefix = "llmpool.events"
	}
	nc, err := nats.Connect(cfg.URL, func(o *nats.Options) error {
		if cfg.Name != "" {
			o.Name = cfg.Name
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{nc: nc, prefix: prefix, log: cfg.Logger}, nil
}

// Subject returns the subject an event name is published on.
func (p *NATSPublisher) Subject(event string) string { return p.prefix + "." + event }

func (p *NATSPublisher) Publish(e pool.Event) {
	data, err := json.Marshal(Message{Event: e.Name, WorkerID: string(e.WorkerID), Time: time.Now().UTC(), Fields: e.Fields})
	if err != nil {
		p.log.Warn().Err(err).Str("event", e.Name).Msg("encode event")
		return
	}
	if err := p.nc.Publish(p.Subject(e.Name), data); err != nil {
		p.log.Warn().Err(err).Str("event", e.Name).Msg("publish event")
	}
}

// Flush waits until buffered events reached the server.
func (p *NATSPublisher) Flush(timeout time.Duration) error { return p.nc.FlushTimeout(timeout) }

// Close drains pending events and closes the connection.
func (p *NATSPublisher) Close() error { return p.nc.Drain() }

// Fanout publishes every event to all of its publishers.
type Fanout []pool.EventPublisher

func (f Fanout) Publish(e pool.Event) {
	for _, p := range f {
		if p != nil {
			p.Publish(e)
		}
	}
}
