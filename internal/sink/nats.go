// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package sink

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/auditstream/internal/audit"
	"github.com/tomtom215/auditstream/internal/logging"
)

// NATSConfig configures the NATS JetStream sink.
type NATSConfig struct {
	// URL of the NATS server. Ignored when Embedded is set.
	URL string

	// Subject prefix. Events publish to <Subject>.<reason>.
	Subject string

	// Embedded starts an in-process server when non-nil.
	Embedded *EmbeddedServerConfig

	Stream StreamConfig

	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
	SetupTimeout    time.Duration
}

// DefaultNATSConfig returns production defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:     natsgo.DefaultURL,
		Subject: "audit.events",
		Stream: StreamConfig{
			Name:            "AUDIT_EVENTS",
			Subjects:        []string{"audit.events.>"},
			MaxAge:          7 * 24 * time.Hour,
			MaxBytes:        10 * 1024 * 1024 * 1024,
			MaxMsgs:         -1,
			DuplicateWindow: 2 * time.Minute,
			Replicas:        1,
		},
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		ReconnectBuffer: 8 * 1024 * 1024,
		SetupTimeout:    10 * time.Second,
	}
}

// NATSSink publishes each event as a JSON message on JetStream. The event
// UUID is the Nats-Msg-Id, so WAL redelivery of an event that did reach the
// stream is deduplicated within the duplicate window.
type NATSSink struct {
	cfg       NATSConfig
	publisher message.Publisher
	server    *EmbeddedServer

	mu     sync.RWMutex
	closed bool
}

// NewNATSSink starts the embedded server if configured, ensures the stream
// exists, and opens a watermill publisher.
func NewNATSSink(ctx context.Context, cfg NATSConfig) (*NATSSink, error) {
	s := &NATSSink{cfg: cfg}
	url := cfg.URL

	if cfg.Embedded != nil {
		srv, err := NewEmbeddedServer(*cfg.Embedded)
		if err != nil {
			return nil, err
		}
		s.server = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	if err := s.setupStream(ctx, url); err != nil {
		s.shutdownServer()
		return nil, err
	}

	logger := newWatermillLogger(logging.Component("nats"))
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		s.shutdownServer()
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	s.publisher = pub
	return s, nil
}

func (s *NATSSink) setupStream(ctx context.Context, url string) error {
	nc, err := natsgo.Connect(url)
	if err != nil {
		return fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	if s.cfg.SetupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SetupTimeout)
		defer cancel()
	}
	if _, err := EnsureStream(ctx, js, s.cfg.Stream); err != nil {
		return err
	}
	logging.Info().Str("stream", s.cfg.Stream.Name).Strs("subjects", s.cfg.Stream.Subjects).Msg("JetStream stream ready")
	return nil
}

// Name implements Sink.
func (s *NATSSink) Name() string { return "nats" }

// Write implements Sink.
func (s *NATSSink) Write(ctx context.Context, ev *audit.Event) error {
	if ev == nil {
		return ErrNilEvent
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.ID, err)
	}
	msg := message.NewMessage(ev.UUID, data)
	msg.SetContext(ctx)
	msg.Metadata.Set(natsgo.MsgIdHdr, ev.UUID)
	msg.Metadata.Set("audit_id", ev.ID.String())
	msg.Metadata.Set("reason", string(ev.Reason))
	if p := ev.Primary(); p != nil {
		msg.Metadata.Set("record_type", p.Type.String())
	}

	if err := s.publisher.Publish(s.Subject(ev), msg); err != nil {
		return fmt.Errorf("publish event %s: %w", ev.ID, err)
	}
	return nil
}

// Subject returns the subject ev is published on.
func (s *NATSSink) Subject(ev *audit.Event) string {
	reason := strings.ToLower(string(ev.Reason))
	if reason == "" {
		reason = "unknown"
	}
	return s.cfg.Subject + "." + reason
}

// ClientURL returns the embedded server's URL, or "" when using an
// external server.
func (s *NATSSink) ClientURL() string {
	if s.server == nil {
		return ""
	}
	return s.server.ClientURL()
}

// Close closes the publisher and stops the embedded server.
func (s *NATSSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.publisher.Close()
	s.shutdownServer()
	return err
}

func (s *NATSSink) shutdownServer() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		logging.Warn().Err(err).Msg("Embedded NATS server shutdown")
	}
}
