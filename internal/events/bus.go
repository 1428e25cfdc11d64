// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package events

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/contracthub/internal/config"
	"github.com/tomtom215/contracthub/internal/logging"
)

// Backend names accepted in events.backend.
const (
	BackendMemory = "memory"
	BackendNATS   = "nats"
)

// Bus is the publisher/subscriber pair that carries contract updates from the
// dispatcher to the realtime forwarder.
type Bus struct {
	backend    string
	topic      string
	publisher  message.Publisher
	subscriber message.Subscriber
	embedded   *EmbeddedServer
	logger     watermill.LoggerAdapter
}

// NewBus opens the configured backend.
func NewBus(cfg config.EventsConfig) (*Bus, error) {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())
	topic := cfg.Topic
	if topic == "" {
		topic = "contracts.updated"
	}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendMemory:
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
		return &Bus{
			backend:    BackendMemory,
			topic:      topic,
			publisher:  ch,
			subscriber: ch,
			logger:     logger,
		}, nil
	case BackendNATS:
		return newNATSBus(cfg, topic, logger)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

func newNATSBus(cfg config.EventsConfig, topic string, logger watermill.LoggerAdapter) (*Bus, error) {
	b := &Bus{backend: BackendNATS, topic: topic, logger: logger}

	url := cfg.NATSURL
	if cfg.Embedded {
		srv, err := NewEmbeddedServer(cfg.EmbeddedHost, cfg.EmbeddedPort)
		if err != nil {
			return nil, err
		}
		b.embedded = srv
		url = srv.ClientURL()
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		b.shutdownEmbedded()
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	b.publisher = pub

	// No queue group: every process receives every update for its own hub.
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     30 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = pub.Close()
		b.shutdownEmbedded()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}
	b.subscriber = sub

	logging.Info().Str("url", url).Bool("embedded", cfg.Embedded).Str("topic", topic).Msg("NATS event bus connected")
	return b, nil
}

// Backend returns the active backend name.
func (b *Bus) Backend() string {
	return b.backend
}

// Topic returns the contract update topic.
func (b *Bus) Topic() string {
	return b.topic
}

// Publisher returns the underlying watermill publisher.
func (b *Bus) Publisher() message.Publisher {
	return b.publisher
}

// Subscriber returns the underlying watermill subscriber.
func (b *Bus) Subscriber() message.Subscriber {
	return b.subscriber
}

// Logger returns the watermill logger adapter backed by zerolog.
func (b *Bus) Logger() watermill.LoggerAdapter {
	return b.logger
}

// Close closes the publisher, the subscriber and the embedded server if any.
func (b *Bus) Close() error {
	var errs []error
	if b.publisher != nil {
		if err := b.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	// gochannel uses one value for both sides.
	if b.subscriber != nil && b.backend != BackendMemory {
		if err := b.subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
	}
	b.shutdownEmbedded()
	return errors.Join(errs...)
}

func (b *Bus) shutdownEmbedded() {
	if b.embedded != nil {
		b.embedded.Shutdown()
		b.embedded = nil
	}
}
