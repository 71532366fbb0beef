package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/glougarou/backend/internal/events"
)

// JetStreamConsumerConfig holds configuration for the JetStream consumer.
type JetStreamConsumerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	SubjectFilter string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
	MaxReconnects int
	ReconnectWait time.Duration
}

// streamConfig is the minimal stream definition the consumer falls
// back to when the stream does not exist yet.
func (c JetStreamConsumerConfig) streamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        c.StreamName,
		Description: "Game room events",
		Subjects:    []string{c.SubjectFilter},
		Retention:   jetstream.LimitsPolicy,
	}
}

// DefaultJetStreamConsumerConfig returns default JetStream consumer
// configuration.
func DefaultJetStreamConsumerConfig() JetStreamConsumerConfig {
	return JetStreamConsumerConfig{
		URL:           nats.DefaultURL,
		StreamName:    "GAME_EVENTS",
		ConsumerName:  "game-gateway",
		SubjectFilter: "game.events.>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// EventConsumer consumes persisted game events from JetStream and fans
// them out to the room's WebSocket clients. This is the path REST
// writes take to reach other connected players.
type EventConsumer struct {
	connectionManager *ConnectionManager
	nc                *nats.Conn
	js                jetstream.JetStream
	consumer          jetstream.Consumer
	config            JetStreamConsumerConfig
}

// NewEventConsumer creates a new JetStream event consumer.
func NewEventConsumer(cm *ConnectionManager, config JetStreamConsumerConfig) (*EventConsumer, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ec := &EventConsumer{
		connectionManager: cm,
		nc:                nc,
		js:                js,
		config:            config,
	}

	if err := ec.ensureConsumer(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return ec, nil
}

func (ec *EventConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := ec.js.Stream(ctx, ec.config.StreamName)
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		// Fresh NATS: the outbox publisher normally creates the stream,
		// but the consumer must not depend on it having run first. The
		// publisher aligns the full stream config when it connects.
		stream, err = ec.js.CreateStream(ctx, ec.config.streamConfig())
	}
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          ec.config.ConsumerName,
		Durable:       ec.config.ConsumerName,
		Description:   "Game gateway WebSocket consumer",
		FilterSubject: ec.config.SubjectFilter,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    ec.config.MaxDeliver,
		AckWait:       ec.config.AckWait,
		MaxAckPending: ec.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, ec.config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
	}
	ec.consumer = consumer
	return nil
}

// Start consumes events until ctx is cancelled.
func (ec *EventConsumer) Start(ctx context.Context) error {
	cc, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		ec.handleMessage(msg)
	})
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	log.Info().
		Str("stream", ec.config.StreamName).
		Str("subject_filter", ec.config.SubjectFilter).
		Msg("event consumer started")

	<-ctx.Done()
	cc.Stop()
	return nil
}

// Close shuts the NATS connection down.
func (ec *EventConsumer) Close() {
	ec.nc.Close()
}

func (ec *EventConsumer) handleMessage(msg jetstream.Msg) {
	var event events.GameEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		log.Error().
			Err(err).
			Str("subject", msg.Subject()).
			Msg("failed to unmarshal game event")
		_ = msg.Ack()
		return
	}

	ec.connectionManager.Broadcast(event.RoomCode, &event, nil)

	if err := msg.Ack(); err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("failed to ack event")
	}
}
