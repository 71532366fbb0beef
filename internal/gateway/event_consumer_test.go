package gateway

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJetStream struct {
	jetstream.JetStream
	stream  *fakeStream
	missing bool
	created []jetstream.StreamConfig
}

func (f *fakeJetStream) Stream(ctx context.Context, name string) (jetstream.Stream, error) {
	if f.missing {
		return nil, jetstream.ErrStreamNotFound
	}
	return f.stream, nil
}

func (f *fakeJetStream) CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.created = append(f.created, cfg)
	f.missing = false
	return f.stream, nil
}

type fakeStream struct {
	jetstream.Stream
	consumers []jetstream.ConsumerConfig
}

func (f *fakeStream) Consumer(ctx context.Context, name string) (jetstream.Consumer, error) {
	return nil, jetstream.ErrConsumerNotFound
}

func (f *fakeStream) CreateConsumer(ctx context.Context, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error) {
	f.consumers = append(f.consumers, cfg)
	return &fakeJetStreamConsumer{}, nil
}

type fakeJetStreamConsumer struct {
	jetstream.Consumer
}

func TestEnsureConsumerCreatesMissingStream(t *testing.T) {
	js := &fakeJetStream{stream: &fakeStream{}, missing: true}
	ec := &EventConsumer{js: js, config: DefaultJetStreamConsumerConfig()}

	require.NoError(t, ec.ensureConsumer(context.Background()))

	require.Len(t, js.created, 1, "missing stream must be created, not fatal")
	assert.Equal(t, "GAME_EVENTS", js.created[0].Name)
	assert.Equal(t, []string{"game.events.>"}, js.created[0].Subjects)

	require.Len(t, js.stream.consumers, 1)
	assert.Equal(t, "game-gateway", js.stream.consumers[0].Durable)
	assert.NotNil(t, ec.consumer)
}

func TestEnsureConsumerReusesExistingStream(t *testing.T) {
	js := &fakeJetStream{stream: &fakeStream{}}
	ec := &EventConsumer{js: js, config: DefaultJetStreamConsumerConfig()}

	require.NoError(t, ec.ensureConsumer(context.Background()))
	assert.Empty(t, js.created)
	require.Len(t, js.stream.consumers, 1)
}
