package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "reservations/internal/app/outbox"
	"reservations/internal/infra/outbox"
	"reservations/internal/infra/storage/memory"
)

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	mu   sync.Mutex
	fail error
	sent []published
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.sent = append(p.sent, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func addRecord(t *testing.T, box *memory.Outbox, id, name string) {
	t.Helper()
	require.NoError(t, box.Add(context.Background(), appoutbox.EventRecord{
		ID:         id,
		Name:       name,
		Aggregate:  "agg-" + id,
		Payload:    []byte(`{"bookingId":"` + id + `"}`),
		OccurredAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}))
}

func TestWorkerDrainPublishesCloudEvents(t *testing.T) {
	box := memory.NewOutbox()
	addRecord(t, box, "e1", "booking.confirmed")
	addRecord(t, box, "e2", "review.submitted")
	producer := &fakeProducer{}
	w := &outbox.Worker{Store: box, Producer: producer, TopicPrefix: "dev."}

	sent, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Zero(t, box.Pending())

	require.Len(t, producer.sent, 2)
	first := producer.sent[0]
	assert.Equal(t, "dev.booking.events.v1", first.topic)
	assert.Equal(t, "agg-e1", first.key)
	assert.Equal(t, "application/cloudevents+json", first.headers["content-type"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(first.payload, &evt))
	assert.Equal(t, "1.0", evt["specversion"])
	assert.Equal(t, "booking.confirmed.v1", evt["type"])
	assert.Equal(t, "e1", evt["id"])
	assert.Equal(t, map[string]any{"bookingId": "e1"}, evt["data"])

	assert.Equal(t, "dev.review.events.v1", producer.sent[1].topic)
}

func TestWorkerMarksFailedAndRetriesLater(t *testing.T) {
	box := memory.NewOutbox()
	addRecord(t, box, "e1", "booking.cancelled")
	producer := &fakeProducer{fail: errors.New("broker down")}
	w := &outbox.Worker{Store: box, Producer: producer, Backoff: []time.Duration{time.Hour}}

	sent, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, 1, box.Pending())

	// Backoff keeps the envelope out of reach for now.
	producer.fail = nil
	sent, err = w.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestWorkerRejectsMissingDependencies(t *testing.T) {
	w := &outbox.Worker{}
	assert.ErrorIs(t, w.Run(context.Background()), outbox.ErrWorkerNotConfigured)
}
