package kafka

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/tc-bias-correction/internal/config"
	"github.com/couchcryptid/tc-bias-correction/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("cnrm-rcp85"),
		Value:     []byte(`{"id":"cnrm-rcp85"}`),
		Topic:     "tc-correction-requests",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("ibtracs")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("cnrm-rcp85"), raw.Key)
	assert.JSONEq(t, `{"id":"cnrm-rcp85"}`, string(raw.Value))
	assert.Equal(t, "tc-correction-requests", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "ibtracs", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestOutputToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	event := domain.OutputEvent{
		Key:   []byte("cnrm-rcp85"),
		Value: []byte(`{"id":"cnrm-rcp85","family":"lognorm"}`),
		Headers: map[string]string{
			"processed_at": now.Format(time.RFC3339),
			"mode":         "ratio",
			"family":       "lognorm",
		},
	}

	msg := outputToMessage(event)

	assert.Equal(t, []byte("cnrm-rcp85"), msg.Key)
	assert.Contains(t, string(msg.Value), `"family":"lognorm"`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "family", msg.Headers[0].Key)
	assert.Equal(t, []byte("lognorm"), msg.Headers[0].Value)
	assert.Equal(t, "mode", msg.Headers[1].Key)
	assert.Equal(t, "processed_at", msg.Headers[2].Key)
	assert.Equal(t, []byte("2024-04-26T15:10:00Z"), msg.Headers[2].Value)
}

func TestWriter_LoadBatch_Empty(t *testing.T) {
	w := NewWriter(&config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaSinkTopic: "sink"}, slog.Default())
	t.Cleanup(func() { _ = w.Close() })

	assert.NoError(t, w.LoadBatch(context.Background(), nil))
}
