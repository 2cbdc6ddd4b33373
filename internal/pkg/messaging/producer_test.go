package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/vaxportal/internal/app/models"
)

type capturePublisher struct {
	subject string
	data    []byte
	err     error
}

func (c *capturePublisher) Publish(subject string, data []byte) error {
	c.subject = subject
	c.data = data
	return c.err
}

func TestProducer_Publish(t *testing.T) {
	capture := &capturePublisher{}
	p := &Producer{conn: capture, subject: "vaxportal.activity", logger: zerolog.Nop()}

	userID := int64(1)
	p.Publish(context.Background(), models.ActivityEvent{
		Action:      models.ActionCreateRecord,
		Description: "Recorded vaccination for Asha Rao",
		UserID:      &userID,
		EntityID:    42,
		Timestamp:   time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, "vaxportal.activity.CREATE_VACCINATION_RECORD", capture.subject)

	var got models.ActivityEvent
	require.NoError(t, json.Unmarshal(capture.data, &got))
	assert.Equal(t, int64(42), got.EntityID)
	assert.Equal(t, userID, *got.UserID)
}

func TestProducer_PublishErrorIsSwallowed(t *testing.T) {
	p := &Producer{conn: &capturePublisher{err: errors.New("nats: connection closed")}, subject: "s", logger: zerolog.Nop()}
	assert.NotPanics(t, func() {
		p.Publish(context.Background(), models.ActivityEvent{Action: models.ActionLogin})
	})
	assert.NoError(t, p.Close())
}
