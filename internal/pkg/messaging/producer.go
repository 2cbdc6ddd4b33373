package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/pkg/metrics"
)

// publisher is the part of *nats.Conn the producer needs
type publisher interface {
	Publish(subject string, data []byte) error
}

// Producer publishes committed activity events to a NATS subject
type Producer struct {
	conn    publisher
	close   func()
	subject string
	logger  zerolog.Logger
}

// NewProducer connects to url and publishes on subject
func NewProducer(url, subject string, logger zerolog.Logger) (*Producer, error) {
	nc, err := nats.Connect(url,
		nats.Name("vaxportal"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info().Str("url", url).Str("subject", subject).Msg("NATS producer initialized")

	return &Producer{
		conn:    nc,
		close:   nc.Close,
		subject: subject,
		logger:  logger,
	}, nil
}

// Subject returns the subject for an action, e.g. vaxportal.activity.CREATE_VACCINATION_RECORD
func (p *Producer) Subject(action models.ActivityAction) string {
	return p.subject + "." + string(action)
}

// Publish sends the event. Failures are logged and counted, never returned,
// since the change it describes has already committed.
func (p *Producer) Publish(_ context.Context, event models.ActivityEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to marshal activity event")
		metrics.EventPublished(err)
		return
	}

	subject := p.Subject(event.Action)
	err = p.conn.Publish(subject, data)
	metrics.EventPublished(err)
	if err != nil {
		p.logger.Error().Err(err).Str("subject", subject).Msg("failed to send activity event to NATS")
		return
	}

	p.logger.Debug().Str("subject", subject).Msg("activity event sent to NATS")
}

// Close closes the NATS connection
func (p *Producer) Close() error {
	if p.close != nil {
		p.close()
	}
	return nil
}
