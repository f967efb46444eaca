package service

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/rubriq/rubriq-api/internal/observability"
)

// Event subjects published for UI subscribers.
const (
	EventAnswerGraded      = "rubriq.answer.graded"
	EventSubmissionParsed  = "rubriq.submission.parsed"
	EventSubmissionDeleted = "rubriq.submission.deleted"
	EventBatchProgress     = "rubriq.batch.progress"
	EventBatchCompleted    = "rubriq.batch.completed"
)

// EventPublisher emits grading lifecycle events. Publishing is best-effort;
// failures are logged, never propagated to the request.
type EventPublisher interface {
	Publish(subject string, payload interface{})
}

type natsPublisher struct {
	conn   *nats.Conn
	nodeID string
	logger zerolog.Logger
}

type eventEnvelope struct {
	Source  string      `json:"source"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

// NewEventPublisher wraps a NATS connection. A nil connection yields a no-op
// publisher so callers never need to branch.
func NewEventPublisher(conn *nats.Conn, logger zerolog.Logger) EventPublisher {
	if conn == nil {
		return nopPublisher{}
	}

	return &natsPublisher{
		conn:   conn,
		nodeID: uuid.NewString(),
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsPublisher) Publish(subject string, payload interface{}) {
	observability.GradingEvents().WithLabelValues(strings.TrimPrefix(subject, "rubriq.")).Inc()

	data, err := json.Marshal(eventEnvelope{
		Source:  p.nodeID,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to encode event")
		return
	}

	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, interface{}) {}
