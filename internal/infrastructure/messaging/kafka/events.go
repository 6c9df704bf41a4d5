package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MultiNLU/pkg/errors"
	"github.com/turtacn/MultiNLU/pkg/types/nlu"
)

const (
	// EventTypeParseCompleted marks a dispatched parse request.
	EventTypeParseCompleted = "nlu.parse.completed"

	eventSource   = "multinlu"
	schemaVersion = "v1"
)

// EventEnvelope standardizes event messages.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func NewEventEnvelope(eventType string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        eventSource,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		Payload:       data,
	}, nil
}

func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	return json.Unmarshal(e.Payload, target)
}

func (e *EventEnvelope) ToMessage(topic string, key []byte) (*ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	return &ProducerMessage{
		Topic: topic,
		Key:   key,
		Value: val,
		Headers: map[string]string{
			"event_type":     e.EventType,
			"source_service": e.Source,
			"schema_version": e.SchemaVersion,
		},
		Timestamp: e.Timestamp,
	}, nil
}

func MessageToEventEnvelope(msg *Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

// Publisher is the subset of Producer used by ParsePublisher.
type Publisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
}

// ParsePublisher emits one envelope per parse event, keyed by locale so
// that a locale's events stay ordered within a partition.
type ParsePublisher struct {
	producer Publisher
	topic    string
	logger   logging.Logger
}

func NewParsePublisher(producer Publisher, topic string, logger logging.Logger) *ParsePublisher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ParsePublisher{producer: producer, topic: topic, logger: logger}
}

// PublishParse wraps ev in an envelope and publishes it.
func (p *ParsePublisher) PublishParse(ctx context.Context, ev nlu.ParseEvent) error {
	env, err := NewEventEnvelope(EventTypeParseCompleted, ev)
	if err != nil {
		return err
	}
	env.EventID = ev.EventID
	env.Metadata = map[string]string{"locale": ev.Locale}

	msg, err := env.ToMessage(p.topic, []byte(ev.Locale))
	if err != nil {
		return err
	}
	if err := p.producer.Publish(ctx, msg); err != nil {
		p.logger.Warn("parse event not published",
			logging.String("locale", ev.Locale), logging.String("event_id", ev.EventID), logging.Err(err))
		return err
	}
	return nil
}

// DecodeParseEvent extracts a ParseEvent from a consumed message.
func DecodeParseEvent(msg *Message) (nlu.ParseEvent, error) {
	var ev nlu.ParseEvent
	env, err := MessageToEventEnvelope(msg)
	if err != nil {
		return ev, err
	}
	if env.EventType != EventTypeParseCompleted {
		return ev, errors.New(errors.ErrCodeValidation, "unexpected event type").WithDetail(env.EventType)
	}
	if err := env.DecodePayload(&ev); err != nil {
		return ev, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode parse event")
	}
	return ev, nil
}

//Personal.AI order the ending
