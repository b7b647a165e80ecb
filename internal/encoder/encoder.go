// Package encoder adapts events into buffered MQTT publications.
//
// An Encoder resolves the per-event topic from a field template and renders
// the payload with the configured codec. It has no network side effects.
package encoder

import (
	"errors"
	"fmt"

	"github.com/nerrad567/mqtt-event-publisher/internal/buffer"
	"github.com/nerrad567/mqtt-event-publisher/internal/codec"
	"github.com/nerrad567/mqtt-event-publisher/internal/event"
	"github.com/nerrad567/mqtt-event-publisher/internal/infrastructure/mqtt"
)

// ErrNoCodec is returned by New when no codec is supplied.
var ErrNoCodec = errors.New("encoder: codec is required")

// Encoder turns one event into one buffer.Item.
type Encoder struct {
	topic string
	codec codec.Codec
}

// New returns an Encoder publishing to topicTemplate. The template may hold
// %{field} placeholders, resolved per event.
func New(topicTemplate string, c codec.Codec) (*Encoder, error) {
	if topicTemplate == "" {
		return nil, fmt.Errorf("%w: topic template cannot be empty", mqtt.ErrInvalidTopic)
	}
	if c == nil {
		return nil, ErrNoCodec
	}
	return &Encoder{topic: topicTemplate, codec: c}, nil
}

// Topic returns the unresolved topic template.
func (e *Encoder) Topic() string {
	return e.topic
}

// Encode resolves the topic for ev and encodes its payload.
//
// Returns:
//   - buffer.Item: Resolved topic and payload, ready for buffering
//   - error: Codec failure, or a topic or payload size no broker would accept
func (e *Encoder) Encode(ev *event.Event) (buffer.Item, error) {
	topic := ev.Sprintf(e.topic)
	if err := mqtt.ValidatePublishTopic(topic); err != nil {
		return buffer.Item{}, err
	}

	payload, err := e.codec.Encode(ev)
	if err != nil {
		return buffer.Item{}, fmt.Errorf("encoding with %s codec: %w", e.codec.Name(), err)
	}
	if err := mqtt.ValidatePayload(payload); err != nil {
		return buffer.Item{}, err
	}

	return buffer.Item{Topic: topic, Payload: payload}, nil
}
