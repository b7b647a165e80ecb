// Package codec turns events into MQTT payload bytes.
package codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/nerrad567/mqtt-event-publisher/internal/event"
)

// ErrUnknownCodec is returned by New for an unsupported codec name.
var ErrUnknownCodec = errors.New("codec: unknown codec")

// defaultFormat is used by the plain and line codecs when no format is set.
const defaultFormat = "%{" + event.MessageField + "}"

// Codec encodes a single event.
type Codec interface {
	Name() string
	Encode(e *event.Event) ([]byte, error)
}

// New returns the codec registered under name. An empty name selects JSON.
// format is the field template of the plain and line codecs.
func New(name, format string) (Codec, error) {
	if format == "" {
		format = defaultFormat
	}

	switch strings.ToLower(name) {
	case "", "json":
		return JSON{}, nil
	case "plain":
		return Plain{Format: format}, nil
	case "line":
		return Line{Format: format}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// JSON renders the whole event as a JSON object.
type JSON struct{}

// Name implements Codec.
func (JSON) Name() string { return "json" }

// Encode implements Codec.
func (JSON) Encode(e *event.Event) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("codec json: %w", err)
	}
	return b, nil
}

// Plain renders Format with the event's fields substituted.
type Plain struct {
	Format string
}

// Name implements Codec.
func (Plain) Name() string { return "plain" }

// Encode implements Codec.
func (p Plain) Encode(e *event.Event) ([]byte, error) {
	return []byte(e.Sprintf(p.Format)), nil
}

// Line is Plain terminated by a newline.
type Line struct {
	Format string
}

// Name implements Codec.
func (Line) Name() string { return "line" }

// Encode implements Codec.
func (l Line) Encode(e *event.Event) ([]byte, error) {
	return []byte(e.Sprintf(l.Format) + "\n"), nil
}
