package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/nerrad567/mqtt-event-publisher/internal/event"
)

// maxLineSize is the longest input record accepted.
const maxLineSize = 1 << 20

// readEvents decodes one event per non-blank line of r and sends it on out.
// out is closed when r is exhausted.
func readEvents(r io.Reader, out chan<- *event.Event) error {
	defer close(out)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		if ev := decodeLine(scanner.Bytes()); ev != nil {
			out <- ev
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning input: %w", err)
	}
	return nil
}

// decodeLine turns a JSON object into an event with its fields. Any other
// non-blank line becomes an event carrying it as the message. Blank lines
// return nil.
func decodeLine(line []byte) *event.Event {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	if line[0] == '{' {
		var fields map[string]any
		if err := json.Unmarshal(line, &fields); err == nil {
			return event.New(fields)
		}
	}

	return event.FromMessage(string(line))
}

// pump groups events into batches of at most size and passes each to
// deliver. A partial batch is flushed every interval and when events closes.
// When ctx ends, events already queued are delivered in a final batch before
// ctx.Err() is returned. A deliver error stops the pump.
func pump(ctx context.Context, events <-chan *event.Event, size int, interval time.Duration, deliver func([]*event.Event) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	batch := make([]*event.Event, 0, size)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := deliver(batch)
		batch = make([]*event.Event, 0, size)
		return err
	}

	for {
		select {
		case <-ctx.Done():
			batch = append(batch, drainQueued(events)...)
			if err := flush(); err != nil {
				return err
			}
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return flush()
			}
			batch = append(batch, ev)
			if len(batch) >= size {
				if err := flush(); err != nil {
					return err
				}
			}
		case <-ticker.C:
			if err := flush(); err != nil {
				return err
			}
		}
	}
}

// drainQueued returns the events already sitting in events without waiting
// for more.
func drainQueued(events <-chan *event.Event) []*event.Event {
	var out []*event.Event
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}
