package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/mqtt-event-publisher/internal/buffer"
	"github.com/nerrad567/mqtt-event-publisher/internal/encoder"
	"github.com/nerrad567/mqtt-event-publisher/internal/event"
	"github.com/nerrad567/mqtt-event-publisher/internal/infrastructure/logging"
	"github.com/nerrad567/mqtt-event-publisher/internal/infrastructure/metrics"
	"github.com/nerrad567/mqtt-event-publisher/internal/infrastructure/mqtt"
	"github.com/nerrad567/mqtt-event-publisher/internal/shutdown"
)

// DefaultRetryInterval is the backoff between delivery attempts when none is set.
const DefaultRetryInterval = 10 * time.Second

// Logger is the logging surface the publisher needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options configures a Publisher.
type Options struct {
	// Encoder resolves topics and payloads. Required.
	Encoder *encoder.Encoder
	// Dialer opens broker connections. Required.
	Dialer mqtt.Dialer

	QoS    byte
	Retain bool

	// RetryInterval is the fixed backoff after a failed attempt.
	// Zero selects DefaultRetryInterval.
	RetryInterval time.Duration

	// Logger defaults to a discarding logger.
	Logger Logger
	// Metrics may be nil.
	Metrics *metrics.Metrics
	// Shutdown defaults to a private coordinator reachable through Shutdown.
	Shutdown *shutdown.Coordinator
}

// Publisher buffers events and delivers them to one MQTT broker.
//
// Thread Safety:
//   - Receive, ReceiveMany and Shutdown may be called from any goroutine.
//   - Concurrent Receive calls serialize on delivery; all items they buffer
//     are published in push order.
type Publisher struct {
	encoder  *encoder.Encoder
	dialer   mqtt.Dialer
	qos      byte
	retain   bool
	interval time.Duration
	logger   Logger
	metrics  *metrics.Metrics
	shutdown *shutdown.Coordinator

	buf     *buffer.Buffer
	drainMu sync.Mutex
	state   atomic.Int32
}

// New returns a Publisher in the idle state.
func New(opts Options) (*Publisher, error) {
	if opts.Encoder == nil {
		return nil, fmt.Errorf("%w: encoder", ErrMissingDependency)
	}
	if opts.Dialer == nil {
		return nil, fmt.Errorf("%w: dialer", ErrMissingDependency)
	}
	if opts.QoS > 1 {
		return nil, mqtt.ErrInvalidQoS
	}

	p := &Publisher{
		encoder:  opts.Encoder,
		dialer:   opts.Dialer,
		qos:      opts.QoS,
		retain:   opts.Retain,
		interval: opts.RetryInterval,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		shutdown: opts.Shutdown,
		buf:      buffer.New(),
	}
	if p.interval <= 0 {
		p.interval = DefaultRetryInterval
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	if p.shutdown == nil {
		p.shutdown = shutdown.New()
	}

	return p, nil
}

// Receive encodes ev, buffers it and runs one delivery invocation.
func (p *Publisher) Receive(ctx context.Context, ev *event.Event) error {
	if p.State() == StateClosed {
		return ErrClosed
	}

	item, err := p.encode(ev)
	if err != nil {
		return err
	}
	p.buf.Push(item)
	p.metrics.SetBufferDepth(p.buf.Len())

	return p.deliver(ctx)
}

// ReceiveMany encodes and buffers every event in evs, then runs a single
// delivery invocation so the whole batch shares one connection.
//
// Events that fail to encode are skipped; their errors are joined into the
// returned error while the rest of the batch is still delivered.
func (p *Publisher) ReceiveMany(ctx context.Context, evs []*event.Event) error {
	if p.State() == StateClosed {
		return ErrClosed
	}

	items := make([]buffer.Item, 0, len(evs))
	var encodeErrs []error
	for _, ev := range evs {
		item, err := p.encode(ev)
		if err != nil {
			encodeErrs = append(encodeErrs, err)
			continue
		}
		items = append(items, item)
	}

	if len(items) > 0 {
		p.buf.Push(items...)
		p.metrics.SetBufferDepth(p.buf.Len())
	}

	return errors.Join(errors.Join(encodeErrs...), p.deliver(ctx))
}

// Shutdown requests a stop. A backoff wait in progress ends immediately and
// no further attempts are made after the current one fails. Safe to call
// repeatedly and concurrently.
func (p *Publisher) Shutdown() {
	p.shutdown.Request()
}

// State returns the current delivery state.
func (p *Publisher) State() State {
	return State(p.state.Load())
}

// Pending returns the number of buffered, unconfirmed items.
func (p *Publisher) Pending() int {
	return p.buf.Len()
}

func (p *Publisher) setState(s State) {
	p.state.Store(int32(s))
}

func (p *Publisher) encode(ev *event.Event) (buffer.Item, error) {
	item, err := p.encoder.Encode(ev)
	if err != nil {
		p.metrics.IncEncodeError()
		p.logger.Warn("event rejected", "topic", p.encoder.Topic(), "error", err)
		return buffer.Item{}, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return item, nil
}

// deliver runs the connect-drain-backoff loop until the buffer is empty,
// shutdown ends a backoff, or ctx is cancelled during a backoff.
func (p *Publisher) deliver(ctx context.Context) error {
	p.drainMu.Lock()
	defer p.drainMu.Unlock()

	// A drain that completed while this call waited for the lock may
	// already have closed the publisher.
	if p.State() == StateClosed {
		return nil
	}

	for {
		if p.buf.Len() == 0 {
			p.setState(StateIdle)
			return nil
		}

		start := time.Now()
		err := p.attempt()
		p.metrics.ObserveDrain(time.Since(start))
		p.metrics.SetBufferDepth(p.buf.Len())

		if err == nil {
			p.setState(StateIdle)
			return nil
		}

		pending := p.buf.Len()
		p.logger.Warn("delivery attempt failed",
			"error", err,
			"pending", pending,
			"retry_in", p.interval,
		)

		// Only the close failed; every item was confirmed.
		if pending == 0 {
			p.setState(StateIdle)
			return nil
		}

		p.setState(StateBackoff)
		p.metrics.IncRetry()

		switch werr := p.shutdown.Wait(ctx, p.interval); {
		case werr == nil:
			continue
		case errors.Is(werr, shutdown.ErrShutdown):
			p.close()
			return nil
		default:
			p.setState(StateIdle)
			return werr
		}
	}
}

// attempt makes one connection and drains the buffer over it.
func (p *Publisher) attempt() error {
	p.setState(StateConnecting)
	p.metrics.IncConnectAttempt()

	connected := false
	err := mqtt.WithConnection(p.dialer, func(conn mqtt.Conn) error {
		connected = true
		p.setState(StateDraining)
		p.logger.Debug("connected to broker", "pending", p.buf.Len())
		return p.drain(conn)
	})
	if err != nil && !connected {
		p.metrics.IncConnectError()
	}
	return err
}

// drain publishes the buffer head until it is empty. An item leaves the
// buffer only after its publish completes.
func (p *Publisher) drain(conn mqtt.Conn) error {
	for {
		item, ok := p.buf.PeekFront()
		if !ok {
			return nil
		}

		if err := conn.Publish(item.Topic, item.Payload, p.qos, p.retain); err != nil {
			p.metrics.IncPublishError()
			return fmt.Errorf("publishing to %s: %w", item.Topic, err)
		}

		p.buf.PopFront()
		p.metrics.IncPublished()
	}
}

// close stops the loop and reports what is left undelivered.
func (p *Publisher) close() {
	p.setState(StateClosed)

	abandoned := p.buf.Snapshot()
	p.metrics.AddAbandoned(len(abandoned))

	byTopic := make(map[string]int)
	for _, item := range abandoned {
		byTopic[item.Topic]++
	}
	p.logger.Warn("shutdown requested during backoff, stopping delivery",
		"undelivered", len(abandoned),
		"topics", len(byTopic),
	)
	for topic, n := range byTopic {
		p.logger.Debug("undelivered messages", "topic", topic, "count", n)
	}
}
