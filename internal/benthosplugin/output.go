package benthosplugin

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/redpanda-data/benthos/v4/public/service"

	"github.com/nerrad567/mqtt-event-publisher/internal/codec"
	"github.com/nerrad567/mqtt-event-publisher/internal/encoder"
	"github.com/nerrad567/mqtt-event-publisher/internal/event"
	"github.com/nerrad567/mqtt-event-publisher/internal/infrastructure/config"
	"github.com/nerrad567/mqtt-event-publisher/internal/infrastructure/mqtt"
	"github.com/nerrad567/mqtt-event-publisher/internal/publisher"
	"github.com/nerrad567/mqtt-event-publisher/internal/shutdown"
)

// OutputName is the name the output is registered under.
const OutputName = "mqtt_publisher"

// metadataField holds Benthos message metadata on the event.
const metadataField = "@metadata"

func init() {
	if err := service.RegisterBatchOutput(OutputName, ConfigSpec(), newOutputFromConfig); err != nil {
		panic(err)
	}
}

// ConfigSpec describes the output's configuration fields.
func ConfigSpec() *service.ConfigSpec {
	defaults := config.DefaultMQTTConfig()

	return service.NewConfigSpec().
		Summary("Publishes events to a single MQTT broker with buffered, in-order, at-least-once delivery.").
		Description(`
Every message is turned into an event and buffered. A batch is delivered over one broker
connection; if the connection or a publish fails, the remaining messages stay buffered and
delivery is retried after connect_retry_interval. Messages confirmed before a failure are
never sent again. The message in flight at the time of a failure may be delivered twice.

The topic may reference event fields with %{field} or %{[outer][inner]} placeholders.
QoS 2 is not supported.`).
		Field(service.NewStringField("host").
			Description("Broker hostname or IP address.")).
		Field(service.NewIntField("port").
			Description("Broker port.").
			Default(defaults.Port)).
		Field(service.NewStringField("topic").
			Description("Topic template. Placeholders naming a missing field are left as literal text.").
			Example("hello").
			Example("sensors/%{device}")).
		Field(service.NewBoolField("retain").
			Description("Set the retain flag on every publish.").
			Default(false)).
		Field(service.NewIntField("qos").
			Description("Quality of service: 0 (at most once) or 1 (at least once).").
			Default(defaults.QoS)).
		Field(service.NewStringField("client_id").
			Description("Client identifier. Generated once at startup when empty.").
			Default("").
			Advanced()).
		Field(service.NewStringField("username").
			Default("")).
		Field(service.NewStringField("password").
			Default("").
			Secret()).
		Field(service.NewBoolField("ssl").
			Description("Connect over TLS.").
			Default(false)).
		Field(service.NewStringField("cert_file").
			Description("Client certificate for mutual TLS. Requires key_file and ca_file.").
			Default("").
			Advanced()).
		Field(service.NewStringField("key_file").
			Default("").
			Advanced()).
		Field(service.NewStringField("ca_file").
			Default("").
			Advanced()).
		Field(service.NewDurationField("connect_retry_interval").
			Description("Fixed wait between delivery attempts after a failure.").
			Default(defaults.GetConnectRetryInterval().String())).
		Field(service.NewDurationField("connect_timeout").
			Default(defaults.GetConnectTimeout().String()).
			Advanced()).
		Field(service.NewDurationField("publish_timeout").
			Default(defaults.GetPublishTimeout().String()).
			Advanced()).
		Field(service.NewDurationField("keep_alive").
			Default(defaults.GetKeepAlive().String()).
			Advanced()).
		Field(service.NewStringField("codec").
			Description("Payload encoding: json, plain or line.").
			Default("json")).
		Field(service.NewStringField("format").
			Description("Field template for the plain and line codecs.").
			Default("").
			Advanced()).
		Field(service.NewBatchPolicyField("batching"))
}

// settings is the parsed form of the output configuration.
type settings struct {
	mqtt          config.MQTTConfig
	codec         codec.Codec
	retryInterval time.Duration
}

func parseSettings(conf *service.ParsedConfig) (settings, error) {
	var (
		s   settings
		err error
	)
	m := config.DefaultMQTTConfig()

	strs := []struct {
		name string
		dst  *string
	}{
		{"host", &m.Host},
		{"topic", &m.Topic},
		{"client_id", &m.ClientID},
		{"username", &m.Username},
		{"password", &m.Password},
		{"cert_file", &m.CertFile},
		{"key_file", &m.KeyFile},
		{"ca_file", &m.CAFile},
	}
	for _, f := range strs {
		if *f.dst, err = conf.FieldString(f.name); err != nil {
			return s, err
		}
	}

	if m.Port, err = conf.FieldInt("port"); err != nil {
		return s, err
	}
	if m.QoS, err = conf.FieldInt("qos"); err != nil {
		return s, err
	}
	if m.Retain, err = conf.FieldBool("retain"); err != nil {
		return s, err
	}
	if m.SSL, err = conf.FieldBool("ssl"); err != nil {
		return s, err
	}

	if s.retryInterval, err = conf.FieldDuration("connect_retry_interval"); err != nil {
		return s, err
	}
	m.ConnectRetryInterval = seconds(s.retryInterval)

	durs := []struct {
		name string
		dst  *int
	}{
		{"connect_timeout", &m.ConnectTimeout},
		{"publish_timeout", &m.PublishTimeout},
		{"keep_alive", &m.KeepAlive},
	}
	for _, f := range durs {
		d, err := conf.FieldDuration(f.name)
		if err != nil {
			return s, err
		}
		*f.dst = seconds(d)
	}

	if err := m.Validate(); err != nil {
		return s, err
	}

	name, err := conf.FieldString("codec")
	if err != nil {
		return s, err
	}
	format, err := conf.FieldString("format")
	if err != nil {
		return s, err
	}
	if s.codec, err = codec.New(name, format); err != nil {
		return s, err
	}

	s.mqtt = m
	return s, nil
}

// seconds rounds d up to whole seconds.
func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

func newOutputFromConfig(conf *service.ParsedConfig, mgr *service.Resources) (service.BatchOutput, service.BatchPolicy, int, error) {
	// One batch at a time keeps the buffer in arrival order.
	maxInFlight := 1

	batchPolicy, err := conf.FieldBatchPolicy("batching")
	if err != nil {
		return nil, batchPolicy, 0, err
	}

	s, err := parseSettings(conf)
	if err != nil {
		return nil, batchPolicy, 0, err
	}

	return newOutput(s, mgr.Logger()), batchPolicy, maxInFlight, nil
}

// dialerFunc builds the broker dialer from connection options.
type dialerFunc func(*mqtt.Options) mqtt.Dialer

func defaultDialer(opts *mqtt.Options) mqtt.Dialer {
	return mqtt.NewConnector(opts)
}

type output struct {
	settings settings
	log      *service.Logger
	dial     dialerFunc
	shutdown *shutdown.Coordinator

	mu  sync.Mutex
	pub *publisher.Publisher
}

func newOutput(s settings, log *service.Logger) *output {
	return &output{
		settings: s,
		log:      log,
		dial:     defaultDialer,
		shutdown: shutdown.New(),
	}
}

// Connect prepares the publisher. Broker connections are opened per batch,
// so no network traffic happens here.
func (o *output) Connect(_ context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pub != nil {
		return nil
	}

	opts, err := mqtt.BuildOptions(o.settings.mqtt)
	if err != nil {
		return err
	}

	enc, err := encoder.New(o.settings.mqtt.Topic, o.settings.codec)
	if err != nil {
		return err
	}

	pub, err := publisher.New(publisher.Options{
		Encoder:       enc,
		Dialer:        o.dial(opts),
		QoS:           byte(o.settings.mqtt.QoS),
		Retain:        o.settings.mqtt.Retain,
		RetryInterval: o.settings.retryInterval,
		Logger:        serviceLogger{o.log},
		Shutdown:      o.shutdown,
	})
	if err != nil {
		return err
	}
	o.pub = pub

	o.log.Infof("MQTT publisher ready: broker=%s client_id=%s topic=%s", opts.BrokerURL(), opts.ClientID(), o.settings.mqtt.Topic)
	return nil
}

// WriteBatch buffers and delivers every message of batch.
//
// Messages that cannot be encoded are logged and dropped rather than
// failing the batch, since a retried batch would republish the messages
// that were already confirmed.
func (o *output) WriteBatch(ctx context.Context, batch service.MessageBatch) error {
	o.mu.Lock()
	pub := o.pub
	o.mu.Unlock()
	if pub == nil {
		return service.ErrNotConnected
	}

	evs := make([]*event.Event, 0, len(batch))
	for _, msg := range batch {
		evs = append(evs, messageToEvent(msg))
	}

	err := pub.ReceiveMany(ctx, evs)
	switch {
	case errors.Is(err, publisher.ErrClosed), ctx.Err() != nil:
		return err
	case pub.State() == publisher.StateClosed && pub.Pending() > 0:
		// Close interrupted the backoff; nacking lets Benthos redeliver.
		return fmt.Errorf("%w: %d messages undelivered", publisher.ErrClosed, pub.Pending())
	case err != nil:
		o.log.Warnf("Dropped messages that could not be encoded: %v", err)
		return nil
	default:
		return nil
	}
}

// Close stops any backoff in progress. Messages still buffered are not delivered.
func (o *output) Close(_ context.Context) error {
	o.shutdown.Request()
	return nil
}

// messageToEvent converts a Benthos message into an event.
func messageToEvent(msg *service.Message) *event.Event {
	var ev *event.Event

	if structured, err := msg.AsStructured(); err == nil {
		if fields, ok := structured.(map[string]any); ok {
			ev = event.New(fields)
		}
	}
	if ev == nil {
		body, _ := msg.AsBytes()
		ev = event.FromMessage(string(body))
	}

	meta := map[string]any{}
	_ = msg.MetaWalk(func(key, value string) error {
		meta[key] = value
		return nil
	})
	if len(meta) > 0 {
		ev.Set(metadataField, meta)
	}

	return ev
}

// serviceLogger adapts *service.Logger to publisher.Logger.
type serviceLogger struct {
	l *service.Logger
}

func (s serviceLogger) Debug(msg string, args ...any) { s.l.Debugf("%s%s", msg, formatArgs(args)) }
func (s serviceLogger) Info(msg string, args ...any)  { s.l.Infof("%s%s", msg, formatArgs(args)) }
func (s serviceLogger) Warn(msg string, args ...any)  { s.l.Warnf("%s%s", msg, formatArgs(args)) }
func (s serviceLogger) Error(msg string, args ...any) { s.l.Errorf("%s%s", msg, formatArgs(args)) }

// formatArgs renders slog-style key/value pairs as " key=value".
func formatArgs(args []any) string {
	var out string
	for i := 0; i+1 < len(args); i += 2 {
		out += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	if len(args)%2 == 1 {
		out += fmt.Sprintf(" !BADKEY=%v", args[len(args)-1])
	}
	return out
}
