package mqtt

import (
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Conn is one live broker connection.
type Conn interface {
	// Publish sends payload to topic and returns once the library reports completion.
	Publish(topic string, payload []byte, qos byte, retained bool) error
	// Close disconnects cleanly. It is safe to call more than once.
	Close() error
}

// Dialer opens broker connections.
type Dialer interface {
	Dial() (Conn, error)
}

// pahoClient is the subset of pahomqtt.Client used here.
type pahoClient interface {
	Connect() pahomqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
	IsConnected() bool
}

// Connector dials new paho connections from a shared Options snapshot.
//
// Thread Safety:
//   - Dial may be called from multiple goroutines; each call returns an
//     independent connection.
type Connector struct {
	opts      *Options
	newClient func(*pahomqtt.ClientOptions) pahoClient
}

// NewConnector returns a Connector for opts.
func NewConnector(opts *Options) *Connector {
	return &Connector{
		opts: opts,
		newClient: func(o *pahomqtt.ClientOptions) pahoClient {
			return pahomqtt.NewClient(o)
		},
	}
}

// Dial performs the full handshake: network connect, optional TLS and
// optional username/password authentication.
//
// Returns:
//   - Conn: Connected client ready for publishing
//   - error: ErrConnectionFailed wrapping the cause, or a timeout
func (c *Connector) Dial() (Conn, error) {
	client := c.newClient(c.opts.paho)

	token := client.Connect()
	if !token.WaitTimeout(c.opts.connectTimeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("%w: %s: timeout after %v", ErrConnectionFailed, c.opts.brokerURL, c.opts.connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, c.opts.brokerURL, err)
	}

	return &Client{client: client, opts: c.opts}, nil
}

// Client is a single connection established by Connector.Dial.
type Client struct {
	client pahoClient
	opts   *Options

	closeOnce sync.Once
}

// Close gracefully disconnects from the MQTT broker, waiting briefly for
// pending operations.
//
// paho's Disconnect reports no error, so Close always returns nil and
// WithConnection never yields ErrDisconnectFailed for a *Client. The error
// return exists for other Conn implementations.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	c.closeOnce.Do(func() {
		c.client.Disconnect(defaultDisconnectQuiesce)
	})

	return nil
}

// IsConnected returns the current connection state as seen by the library.
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

// WithConnection dials one connection, runs fn with it and closes it on
// every exit path, including a panic in fn.
//
// A dial failure or an error returned by fn is returned unchanged. A close
// failure is reported only when fn itself succeeded.
func WithConnection(d Dialer, fn func(Conn) error) (err error) {
	conn, err := d.Dial()
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := conn.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrDisconnectFailed, closeErr)
		}
	}()

	return fn(conn)
}
