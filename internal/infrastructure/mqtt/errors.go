package mqtt

import "errors"

// Domain-specific errors for MQTT operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when attempting operations on a disconnected client.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned when a connection attempt fails or times out.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrDisconnectFailed is returned by WithConnection when closing a Conn
	// fails after the work done on it succeeded. *Client never fails to close.
	ErrDisconnectFailed = errors.New("mqtt: disconnect failed")

	// ErrPublishFailed is returned when a publish operation fails.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrInvalidQoS is returned when an invalid QoS level is specified.
	// Valid QoS levels are 0 and 1; QoS 2 is not supported.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0 or 1)")

	// ErrPayloadTooLarge is returned for a payload over MaxPayloadSize.
	// Resending it cannot succeed.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")

	// ErrInvalidTopic is returned when a topic cannot be used for publishing.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrInvalidTLS is returned when TLS material cannot be loaded.
	ErrInvalidTLS = errors.New("mqtt: invalid TLS configuration")
)
