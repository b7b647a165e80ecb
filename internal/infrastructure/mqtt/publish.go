package mqtt

import (
	"fmt"
)

// MaxPayloadSize is the largest payload Publish accepts (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const MaxPayloadSize = 1 << 20 // 1MB

// ValidatePayload checks that payload fits within MaxPayloadSize.
func ValidatePayload(payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("%w: %d bytes exceeds maximum %d", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}
	return nil
}

// Publish sends a message to the specified MQTT topic and waits for the
// library to report completion.
//
// QoS Levels:
//   - 0: At most once. Completes once the frame is written.
//   - 1: At least once. Completes on PUBACK from the broker.
//
// A failure after the frame left the client may still mean the broker got
// the message; callers retrying on error accept a possible duplicate.
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := ValidatePublishTopic(topic); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if err := ValidatePayload(payload); err != nil {
		return err
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(c.opts.publishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, c.opts.publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}
