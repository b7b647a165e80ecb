package mqtt

import (
	"fmt"
	"strings"
)

// maxTopicLength is the MQTT limit on a UTF-8 encoded topic name.
const maxTopicLength = 65535

// ValidatePublishTopic checks that topic is usable as a PUBLISH topic name.
//
// Rules (MQTT 3.1.1 section 4.7):
//   - Non-empty and at most 65535 bytes
//   - No wildcard characters ('+' or '#'); those are only valid in filters
//   - No NUL character
//
// A topic that breaks these rules would be rejected by every broker, so
// publishing it again cannot succeed.
func ValidatePublishTopic(topic string) error {
	switch {
	case topic == "":
		return fmt.Errorf("%w: topic cannot be empty", ErrInvalidTopic)
	case len(topic) > maxTopicLength:
		return fmt.Errorf("%w: topic length %d exceeds %d bytes", ErrInvalidTopic, len(topic), maxTopicLength)
	case strings.ContainsAny(topic, "+#"):
		return fmt.Errorf("%w: wildcards are not allowed in %q", ErrInvalidTopic, topic)
	case strings.ContainsRune(topic, 0):
		return fmt.Errorf("%w: topic contains NUL", ErrInvalidTopic)
	}
	return nil
}
