// Package benthosplugin registers the event publisher as a Benthos batch
// output named "mqtt_publisher".
//
// Each message in a batch becomes one event: a structured JSON body supplies
// the event fields, any other body becomes the message field, and message
// metadata is placed under [@metadata]. The whole batch is handed to the
// publisher in one call so it shares a single broker connection.
//
// Example pipeline:
//
//	output:
//	  mqtt_publisher:
//	    host: broker.local
//	    port: 1883
//	    topic: sensors/%{device}
//	    qos: 1
//	    connect_retry_interval: 10s
//
// Import the package for its side effect:
//
//	import _ "github.com/nerrad567/mqtt-event-publisher/internal/benthosplugin"
package benthosplugin
