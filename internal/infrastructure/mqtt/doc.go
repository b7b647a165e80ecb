// Package mqtt provides broker connectivity for the event publisher.
//
// This package manages:
//   - The immutable connection options snapshot (broker URL, client ID,
//     credentials, TLS material, timeouts)
//   - Dialing one connection per delivery attempt
//   - Scoped connection use through WithConnection, which always closes
//   - Publishing with QoS 0 or 1 and a per-publish timeout
//   - Publish topic validation
//
// # Architecture
//
// The library's own reconnect logic is disabled. A connection lives for one
// drain of the event buffer; on any failure it is discarded and the delivery
// loop dials a fresh one after its backoff.
//
//	publisher → WithConnection(dialer, drain) → paho → broker
//
// # Security Considerations
//
//   - TLS 1.2 is the minimum when ssl is enabled
//   - Client certificate, key and CA are loaded once at startup
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	opts, err := mqtt.BuildOptions(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = mqtt.WithConnection(mqtt.NewConnector(opts), func(c mqtt.Conn) error {
//	    return c.Publish("hello", []byte(`{"message":"hi"}`), 0, false)
//	})
package mqtt
