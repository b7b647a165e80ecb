// Package publisher implements the delivery loop of the MQTT event publisher.
//
// Events handed to Receive or ReceiveMany are encoded, appended to an
// unbounded FIFO buffer and then delivered synchronously on the caller's
// goroutine.
//
// # Delivery
//
// One delivery invocation opens a single broker connection and drains the
// buffer over it: peek the head, publish it, remove it only after the
// publish completes. On any connect or publish error the connection is
// discarded, the failed item and everything behind it stay buffered, and
// the loop waits a fixed retry interval before dialing again.
//
//	idle ──► connecting ──► draining ──► idle
//	             ▲    │          │
//	             │    ▼          ▼
//	             └── backoff ◄───┘
//	                    │
//	                    ▼ (shutdown)
//	                  closed
//
// # Guarantees
//
//   - Items are published in arrival order. Drains are serialized, so at
//     most one publish is in flight.
//   - An item confirmed on one connection is never published again.
//   - The item in flight when a connection fails is retried and may reach
//     the broker twice. There is no deduplication.
//   - A shutdown request ends a backoff wait immediately. Items still
//     buffered at that point are not delivered; their count is logged.
//
// # Errors
//
// Receive never returns delivery failures; those are retried. It returns
// encoding rejections (wrapping ErrEncode), ErrClosed after a shutdown has
// completed, and the context error if the caller's context ends during a
// backoff wait.
package publisher
