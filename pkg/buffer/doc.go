// Package buffer provides a generic, thread-safe bounded queue.
//
// CircularBuffer holds up to a fixed number of items and applies an overflow
// policy once full:
//   - DropOldest discards the oldest buffered item to make room
//   - DropNewest discards the incoming item
//
// Every discarded item is counted in Statistics, optionally exported as
// Prometheus metrics via WithMetrics, and passed to WithDropCallback.
//
// The bridge uses a DropOldest buffer as its offline outbox: frames written
// while the gateway is unreachable are held here and flushed, oldest first,
// once the connection is re-established.
//
//	outbox, err := buffer.NewCircularBuffer[[]byte](256,
//		buffer.WithMetrics[[]byte](registry, "outbox"))
//	if err != nil {
//		return err
//	}
//	_ = outbox.Write(frame)
//	for _, f := range outbox.Drain() {
//		send(f)
//	}
package buffer
