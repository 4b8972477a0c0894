package provisioning

import "time"

// StatusEvent is emitted on every state transition.
type StatusEvent struct {
	State   State
	Attempt int
	Detail  string
	At      time.Time
}

// Sink receives status events. Implementations must not block; the machine
// publishes synchronously from its run loop.
type Sink interface {
	Publish(e StatusEvent)
}

// MultiSink fans every event out to all member sinks in order.
type MultiSink []Sink

func (s MultiSink) Publish(e StatusEvent) {
	for _, sink := range s {
		sink.Publish(e)
	}
}
