// Package mqtt provides the broker-facing transport with abstraction for
// testing.
package mqtt

// Message is an inbound MQTT message handed to a subscription handler.
type Message struct {
	Topic   string
	Payload []byte
}

// Publisher publishes command payloads to the broker.
type Publisher interface {
	// Publish sends payload to topic at the given QoS level. Returns error if
	// publishing fails (must not crash the process).
	Publish(topic string, qos byte, payload []byte) error
}

// Subscriber registers handlers for inbound topics.
type Subscriber interface {
	// Subscribe registers handler for topic. The handler may be invoked from
	// the client's own goroutine and must not block for long.
	Subscribe(topic string, handler func(msg Message)) error
}

// Client is the full broker connection used by the controller.
type Client interface {
	Publisher
	Subscriber

	// Close disconnects from the broker.
	Close() error
}
