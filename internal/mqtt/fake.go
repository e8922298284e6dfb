package mqtt

import "sync"

// Published records one outbound message for test assertions.
type Published struct {
	Topic   string
	QoS     byte
	Payload []byte
}

// FakeClient records published messages and lets tests inject inbound ones.
type FakeClient struct {
	mu sync.Mutex

	// Messages contains everything that was published.
	Messages []Published

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// SubscribeError, if set, will be returned by Subscribe.
	SubscribeError error

	// Closed tracks if Close was called.
	Closed bool

	handlers map[string]func(msg Message)
}

// NewFakeClient creates a FakeClient for testing.
func NewFakeClient() *FakeClient {
	return &FakeClient{handlers: make(map[string]func(msg Message))}
}

// Publish records the message.
func (f *FakeClient) Publish(topic string, qos byte, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Messages = append(f.Messages, Published{Topic: topic, QoS: qos, Payload: payload})
	return nil
}

// Subscribe records the handler for later injection.
func (f *FakeClient) Subscribe(topic string, handler func(msg Message)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	f.handlers[topic] = handler
	return nil
}

// Inject delivers an inbound message to the handler subscribed to topic.
func (f *FakeClient) Inject(topic string, payload []byte) {
	f.mu.Lock()
	handler := f.handlers[topic]
	f.mu.Unlock()
	if handler != nil {
		handler(Message{Topic: topic, Payload: payload})
	}
}

// Close marks the client as closed.
func (f *FakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Reset clears recorded messages and errors.
func (f *FakeClient) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages = nil
	f.PublishError = nil
	f.SubscribeError = nil
	f.Closed = false
}
