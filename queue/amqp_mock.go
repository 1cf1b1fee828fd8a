package queue

import (
	"github.com/streadway/amqp"
)

// MockAMQPConnection is a mock implementation of AMQPConnection for testing.
type MockAMQPConnection struct {
	MockChannel AMQPChannel
	ChannelErr  error
	CloseErr    error

	ChannelCalled bool
	CloseCalled   bool
}

// Channel returns the mock channel.
func (m *MockAMQPConnection) Channel() (AMQPChannel, error) {
	m.ChannelCalled = true
	if m.ChannelErr != nil {
		return nil, m.ChannelErr
	}
	return m.MockChannel, nil
}

// Close mocks closing the connection.
func (m *MockAMQPConnection) Close() error {
	m.CloseCalled = true
	return m.CloseErr
}

// MockAMQPChannel is a mock implementation of AMQPChannel for testing.
// Deliveries pushed into the Deliveries channel are returned by Consume.
type MockAMQPChannel struct {
	PublishedMessages []amqp.Publishing
	PublishedKeys     []string
	Deliveries        chan amqp.Delivery

	QueueDeclareErr error
	PublishErr      error
	ConsumeErr      error
	QosErr          error
	CloseErr        error

	QueueDeclareCalled bool
	PublishCalled      bool
	ConsumeCalled      bool
	QosCalled          bool
	CloseCalled        bool

	LastQueueName string
	LastKey       string
	LastPrefetch  int
}

// NewMockAMQPChannel creates a mock channel with a buffered delivery queue.
func NewMockAMQPChannel() *MockAMQPChannel {
	return &MockAMQPChannel{
		Deliveries: make(chan amqp.Delivery, 16),
	}
}

// QueueDeclare mocks declaring a queue.
func (m *MockAMQPChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	m.QueueDeclareCalled = true
	m.LastQueueName = name
	if m.QueueDeclareErr != nil {
		return amqp.Queue{}, m.QueueDeclareErr
	}
	return amqp.Queue{Name: name}, nil
}

// Publish mocks publishing a message.
func (m *MockAMQPChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	m.PublishCalled = true
	m.LastKey = key
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.PublishedMessages = append(m.PublishedMessages, msg)
	m.PublishedKeys = append(m.PublishedKeys, key)
	return nil
}

// Consume mocks starting a consumer.
func (m *MockAMQPChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	m.ConsumeCalled = true
	m.LastQueueName = queue
	if m.ConsumeErr != nil {
		return nil, m.ConsumeErr
	}
	return m.Deliveries, nil
}

// Qos mocks setting the prefetch window.
func (m *MockAMQPChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	m.QosCalled = true
	m.LastPrefetch = prefetchCount
	return m.QosErr
}

// Close mocks closing the channel.
func (m *MockAMQPChannel) Close() error {
	m.CloseCalled = true
	return m.CloseErr
}

// MockAMQPDialer is a mock implementation of AMQPDialer for testing.
type MockAMQPDialer struct {
	MockConnection AMQPConnection
	DialErr        error

	DialCalled bool
	LastURL    string
}

// Dial mocks dialing an AMQP connection.
func (m *MockAMQPDialer) Dial(url string) (AMQPConnection, error) {
	m.DialCalled = true
	m.LastURL = url
	if m.DialErr != nil {
		return nil, m.DialErr
	}
	return m.MockConnection, nil
}

// SetupMockDialerForTest creates a fully wired mock dialer for tests.
func SetupMockDialerForTest() (*MockAMQPDialer, *MockAMQPChannel, *MockAMQPConnection) {
	mockChannel := NewMockAMQPChannel()
	mockConn := &MockAMQPConnection{MockChannel: mockChannel}
	mockDialer := &MockAMQPDialer{MockConnection: mockConn}
	return mockDialer, mockChannel, mockConn
}
