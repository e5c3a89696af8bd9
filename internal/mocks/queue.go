package mocks

import (
	"context"
	"sync"
)

// MockMessageQueue is a mock implementation of MessageQueue interface
type MockMessageQueue struct {
	mu                sync.Mutex
	PublishedMessages map[string][][]byte
	Subscribers       map[string][]func([]byte) error
	PublishFunc       func(subject string, data []byte) error
	SubscribeFunc     func(subject string, handler func([]byte) error) error
	PingFunc          func(ctx context.Context) error
	CloseFunc         func() error
}

func NewMockMessageQueue() *MockMessageQueue {
	return &MockMessageQueue{
		PublishedMessages: make(map[string][][]byte),
		Subscribers:       make(map[string][]func([]byte) error),
	}
}

func (m *MockMessageQueue) Publish(subject string, data []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(subject, data)
	}
	m.mu.Lock()
	m.PublishedMessages[subject] = append(m.PublishedMessages[subject], data)
	handlers := append([]func([]byte) error(nil), m.Subscribers[subject]...)
	m.mu.Unlock()

	for _, h := range handlers {
		_ = h(data)
	}
	return nil
}

func (m *MockMessageQueue) Subscribe(subject string, handler func([]byte) error) error {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(subject, handler)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Subscribers[subject] = append(m.Subscribers[subject], handler)
	return nil
}

func (m *MockMessageQueue) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockMessageQueue) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// GetPublishedMessages returns all messages published to a subject
func (m *MockMessageQueue) GetPublishedMessages(subject string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PublishedMessages[subject]
}

// ClearMessages clears all published messages
func (m *MockMessageQueue) ClearMessages() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishedMessages = make(map[string][][]byte)
}
