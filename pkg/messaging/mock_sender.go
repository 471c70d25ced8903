package messaging

import (
	"context"
	"sync"
)

// MockMatchSender records sent messages for testing.
type MockMatchSender struct {
	mu       sync.Mutex
	messages []*MatchMessage
}

// NewMockMatchSender creates a new MockMatchSender.
func NewMockMatchSender() *MockMatchSender {
	return &MockMatchSender{}
}

// SendMatchMessage records the message.
func (m *MockMatchSender) SendMatchMessage(_ context.Context, msg *MatchMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of the recorded messages.
func (m *MockMatchSender) Messages() []*MatchMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	messages := make([]*MatchMessage, len(m.messages))
	copy(messages, m.messages)
	return messages
}

// Close does nothing.
func (m *MockMatchSender) Close() error {
	return nil
}

// Ensure MockMatchSender implements MatchSender
var _ MatchSender = (*MockMatchSender)(nil)
