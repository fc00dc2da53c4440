package services

import (
	"github.com/stretchr/testify/mock"

	"volexplorer/internal/session"
)

// MockNotifier is a mock for ValuationNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendToSession(sessionID, messageType string, data interface{}) {
	m.Called(sessionID, messageType, data)
}

// MockSessionStore is a mock for SessionStore
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Get(id string) (*session.Session, bool) {
	args := m.Called(id)
	sess, _ := args.Get(0).(*session.Session)
	return sess, args.Bool(1)
}

func (m *MockSessionStore) Resolve(id string) (*session.Session, bool) {
	args := m.Called(id)
	sess, _ := args.Get(0).(*session.Session)
	return sess, args.Bool(1)
}
