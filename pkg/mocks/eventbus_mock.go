package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/innospot/autoflow/pkg/eventbus"
	"github.com/innospot/autoflow/pkg/events"
)

// MockEventBus is a mock implementation of the eventbus.EventBus interface.
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, key string, event eventbus.Event) error {
	args := m.Called(ctx, key, event)

	return args.Error(0)
}

func (m *MockEventBus) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	args := m.Called(eventType, handler)

	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()

	return args.Error(0)
}

func (m *MockEventBus) GenerateID() string {
	args := m.Called()

	return args.String(0)
}

// PublisherStub is a no-op publisher for tests that do not assert on events.
type PublisherStub struct{}

func (PublisherStub) Publish(_ context.Context, _ string, _ eventbus.Event) error {
	return nil
}
