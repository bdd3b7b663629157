package expo

import (
	"context"
	"sync"
)

// MockOrderRepository is a test mock for OrderRepository
type MockOrderRepository struct {
	mu        sync.Mutex
	snapshot  []Order
	saveCount int
	SaveFunc  func(ctx context.Context, orders []Order) error
	LoadFunc  func(ctx context.Context) ([]Order, error)
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{}
}

func (m *MockOrderRepository) Save(ctx context.Context, orders []Order) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, orders)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = append([]Order(nil), orders...)
	m.saveCount++
	return nil
}

func (m *MockOrderRepository) Load(ctx context.Context) ([]Order, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Order(nil), m.snapshot...), nil
}

func (m *MockOrderRepository) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCount
}

func (m *MockOrderRepository) Snapshot() []Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Order(nil), m.snapshot...)
}

// MockPublisher is a test mock for the events.Publisher interface
type MockPublisher struct {
	mu          sync.Mutex
	published   [][]byte
	topics      []string
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics = append(m.topics, topic)
	m.published = append(m.published, append([]byte(nil), msg...))
	return nil
}

func (m *MockPublisher) PublishCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

func (m *MockPublisher) LastTopic() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.topics) == 0 {
		return ""
	}
	return m.topics[len(m.topics)-1]
}

// MockFetcher is a test mock for OrderDetailFetcher
type MockFetcher struct {
	FetchOrderFunc func(ctx context.Context, orderID string) (*SourceEvent, error)
	calls          int
}

func (m *MockFetcher) FetchOrder(ctx context.Context, orderID string) (*SourceEvent, error) {
	m.calls++
	if m.FetchOrderFunc != nil {
		return m.FetchOrderFunc(ctx, orderID)
	}
	return nil, nil
}
