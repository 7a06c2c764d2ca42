package venue

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockClient is an in-memory venue double for tests and dry runs. Failures
// are scripted: each queued error is consumed by one ExecuteTrade call,
// after which calls succeed.
type MockClient struct {
	mu       sync.Mutex
	balance  float64
	failures []error
	calls    []TradeRequest

	balanceErr error
}

// NewMockClient creates a mock venue holding the given balance.
func NewMockClient(balance float64) *MockClient {
	return &MockClient{balance: balance}
}

// FailNext queues errors to be returned by upcoming ExecuteTrade calls,
// oldest first.
func (m *MockClient) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, errs...)
}

// FailBalance makes ReadBalance return err until cleared with nil.
func (m *MockClient) FailBalance(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balanceErr = err
}

// SetBalance overrides the reported balance.
func (m *MockClient) SetBalance(balance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance = balance
}

// ExecuteTrade consumes a scripted failure or succeeds with a fresh id,
// adjusting the mock balance the way a real venue ledger would.
func (m *MockClient) ExecuteTrade(ctx context.Context, req TradeRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)
	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		return "", err
	}

	notional := req.Size * req.Price
	if req.IsBuy {
		m.balance -= notional
	} else {
		m.balance += notional
	}
	return uuid.New().String(), nil
}

// ReadBalance returns the mock balance.
func (m *MockClient) ReadBalance(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balanceErr != nil {
		return 0, m.balanceErr
	}
	return m.balance, nil
}

// Calls returns every trade request seen so far.
func (m *MockClient) Calls() []TradeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TradeRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

var _ ExecutionClient = (*MockClient)(nil)
