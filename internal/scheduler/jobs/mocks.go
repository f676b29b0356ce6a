package jobs

import (
	"context"
	"sync"
	"time"
)

// MockJob is a mock job created for testing purposes
type MockJob struct {
	Name       string
	Interval   time.Duration
	Err        error
	executions int
	mu         sync.Mutex
}

func (m *MockJob) GetName() string {
	return m.Name
}

func (m *MockJob) GetInterval() time.Duration {
	return m.Interval
}

func (m *MockJob) Execute(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions++
	return m.Err
}

func (m *MockJob) GetExecutions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executions
}

// verify that MockJob implements the Job interface
var _ Job = (*MockJob)(nil)
