package notifier

import (
	"sync"

	"github.com/mauv0809/pickup-ratings/internal/rating"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	SendRatingResultFunc   func(result *rating.Result, dryRun bool) error
	FormatRatingResultFunc func(result *rating.Result) (any, error)

	// Call records
	SendRatingResultCalls []struct {
		Result *rating.Result
		DryRun bool
	}
	LastRatingResultResponse any
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendRatingResultCalls = nil
	m.LastRatingResultResponse = nil
}

func (m *Mock) SendRatingResult(result *rating.Result, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendRatingResultCalls = append(m.SendRatingResultCalls, struct {
		Result *rating.Result
		DryRun bool
	}{result, dryRun})
	if m.SendRatingResultFunc != nil {
		return m.SendRatingResultFunc(result, dryRun)
	}
	return nil
}

func (m *Mock) FormatRatingResult(result *rating.Result) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatRatingResultFunc != nil {
		resp, err := m.FormatRatingResultFunc(result)
		m.LastRatingResultResponse = resp
		return resp, err
	}
	return "formatted_rating_result", nil
}
