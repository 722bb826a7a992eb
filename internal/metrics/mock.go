package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu               sync.Mutex
	ratingsCommitted map[string]int
	ratingsRejected  map[string]int
	cascadeDepths    []int
	ratingDurations  []float64
	eventsPublished  int
	eventsFailed     int
	slackNotifSent   int
	slackNotifFailed int
	startupTime      float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		ratingsCommitted: make(map[string]int),
		ratingsRejected:  make(map[string]int),
	}
}

func (m *Mock) IncRatingsCommitted(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratingsCommitted[operation]++
}

func (m *Mock) IncRatingsRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratingsRejected[reason]++
}

func (m *Mock) ObserveCascadeDepth(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cascadeDepths = append(m.cascadeDepths, depth)
}

func (m *Mock) ObserveRatingDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratingDurations = append(m.ratingDurations, duration)
}

func (m *Mock) IncEventsPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventsPublished++
}

func (m *Mock) IncEventsFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventsFailed++
}

func (m *Mock) IncSlackNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifSent++
}

func (m *Mock) IncSlackNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// RatingsCommitted returns how often IncRatingsCommitted was called for operation.
func (m *Mock) RatingsCommitted(operation string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ratingsCommitted[operation]
}

// RatingsRejected returns how often IncRatingsRejected was called for reason.
func (m *Mock) RatingsRejected(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ratingsRejected[reason]
}

// CascadeDepths returns every depth passed to ObserveCascadeDepth.
func (m *Mock) CascadeDepths() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.cascadeDepths...)
}

func (m *Mock) EventsPublished() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventsPublished
}

func (m *Mock) EventsFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventsFailed
}

// SlackNotifSent returns the number of times IncSlackNotifSent was called.
func (m *Mock) SlackNotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifSent
}

// SlackNotifFailed returns the number of times IncSlackNotifFailed was called.
func (m *Mock) SlackNotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifFailed
}
