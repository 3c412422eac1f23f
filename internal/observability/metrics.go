package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu              sync.Mutex
	requestCount    map[string]int64
	errorCount      map[string]int64
	detectionRuns   int64
	conflictsSeen   map[string]int64
	resolutionCount map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:    make(map[string]int64),
		errorCount:      make(map[string]int64),
		conflictsSeen:   make(map[string]int64),
		resolutionCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordDetection tracks a detector run and the conflicts it produced by type.
func (m *Metrics) RecordDetection(conflictsByType map[string]int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detectionRuns++
	for conflictType, count := range conflictsByType {
		m.conflictsSeen[conflictType] += int64(count)
	}
}

// RecordResolution tracks a resolution outcome by action.
func (m *Metrics) RecordResolution(action string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolutionCount[action]++
}

// DetectionRuns returns how many detector sweeps have completed.
func (m *Metrics) DetectionRuns() int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detectionRuns
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
