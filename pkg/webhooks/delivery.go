package webhooks

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DeliveryStatus is the outcome of a received webhook delivery
type DeliveryStatus string

const (
	DeliveryStatusAccepted DeliveryStatus = "accepted"
	DeliveryStatusHandled  DeliveryStatus = "handled"
	DeliveryStatusFailed   DeliveryStatus = "failed"
	DeliveryStatusRejected DeliveryStatus = "rejected"
)

// DefaultDeliveryLogSize bounds the number of remembered deliveries
const DefaultDeliveryLogSize = 1000

// DeliveryRecord describes one received delivery
type DeliveryRecord struct {
	ID           string         `json:"id"`
	Status       DeliveryStatus `json:"status"`
	StatusCode   int            `json:"status_code"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ReceivedAt   time.Time      `json:"received_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Duration     time.Duration  `json:"duration,omitempty"`
}

// DeliveryStats summarizes the remembered deliveries
type DeliveryStats struct {
	Total       int     `json:"total"`
	Accepted    int     `json:"accepted"`
	Handled     int     `json:"handled"`
	Failed      int     `json:"failed"`
	Rejected    int     `json:"rejected"`
	SuccessRate float64 `json:"success_rate"`
}

// DeliveryLog keeps the most recent deliveries, evicting the oldest first
type DeliveryLog struct {
	mu      sync.Mutex
	records *lru.Cache[string, *DeliveryRecord]
}

// NewDeliveryLog creates a delivery log holding up to size records
func NewDeliveryLog(size int) *DeliveryLog {
	if size <= 0 {
		size = DefaultDeliveryLogSize
	}
	records, _ := lru.New[string, *DeliveryRecord](size)
	return &DeliveryLog{records: records}
}

// Add stores a copy of record
func (l *DeliveryLog) Add(record DeliveryRecord) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records.Add(record.ID, &record)
}

// Complete marks a delivery as finished at completedAt.
// Unknown ids are ignored.
func (l *DeliveryLog) Complete(id string, status DeliveryStatus, completedAt time.Time, err error) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records.Peek(id)
	if !ok {
		return
	}
	record.Status = status
	record.CompletedAt = &completedAt
	record.Duration = completedAt.Sub(record.ReceivedAt)
	if err != nil {
		record.ErrorMessage = err.Error()
	}
}

// Get returns a copy of the record for id
func (l *DeliveryLog) Get(id string) (DeliveryRecord, bool) {
	if l == nil {
		return DeliveryRecord{}, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records.Peek(id)
	if !ok {
		return DeliveryRecord{}, false
	}
	return *record, true
}

// Recent returns up to limit records, newest first. limit <= 0 returns all.
func (l *DeliveryLog) Recent(limit int) []DeliveryRecord {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := l.records.Keys()
	result := make([]DeliveryRecord, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		if record, ok := l.records.Peek(keys[i]); ok {
			result = append(result, *record)
		}
	}
	return result
}

// Stats counts the remembered deliveries by status
func (l *DeliveryLog) Stats() DeliveryStats {
	var stats DeliveryStats
	if l == nil {
		return stats
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, record := range l.records.Values() {
		stats.Total++
		switch record.Status {
		case DeliveryStatusAccepted:
			stats.Accepted++
		case DeliveryStatusHandled:
			stats.Handled++
		case DeliveryStatusFailed:
			stats.Failed++
		case DeliveryStatusRejected:
			stats.Rejected++
		}
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Handled) / float64(stats.Total)
	}
	return stats
}
