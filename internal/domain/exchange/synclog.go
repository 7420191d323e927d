package exchange

import (
	"time"

	"github.com/google/uuid"
)

// SyncDirection tells which side produced the data.
type SyncDirection string

const (
	DirectionImport SyncDirection = "import"
	DirectionExport SyncDirection = "export"
)

// SyncType names the kind of data that was exchanged.
type SyncType string

const (
	SyncCatalog SyncType = "catalog"
	SyncOffers  SyncType = "offers"
	SyncOrders  SyncType = "orders"
)

// SyncStatus is the outcome of a logged exchange.
type SyncStatus string

const (
	SyncStarted   SyncStatus = "started"
	SyncCompleted SyncStatus = "completed"
	SyncFailed    SyncStatus = "failed"
)

// SyncLogEntry records one import or export run for operators.
type SyncLogEntry struct {
	ID             uuid.UUID
	SyncType       SyncType
	Direction      SyncDirection
	Status         SyncStatus
	Message        string
	ItemsProcessed int
	ItemsFailed    int
	StartedAt      time.Time
	CompletedAt    *time.Time
}

// NewSyncLogEntry starts a log entry
func NewSyncLogEntry(syncType SyncType, direction SyncDirection, now time.Time) *SyncLogEntry {
	return &SyncLogEntry{
		ID:        uuid.New(),
		SyncType:  syncType,
		Direction: direction,
		Status:    SyncStarted,
		StartedAt: now,
	}
}

// Complete closes the entry with the counters of stats. Any failed item
// marks the whole run failed.
func (e *SyncLogEntry) Complete(stats Stats, now time.Time) {
	e.ItemsProcessed = stats.Processed()
	e.ItemsFailed = stats.Failed
	e.Message = stats.String()
	e.Status = SyncCompleted
	if stats.Failed > 0 {
		e.Status = SyncFailed
	}
	e.CompletedAt = &now
}

// Fail closes the entry with an error.
func (e *SyncLogEntry) Fail(err error, now time.Time) {
	e.Status = SyncFailed
	e.Message = err.Error()
	e.CompletedAt = &now
}
