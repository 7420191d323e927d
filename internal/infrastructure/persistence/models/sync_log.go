package models

import (
	"time"

	"github.com/erp/exchange/internal/domain/exchange"
	"github.com/google/uuid"
)

// SyncLogModel is the persistence model for exchange.SyncLogEntry.
type SyncLogModel struct {
	ID             uuid.UUID              `gorm:"type:uuid;primary_key"`
	SyncType       exchange.SyncType      `gorm:"type:varchar(20);not null;index"`
	Direction      exchange.SyncDirection `gorm:"type:varchar(10);not null"`
	Status         exchange.SyncStatus    `gorm:"type:varchar(20);not null"`
	Message        string                 `gorm:"type:text"`
	ItemsProcessed int                    `gorm:"not null;default:0"`
	ItemsFailed    int                    `gorm:"not null;default:0"`
	StartedAt      time.Time              `gorm:"not null;index"`
	CompletedAt    *time.Time
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_logs"
}

// ToDomain converts the persistence model to a domain SyncLogEntry.
func (m *SyncLogModel) ToDomain() exchange.SyncLogEntry {
	return exchange.SyncLogEntry{
		ID:             m.ID,
		SyncType:       m.SyncType,
		Direction:      m.Direction,
		Status:         m.Status,
		Message:        m.Message,
		ItemsProcessed: m.ItemsProcessed,
		ItemsFailed:    m.ItemsFailed,
		StartedAt:      m.StartedAt,
		CompletedAt:    m.CompletedAt,
	}
}

// SyncLogModelFromDomain creates a new persistence model from a domain SyncLogEntry.
func SyncLogModelFromDomain(e *exchange.SyncLogEntry) *SyncLogModel {
	return &SyncLogModel{
		ID:             e.ID,
		SyncType:       e.SyncType,
		Direction:      e.Direction,
		Status:         e.Status,
		Message:        e.Message,
		ItemsProcessed: e.ItemsProcessed,
		ItemsFailed:    e.ItemsFailed,
		StartedAt:      e.StartedAt,
		CompletedAt:    e.CompletedAt,
	}
}
