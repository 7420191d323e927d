package dto

import (
	"time"

	"github.com/erp/exchange/internal/domain/exchange"
)

// ExchangeQuery is the query string of an exchange request:
// ?type=catalog&mode=file&filename=import.xml
type ExchangeQuery struct {
	Type     string `form:"type" binding:"required,oneof=catalog sale"`
	Mode     string `form:"mode" binding:"required"`
	Filename string `form:"filename" binding:"omitempty,max=255"`
}

// Kind returns the exchange kind of the query
func (q ExchangeQuery) Kind() exchange.ExchangeKind {
	return exchange.ExchangeKind(q.Type)
}

// ExchangeMode returns the requested mode
func (q ExchangeQuery) ExchangeMode() exchange.Mode {
	return exchange.Mode(q.Mode)
}

// HistoryRequest selects how many sync log entries to return.
type HistoryRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}

// SyncLogResponse is one sync log entry
type SyncLogResponse struct {
	ID             string     `json:"id"`
	SyncType       string     `json:"sync_type"`
	Direction      string     `json:"direction"`
	Status         string     `json:"status"`
	Message        string     `json:"message,omitempty"`
	ItemsProcessed int        `json:"items_processed"`
	ItemsFailed    int        `json:"items_failed"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// NewSyncLogResponses converts sync log entries for output
func NewSyncLogResponses(entries []exchange.SyncLogEntry) []SyncLogResponse {
	out := make([]SyncLogResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, SyncLogResponse{
			ID:             e.ID.String(),
			SyncType:       string(e.SyncType),
			Direction:      string(e.Direction),
			Status:         string(e.Status),
			Message:        e.Message,
			ItemsProcessed: e.ItemsProcessed,
			ItemsFailed:    e.ItemsFailed,
			StartedAt:      e.StartedAt,
			CompletedAt:    e.CompletedAt,
		})
	}
	return out
}
