package ports

import (
	"context"
	"time"
)

// DTO одного обмена для журнала
type ExchangeRecord struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	Prompt      string    `json:"prompt"`
	Completion  string    `json:"completion"`
	TotalTokens int       `json:"total_tokens"`
	Evicted     int       `json:"evicted"`
	Flagged     bool      `json:"flagged"`
	AudioURL    *string   `json:"audio_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Журнал обменов в Postgres
type ExchangeRepo interface {
	Create(ctx context.Context, rec ExchangeRecord) (int64, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]ExchangeRecord, error)
}
