package infra

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/Vovarama1992/voice_chat/internal/ports"
)

const exchangesSchema = `
	CREATE TABLE IF NOT EXISTS exchanges (
		id           BIGSERIAL PRIMARY KEY,
		session_id   TEXT        NOT NULL,
		prompt       TEXT        NOT NULL,
		completion   TEXT        NOT NULL,
		total_tokens INTEGER     NOT NULL DEFAULT 0,
		evicted      INTEGER     NOT NULL DEFAULT 0,
		flagged      BOOLEAN     NOT NULL DEFAULT FALSE,
		audio_url    TEXT,
		created_at   TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS exchanges_session_idx ON exchanges (session_id, created_at);
`

const maxListLimit = 500

type exchangeRepo struct {
	db *sql.DB
}

func NewExchangeRepo(db *sql.DB) ports.ExchangeRepo {
	return &exchangeRepo{db: db}
}

// OpenPostgres открывает пул, пингует базу и создаёт таблицу журнала.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, exchangesSchema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (r *exchangeRepo) Create(ctx context.Context, rec ports.ExchangeRecord) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO exchanges (session_id, prompt, completion, total_tokens, evicted, flagged, audio_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, rec.SessionID, rec.Prompt, rec.Completion, rec.TotalTokens, rec.Evicted, rec.Flagged, rec.AudioURL, rec.CreatedAt).Scan(&id)
	return id, err
}

func (r *exchangeRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]ports.ExchangeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, prompt, completion, total_tokens, evicted, flagged, audio_url, created_at
		FROM exchanges
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]ports.ExchangeRecord, 0)
	for rows.Next() {
		var rec ports.ExchangeRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.Prompt,
			&rec.Completion,
			&rec.TotalTokens,
			&rec.Evicted,
			&rec.Flagged,
			&rec.AudioURL,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// хронологический порядок
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}
