package ai

import (
	"context"
	"io"

	"github.com/Vovarama1992/voice_chat/internal/conversation"
	"github.com/Vovarama1992/voice_chat/internal/ports"
)

// Transcriber — голос → текст.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// Moderator возвращает true, если текст нарушает политику.
type Moderator interface {
	Moderate(ctx context.Context, text string) (bool, error)
}

type Completer interface {
	Complete(ctx context.Context, turns []conversation.Turn) (conversation.Completion, error)
}

// Reply — то, что отдаём клиенту после /transcribe.
type Reply struct {
	SessionID   string
	Flagged     bool
	Prompt      string
	Completion  string
	TotalTokens int
	Evicted     int
	Transcript  []conversation.Turn
}

type Service interface {
	// HandleAudio: транскрипция → модерация → ответ GPT с обрезкой истории сессии.
	HandleAudio(ctx context.Context, sessionID string, audio []byte, filename string) (*Reply, error)
	Reset(sessionID string)
	Forget(sessionID string) bool
	History(ctx context.Context, sessionID string, limit int) ([]ports.ExchangeRecord, error)
}
