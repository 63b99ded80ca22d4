package conversation

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn — одно сообщение в транскрипте.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tokenizer считает токены для модели, на которую настроен сервис.
type Tokenizer interface {
	Count(text string) (int, error)
}

// Completion — ответ провайдера и его подсчёт токенов по всему транскрипту.
type Completion struct {
	Content     string
	TotalTokens int
}

type CompleteFunc func(ctx context.Context, turns []Turn) (Completion, error)

// Exchange — итог одного обмена user → assistant.
type Exchange struct {
	Prompt      string
	Reply       string
	PromptCost  int
	TotalTokens int
	Trim        TrimResult
	Transcript  []Turn
}

type TrimResult struct {
	EvictedTurns   int
	EvictedEntries int
	Remaining      int
}
