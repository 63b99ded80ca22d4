package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/semaphore"
)

type Policy string

const (
	// PolicyPair выкидывает самое старое user-сообщение вместе с ответами на него.
	PolicyPair Policy = "pair"
	// PolicyLiteral выкидывает ровно один элемент с индексом 1 на каждую запись ledger.
	PolicyLiteral Policy = "literal"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyPair, PolicyLiteral:
		return p, nil
	case "":
		return PolicyPair, nil
	}
	return "", fmt.Errorf("unknown eviction policy %q", s)
}

type Options struct {
	SystemPrompt      string
	ResetSystemPrompt string
	ContextDepth      int
	Policy            Policy
	Tokenizer         Tokenizer
	MaxSessions       int // для Registry
}

// Buffer держит транскрипт одной сессии и ledger токенов её user-сообщений.
// Все методы безопасны для конкурентного вызова.
type Buffer struct {
	sem    *semaphore.Weighted
	opts   Options
	turns  []Turn
	ledger []int
}

func NewBuffer(opts Options) *Buffer {
	if opts.Policy == "" {
		opts.Policy = PolicyPair
	}
	if opts.ResetSystemPrompt == "" {
		opts.ResetSystemPrompt = opts.SystemPrompt
	}
	b := &Buffer{sem: semaphore.NewWeighted(1), opts: opts}
	b.restart(opts.SystemPrompt)
	return b
}

func (b *Buffer) restart(systemPrompt string) {
	b.turns = []Turn{{Role: RoleSystem, Content: systemPrompt}}
	b.ledger = nil
}

func (b *Buffer) lock() {
	_ = b.sem.Acquire(context.Background(), 1)
}

func (b *Buffer) unlock() {
	b.sem.Release(1)
}

func (b *Buffer) TokensFor(text string) (int, error) {
	if b.opts.Tokenizer == nil {
		return 0, TokenizationError("count tokens", errors.New("tokenizer not configured"))
	}
	n, err := b.opts.Tokenizer.Count(text)
	if err != nil {
		return 0, TokenizationError("count tokens", err)
	}
	return n, nil
}

func (b *Buffer) RecordUserMessage(text string) (int, error) {
	b.lock()
	defer b.unlock()
	return b.recordUser(text)
}

func (b *Buffer) recordUser(text string) (int, error) {
	n, err := b.TokensFor(text)
	if err != nil {
		return 0, err
	}
	b.turns = append(b.turns, Turn{Role: RoleUser, Content: text})
	b.ledger = append(b.ledger, n)
	return n, nil
}

func (b *Buffer) RecordAssistantMessage(text string) {
	b.lock()
	defer b.unlock()
	b.turns = append(b.turns, Turn{Role: RoleAssistant, Content: text})
}

// EnforceBudget trims the transcript until the provider-reported total fits
// ContextDepth or the ledger runs out.
func (b *Buffer) EnforceBudget(reportedTotalTokens int) TrimResult {
	b.lock()
	defer b.unlock()
	return b.enforce(reportedTotalTokens)
}

func (b *Buffer) enforce(total int) TrimResult {
	res := TrimResult{Remaining: total}
	for res.Remaining > b.opts.ContextDepth && len(b.ledger) > 0 && len(b.turns) > 1 {
		switch b.opts.Policy {
		case PolicyLiteral:
			b.turns = append(b.turns[:1], b.turns[2:]...)
			res.EvictedTurns++
		default:
			res.EvictedTurns += b.dropOldestExchange()
		}
		res.Remaining -= b.ledger[0]
		b.ledger = b.ledger[1:]
		res.EvictedEntries++
	}
	return res
}

// dropOldestExchange удаляет первый user-ход после system и все не-user ходы за ним.
func (b *Buffer) dropOldestExchange() int {
	start := 1
	for start < len(b.turns) && b.turns[start].Role != RoleUser {
		start++
	}
	if start == len(b.turns) {
		start = 1
	}
	end := start + 1
	for end < len(b.turns) && b.turns[end].Role != RoleUser {
		end++
	}
	b.turns = append(b.turns[:start], b.turns[end:]...)
	return end - start
}

func (b *Buffer) Reset() {
	b.lock()
	defer b.unlock()
	b.restart(b.opts.ResetSystemPrompt)
}

// Exchange проводит полный обмен под блокировкой сессии:
// count → append user → completion → append assistant → trim.
// При ошибке completion добавленное user-сообщение откатывается.
func (b *Buffer) Exchange(ctx context.Context, text string, complete CompleteFunc) (*Exchange, error) {
	if strings.TrimSpace(text) == "" {
		return nil, InvalidInputError("exchange", errors.New("empty message"))
	}

	// ожидающий запрос той же сессии уходит, если его клиент отключился
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("exchange: wait for session: %w", err)
	}
	defer b.unlock()

	cost, err := b.recordUser(text)
	if err != nil {
		return nil, err
	}

	completion, err := complete(ctx, b.snapshot())
	if err != nil {
		b.turns = b.turns[:len(b.turns)-1]
		b.ledger = b.ledger[:len(b.ledger)-1]
		var typed *Error
		if errors.As(err, &typed) {
			return nil, err
		}
		return nil, UpstreamError("chat completion", err)
	}

	b.turns = append(b.turns, Turn{Role: RoleAssistant, Content: completion.Content})
	trim := b.enforce(completion.TotalTokens)

	return &Exchange{
		Prompt:      text,
		Reply:       completion.Content,
		PromptCost:  cost,
		TotalTokens: completion.TotalTokens,
		Trim:        trim,
		Transcript:  b.snapshot(),
	}, nil
}

func (b *Buffer) Transcript() []Turn {
	b.lock()
	defer b.unlock()
	return b.snapshot()
}

func (b *Buffer) Ledger() []int {
	b.lock()
	defer b.unlock()
	out := make([]int, len(b.ledger))
	copy(out, b.ledger)
	return out
}

func (b *Buffer) snapshot() []Turn {
	out := make([]Turn, len(b.turns))
	copy(out, b.turns)
	return out
}
