package conversation

import (
	"regexp"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultSession     = "default"
	DefaultMaxSessions = 10000
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidSessionID — id попадает в ключи S3 и журнал, поэтому только [A-Za-z0-9_-].
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// Registry выдаёт по буферу на сессию. Запросы без id попадают в DefaultSession.
// Сессий не больше MaxSessions: при переполнении вытесняется давно не использованная.
type Registry struct {
	mu       sync.Mutex
	sessions *lru.Cache[string, *Buffer]
	opts     Options
}

func NewRegistry(opts Options) *Registry {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	cache, _ := lru.New[string, *Buffer](opts.MaxSessions)
	return &Registry{
		sessions: cache,
		opts:     opts,
	}
}

func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultSession
	}
	return id
}

func (r *Registry) Get(id string) *Buffer {
	id = normalizeID(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.sessions.Get(id)
	if !ok {
		b = NewBuffer(r.opts)
		r.sessions.Add(id, b)
	}
	return b
}

// Reset сбрасывает существующую сессию. Незнакомый id ничего не создаёт,
// кроме DefaultSession: после сброса она должна жить с reset-промптом.
func (r *Registry) Reset(id string) {
	id = normalizeID(id)

	r.mu.Lock()
	b, ok := r.sessions.Get(id)
	if !ok && id == DefaultSession {
		b = NewBuffer(r.opts)
		r.sessions.Add(id, b)
		ok = true
	}
	r.mu.Unlock()

	if ok {
		b.Reset()
	}
}

func (r *Registry) Delete(id string) bool {
	id = normalizeID(id)

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.Remove(id)
}

func (r *Registry) Len() int {
	return r.sessions.Len()
}
