package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Vovarama1992/voice_chat/internal/conversation"
	"github.com/Vovarama1992/voice_chat/internal/ports"
)

type stubSTT struct {
	text string
	err  error
	name string
}

func (s *stubSTT) Transcribe(_ context.Context, filename string, audio io.Reader) (string, error) {
	s.name = filename
	_, _ = io.ReadAll(audio)
	return s.text, s.err
}

type stubModerator struct {
	flagged bool
	err     error
	calls   int
}

func (s *stubModerator) Moderate(context.Context, string) (bool, error) {
	s.calls++
	return s.flagged, s.err
}

type stubCompleter struct {
	reply string
	total int
	err   error
	calls int
	seen  []conversation.Turn
}

func (s *stubCompleter) Complete(_ context.Context, turns []conversation.Turn) (conversation.Completion, error) {
	s.calls++
	s.seen = turns
	if s.err != nil {
		return conversation.Completion{}, s.err
	}
	return conversation.Completion{Content: s.reply, TotalTokens: s.total}, nil
}

type stubNotifier struct{ details []string }

func (s *stubNotifier) Notify(_ context.Context, _ string, _ error, details string) error {
	s.details = append(s.details, details)
	return nil
}

type stubArchive struct {
	err   error
	saved int
}

func (s *stubArchive) SaveAudio(context.Context, string, []byte, string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saved++
	return "https://s3.local/audio/x.wav", nil
}

type stubExchanges struct {
	records []ports.ExchangeRecord
	err     error
}

func (s *stubExchanges) Create(_ context.Context, rec ports.ExchangeRecord) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.records = append(s.records, rec)
	return int64(len(s.records)), nil
}

func (s *stubExchanges) ListBySession(_ context.Context, sessionID string, _ int) ([]ports.ExchangeRecord, error) {
	var out []ports.ExchangeRecord
	for _, r := range s.records {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

type lenTokenizer struct{}

func (lenTokenizer) Count(text string) (int, error) { return len(text), nil }

type fixture struct {
	svc       *AiService
	stt       *stubSTT
	mod       *stubModerator
	llm       *stubCompleter
	notifier  *stubNotifier
	archive   *stubArchive
	exchanges *stubExchanges
	sessions  *conversation.Registry
}

func newFixture(budget int) *fixture {
	f := &fixture{
		stt:       &stubSTT{text: "kepala saya pusing"},
		mod:       &stubModerator{},
		llm:       &stubCompleter{reply: "istirahat dulu", total: 30},
		notifier:  &stubNotifier{},
		archive:   &stubArchive{},
		exchanges: &stubExchanges{},
	}
	f.sessions = conversation.NewRegistry(conversation.Options{
		SystemPrompt: "sys",
		ContextDepth: budget,
		Tokenizer:    lenTokenizer{},
	})
	f.svc = NewAiService(f.stt, f.mod, f.llm, f.sessions, f.notifier, zap.NewNop(), Options{
		Refusal:   "refused",
		Archive:   f.archive,
		Exchanges: f.exchanges,
	})
	return f
}

func TestHandleAudioHappyPath(t *testing.T) {
	f := newFixture(1000)

	reply, err := f.svc.HandleAudio(context.Background(), "s1", []byte("RIFF"), "")
	require.NoError(t, err)

	assert.Equal(t, "s1", reply.SessionID)
	assert.False(t, reply.Flagged)
	assert.Equal(t, "kepala saya pusing", reply.Prompt)
	assert.Equal(t, "istirahat dulu", reply.Completion)
	assert.Equal(t, 30, reply.TotalTokens)
	assert.Len(t, reply.Transcript, 3)
	assert.Equal(t, "audio.wav", f.stt.name)
	assert.Equal(t, 1, f.archive.saved)

	require.Len(t, f.exchanges.records, 1)
	rec := f.exchanges.records[0]
	assert.Equal(t, "istirahat dulu", rec.Completion)
	require.NotNil(t, rec.AudioURL)
}

func TestHandleAudioDefaultSession(t *testing.T) {
	f := newFixture(1000)

	reply, err := f.svc.HandleAudio(context.Background(), "", []byte("RIFF"), "a.wav")
	require.NoError(t, err)

	assert.Equal(t, conversation.DefaultSession, reply.SessionID)
	assert.Len(t, f.sessions.Get("").Transcript(), 3)
}

func TestHandleAudioFlaggedSkipsCompletion(t *testing.T) {
	f := newFixture(1000)
	f.mod.flagged = true

	reply, err := f.svc.HandleAudio(context.Background(), "s1", []byte("RIFF"), "a.wav")
	require.NoError(t, err)

	assert.True(t, reply.Flagged)
	assert.Equal(t, "refused", reply.Completion)
	assert.Zero(t, f.llm.calls)

	// the user message is not appended when moderation blocks it
	buf := f.sessions.Get("s1")
	assert.Equal(t, []conversation.Turn{{Role: conversation.RoleSystem, Content: "sys"}}, buf.Transcript())
	assert.Empty(t, buf.Ledger())

	require.Len(t, f.exchanges.records, 1)
	assert.True(t, f.exchanges.records[0].Flagged)
}

func TestHandleAudioTrimsHistory(t *testing.T) {
	f := newFixture(40)
	f.stt.text = "satu"

	_, err := f.svc.HandleAudio(context.Background(), "s1", []byte("RIFF"), "a.wav")
	require.NoError(t, err)

	f.stt.text = "dua"
	f.llm.total = 44
	reply, err := f.svc.HandleAudio(context.Background(), "s1", []byte("RIFF"), "a.wav")
	require.NoError(t, err)

	// 44 - len("satu") = 40 <= 40: one exchange evicted
	assert.Equal(t, 2, reply.Evicted)
	assert.Equal(t, []conversation.Turn{
		{Role: conversation.RoleSystem, Content: "sys"},
		{Role: conversation.RoleUser, Content: "dua"},
		{Role: conversation.RoleAssistant, Content: "istirahat dulu"},
	}, reply.Transcript)
	assert.Equal(t, []int{3}, f.sessions.Get("s1").Ledger())
}

func TestHandleAudioUpstreamFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fixture)
		notify string
	}{
		{"transcription", func(f *fixture) { f.stt.err = errors.New("whisper down") }, "transcription failed"},
		{"moderation", func(f *fixture) { f.mod.err = errors.New("moderation down") }, "moderation failed"},
		{"completion", func(f *fixture) { f.llm.err = errors.New("gpt down") }, "chat completion failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(1000)
			tt.mutate(f)

			_, err := f.svc.HandleAudio(context.Background(), "s1", []byte("RIFF"), "a.wav")

			require.Error(t, err)
			assert.Equal(t, conversation.KindUpstream, conversation.KindOf(err))
			assert.Equal(t, []string{tt.notify}, f.notifier.details)
			assert.Len(t, f.sessions.Get("s1").Transcript(), 1)
			assert.Empty(t, f.exchanges.records)
		})
	}
}

func TestHandleAudioInvalidInput(t *testing.T) {
	f := newFixture(1000)

	_, err := f.svc.HandleAudio(context.Background(), "s1", nil, "a.wav")
	assert.Equal(t, conversation.KindInvalidInput, conversation.KindOf(err))

	f.stt.text = "   "
	_, err = f.svc.HandleAudio(context.Background(), "s1", []byte("RIFF"), "a.wav")
	assert.Equal(t, conversation.KindInvalidInput, conversation.KindOf(err))
	assert.Zero(t, f.mod.calls)
}

func TestHandleAudioSinkFailuresAreNotFatal(t *testing.T) {
	f := newFixture(1000)
	f.archive.err = errors.New("s3 down")
	f.exchanges.err = errors.New("pg down")

	reply, err := f.svc.HandleAudio(context.Background(), "s1", []byte("RIFF"), "a.wav")
	require.NoError(t, err)
	assert.Equal(t, "istirahat dulu", reply.Completion)
}

func TestResetAndHistory(t *testing.T) {
	f := newFixture(1000)
	_, err := f.svc.HandleAudio(context.Background(), "s1", []byte("RIFF"), "a.wav")
	require.NoError(t, err)

	history, err := f.svc.History(context.Background(), "s1", 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	f.svc.Reset("s1")
	assert.Len(t, f.sessions.Get("s1").Transcript(), 1)

	assert.True(t, f.svc.Forget("s1"))
	assert.False(t, f.svc.Forget("s1"))
}

func TestHistoryWithoutLogIsEmpty(t *testing.T) {
	f := newFixture(1000)
	svc := NewAiService(f.stt, f.mod, f.llm, f.sessions, f.notifier, zap.NewNop(), Options{Refusal: "refused"})

	history, err := svc.History(context.Background(), "s1", 10)
	require.NoError(t, err)
	require.NotNil(t, history)
	assert.Empty(t, history)

	b, err := json.Marshal(history)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))
}
