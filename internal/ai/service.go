package ai

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/Vovarama1992/voice_chat/internal/conversation"
	"github.com/Vovarama1992/voice_chat/internal/error_notificator"
	"github.com/Vovarama1992/voice_chat/internal/ports"
)

type Options struct {
	Refusal         string
	UpstreamTimeout time.Duration

	// необязательные
	Archive   ports.AudioArchive
	Exchanges ports.ExchangeRepo
}

type AiService struct {
	stt      Transcriber
	mod      Moderator
	llm      Completer
	sessions *conversation.Registry
	notifier error_notificator.Notificator
	log      *zap.Logger
	opts     Options
}

func NewAiService(
	stt Transcriber,
	mod Moderator,
	llm Completer,
	sessions *conversation.Registry,
	notifier error_notificator.Notificator,
	log *zap.Logger,
	opts Options,
) *AiService {
	if opts.UpstreamTimeout <= 0 {
		opts.UpstreamTimeout = 120 * time.Second
	}
	return &AiService{
		stt:      stt,
		mod:      mod,
		llm:      llm,
		sessions: sessions,
		notifier: notifier,
		log:      log,
		opts:     opts,
	}
}

func (s *AiService) notifyUpstream(ctx context.Context, sessionID, step string, err error) {
	_ = s.notifier.Notify(ctx, sessionID, err, fmt.Sprintf("%s failed", step))
}

// === главный метод ===
// Модерация идёт до записи в буфер: отклонённый текст в транскрипт не попадает.
func (s *AiService) HandleAudio(ctx context.Context, sessionID string, audio []byte, filename string) (*Reply, error) {
	if sessionID == "" {
		sessionID = conversation.DefaultSession
	}
	if len(audio) == 0 {
		return nil, conversation.InvalidInputError("transcribe", fmt.Errorf("empty audio"))
	}
	if filename == "" {
		filename = "audio.wav"
	}

	start := time.Now()
	log := s.log.With(zap.String("session_id", sessionID))
	log.Info("voice request", zap.String("size", humanize.Bytes(uint64(len(audio)))))

	// 1) голос -> текст
	text, err := s.transcribe(ctx, audio, filename)
	if err != nil {
		s.notifyUpstream(ctx, sessionID, "transcription", err)
		return nil, conversation.UpstreamError("transcribe", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, conversation.InvalidInputError("transcribe", fmt.Errorf("empty transcription"))
	}
	log.Info("transcribed", zap.Int("chars", len(text)))

	audioURL := s.archive(ctx, log, sessionID, audio, filename)

	// 2) модерация
	flagged, err := s.moderate(ctx, text)
	if err != nil {
		s.notifyUpstream(ctx, sessionID, "moderation", err)
		return nil, conversation.UpstreamError("moderate", err)
	}
	if flagged {
		log.Warn("moderation flagged prompt")
		s.record(ctx, log, ports.ExchangeRecord{
			SessionID:  sessionID,
			Prompt:     text,
			Completion: s.opts.Refusal,
			Flagged:    true,
			AudioURL:   audioURL,
		})
		return &Reply{
			SessionID:  sessionID,
			Flagged:    true,
			Prompt:     text,
			Completion: s.opts.Refusal,
		}, nil
	}

	// 3) GPT + обрезка истории
	ex, err := s.sessions.Get(sessionID).Exchange(ctx, text, s.complete)
	if err != nil {
		if conversation.KindOf(err) == conversation.KindUpstream {
			s.notifyUpstream(ctx, sessionID, "chat completion", err)
		}
		return nil, err
	}

	log.Info("exchange done",
		zap.Int("prompt_tokens", ex.PromptCost),
		zap.Int("total_tokens", ex.TotalTokens),
		zap.Int("evicted_turns", ex.Trim.EvictedTurns),
		zap.Int("remaining_tokens", ex.Trim.Remaining),
		zap.Duration("took", time.Since(start)),
	)

	s.record(ctx, log, ports.ExchangeRecord{
		SessionID:   sessionID,
		Prompt:      ex.Prompt,
		Completion:  ex.Reply,
		TotalTokens: ex.TotalTokens,
		Evicted:     ex.Trim.EvictedTurns,
		AudioURL:    audioURL,
	})

	return &Reply{
		SessionID:   sessionID,
		Prompt:      ex.Prompt,
		Completion:  ex.Reply,
		TotalTokens: ex.TotalTokens,
		Evicted:     ex.Trim.EvictedTurns,
		Transcript:  ex.Transcript,
	}, nil
}

func (s *AiService) Reset(sessionID string) {
	s.sessions.Reset(sessionID)
	s.log.Info("context reset", zap.String("session_id", sessionID))
}

func (s *AiService) Forget(sessionID string) bool {
	return s.sessions.Delete(sessionID)
}

func (s *AiService) History(ctx context.Context, sessionID string, limit int) ([]ports.ExchangeRecord, error) {
	if s.opts.Exchanges == nil {
		return []ports.ExchangeRecord{}, nil
	}
	return s.opts.Exchanges.ListBySession(ctx, sessionID, limit)
}

func (s *AiService) transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.UpstreamTimeout)
	defer cancel()
	return s.stt.Transcribe(ctx, filename, bytes.NewReader(audio))
}

func (s *AiService) moderate(ctx context.Context, text string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.UpstreamTimeout)
	defer cancel()
	return s.mod.Moderate(ctx, text)
}

func (s *AiService) complete(ctx context.Context, turns []conversation.Turn) (conversation.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.UpstreamTimeout)
	defer cancel()
	return s.llm.Complete(ctx, turns)
}

// archive и record не валят запрос: архив и журнал вспомогательные.
func (s *AiService) archive(ctx context.Context, log *zap.Logger, sessionID string, audio []byte, filename string) *string {
	if s.opts.Archive == nil {
		return nil
	}
	url, err := s.opts.Archive.SaveAudio(ctx, sessionID, audio, filename)
	if err != nil {
		log.Warn("audio archive failed", zap.Error(err))
		return nil
	}
	return &url
}

func (s *AiService) record(ctx context.Context, log *zap.Logger, rec ports.ExchangeRecord) {
	if s.opts.Exchanges == nil {
		return
	}
	if _, err := s.opts.Exchanges.Create(ctx, rec); err != nil {
		log.Warn("exchange log failed", zap.Error(err))
	}
}
