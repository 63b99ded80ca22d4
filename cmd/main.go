package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"go.uber.org/zap"

	"github.com/Vovarama1992/voice_chat/internal/ai"
	"github.com/Vovarama1992/voice_chat/internal/config"
	"github.com/Vovarama1992/voice_chat/internal/conversation"
	"github.com/Vovarama1992/voice_chat/internal/delivery"
	"github.com/Vovarama1992/voice_chat/internal/domain"
	"github.com/Vovarama1992/voice_chat/internal/error_notificator"
	"github.com/Vovarama1992/voice_chat/internal/infra"
	"github.com/Vovarama1992/voice_chat/internal/tokenizer"
)

func main() {

	// =========================================================================
	// ENV / LOGGER
	// =========================================================================

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	baseLogger, _ := zap.NewProduction()
	defer baseLogger.Sync()
	zl := logger.NewZapLogger(baseLogger.Sugar())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// =========================================================================
	// TOKENIZER
	// =========================================================================

	codec, err := tokenizer.ForModel(cfg.ChatModel)
	if err != nil {
		log.Fatalf("tokenizer: %v", err)
	}

	// =========================================================================
	// OPTIONAL SINKS (S3 / POSTGRES)
	// =========================================================================

	opts := ai.Options{
		Refusal:         cfg.ModerationRefusal,
		UpstreamTimeout: cfg.UpstreamTimeout,
	}

	if cfg.S3.Endpoint != "" {
		initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		s3Client, err := infra.NewS3Client(initCtx, cfg.S3)
		cancel()
		if err != nil {
			log.Fatalf("failed to init s3: %v", err)
		}
		opts.Archive = domain.NewAudioArchive(s3Client)
	}

	if cfg.DatabaseURL != "" {
		initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		db, err := infra.OpenPostgres(initCtx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer db.Close()
		opts.Exchanges = infra.NewExchangeRepo(db)
	}

	// =========================================================================
	// CLIENTS (STT / MODERATION / CHAT)
	// =========================================================================

	openAIClient := ai.NewOpenAIClient(ai.OpenAIConfig{
		APIKey:          cfg.OpenAIAPIKey,
		BaseURL:         cfg.OpenAIBaseURL,
		ChatModel:       cfg.ChatModel,
		WhisperModel:    cfg.WhisperModel,
		ModerationModel: cfg.ModerationModel,
		Temperature:     cfg.Temperature,
		MaxTokens:       cfg.MaxResponse,
	})

	var stt ai.Transcriber = openAIClient
	if cfg.STTProvider == "deepgram" {
		stt = ai.NewDeepgramClient(ai.DeepgramConfig{
			APIKey:   cfg.DeepgramAPIKey,
			Model:    cfg.DeepgramModel,
			Language: cfg.DeepgramLanguage,
		})
	}

	// =========================================================================
	// DOMAIN SERVICES
	// =========================================================================

	sessions := conversation.NewRegistry(conversation.Options{
		SystemPrompt:      cfg.SystemPrompt,
		ResetSystemPrompt: cfg.ResetSystemPrompt,
		ContextDepth:      cfg.ContextDepth,
		Policy:            cfg.Policy(),
		Tokenizer:         codec,
		MaxSessions:       cfg.MaxSessions,
	})

	notifiers := []error_notificator.Notificator{error_notificator.NewLogInfra(baseLogger)}
	if cfg.TelegramBotToken != "" {
		tg, err := error_notificator.NewTelegramInfra(cfg.TelegramBotToken, cfg.AdminChatID)
		if err != nil {
			log.Fatalf("failed to init telegram alerts: %v", err)
		}
		notifiers = append(notifiers, tg)
	}
	errService := error_notificator.NewService(notifiers...)

	aiService := ai.NewAiService(
		stt,
		openAIClient,
		openAIClient,
		sessions,
		errService,
		baseLogger,
		opts,
	)

	// =========================================================================
	// HTTP ROUTER
	// =========================================================================

	chatHandler := delivery.NewChatHandler(aiService, zl, cfg.MaxAudioBytes)
	r := delivery.NewRouter(chatHandler, cfg.RateLimitPerMinute)

	// =========================================================================
	// START SERVER
	// =========================================================================

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zl.Log(logger.LogEntry{
		Level:   "info",
		Message: "listening at " + srv.Addr,
		Service: "voice_chat",
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}
