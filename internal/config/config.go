package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/Vovarama1992/voice_chat/internal/conversation"
)

type Config struct {
	// OpenAI
	OpenAIAPIKey    string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string  `env:"OPENAI_BASE_URL"`            // пусто — api.openai.com
	ChatModel       string  `env:"CHATCOMPLETION_MODEL"`       // модель completion и токенайзера
	WhisperModel    string  `env:"WHISPER_MODEL"`              // модель транскрипции
	ModerationModel string  `env:"MODERATION_MODEL"`           // пусто — модель по умолчанию у провайдера
	Temperature     float32 `env:"CHATCOMPLETION_TEMPERATURE"` // 0..2
	MaxResponse     int     `env:"MAX_RESPONSE_TOKENS"`        // лимит токенов ответа
	TokenLimit      int     `env:"TOKEN_LIMIT"`                // окно контекста модели
	ContextDepth    int     `env:"CONTEXT_DEPTH"`              // бюджет истории

	// Диалог
	SystemPrompt      string `env:"SYSTEM_PROMPT"`
	ResetSystemPrompt string `env:"RESET_SYSTEM_PROMPT"`
	ModerationRefusal string `env:"MODERATION_REFUSAL"`
	EvictionPolicy    string `env:"EVICTION_POLICY"` // pair|literal

	// HTTP
	Host               string        `env:"HOST"`
	Port               int           `env:"PORT"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE"`
	UpstreamTimeout    time.Duration `env:"UPSTREAM_TIMEOUT"`
	MaxAudioBytes      int64         `env:"MAX_AUDIO_BYTES"`

	// STT: openai (Whisper) или deepgram
	STTProvider      string `env:"STT_PROVIDER"`
	DeepgramAPIKey   string `env:"DEEPGRAM_API_KEY"`
	DeepgramModel    string `env:"DEEPGRAM_MODEL"`
	DeepgramLanguage string `env:"DEEPGRAM_LANGUAGE"`

	// Алерты админу в Telegram, пустой токен — только лог
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	AdminChatID      int64  `env:"ADMIN_CHAT_ID"`

	// Предел сессий в памяти, старые вытесняются
	MaxSessions int `env:"MAX_SESSIONS"`

	S3 S3Config

	// Лог обменов в Postgres, пусто — выключен
	DatabaseURL string `env:"DATABASE_URL"`
}

// S3Config — архив аудио. Пустой endpoint выключает архив.
type S3Config struct {
	Endpoint  string `env:"S3_ENDPOINT"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	Bucket    string `env:"S3_BUCKET"`
	Region    string `env:"S3_REGION"`
	Secure    bool   `env:"S3_SECURE"`
}

const (
	defaultSystemPrompt = "Nama kamu adalah Stella. Kamu adalah ahli dokter kesehatan dan nutrisi. " +
		"Kamu akan menerima pertanyaan menggunakan bahasa gaul pertanyaan dari pasien."
	defaultResetSystemPrompt = "Nama kamu adalah Stella. Kamu adalah ahli dokter kesehatan dan nutrisi. " +
		"Kamu akan menerima pertanyaan atau tanggapan dari pasien. " +
		"kamu harus menjawab dengan singkat, padat, jelas menggunakan bahasa gaul anak jaksel."
	defaultRefusal = "Maaf, pertanyaan atau statement kamu melanggar Moderation Policy kami"
)

// Defaults возвращает значения, которые перекрываются .env и окружением.
func Defaults() *Config {
	return &Config{
		ChatModel:          "gpt-3.5-turbo",
		WhisperModel:       "whisper-1",
		Temperature:        0.5,
		MaxResponse:        1000,
		TokenLimit:         4096,
		ContextDepth:       4096,
		SystemPrompt:       defaultSystemPrompt,
		ResetSystemPrompt:  defaultResetSystemPrompt,
		ModerationRefusal:  defaultRefusal,
		EvictionPolicy:     string(conversation.PolicyPair),
		Host:               "0.0.0.0",
		Port:               8000,
		RateLimitPerMinute: 60,
		UpstreamTimeout:    120 * time.Second,
		MaxAudioBytes:      25 << 20,
		STTProvider:        "openai",
		DeepgramModel:      "nova-2",
		MaxSessions:        conversation.DefaultMaxSessions,
		S3: S3Config{
			Secure: true,
		},
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.OpenAIAPIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY not set"))
	}
	if c.ChatModel == "" {
		errs = append(errs, errors.New("CHATCOMPLETION_MODEL not set"))
	}
	if c.ContextDepth <= 0 {
		errs = append(errs, fmt.Errorf("CONTEXT_DEPTH must be positive, got %d", c.ContextDepth))
	}
	if c.TokenLimit > 0 && c.ContextDepth > c.TokenLimit {
		errs = append(errs, fmt.Errorf("CONTEXT_DEPTH %d exceeds TOKEN_LIMIT %d", c.ContextDepth, c.TokenLimit))
	}
	if c.MaxResponse <= 0 {
		errs = append(errs, fmt.Errorf("MAX_RESPONSE_TOKENS must be positive, got %d", c.MaxResponse))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("CHATCOMPLETION_TEMPERATURE must be within [0, 2], got %v", c.Temperature))
	}
	if _, err := conversation.ParsePolicy(c.EvictionPolicy); err != nil {
		errs = append(errs, err)
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.MaxAudioBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_AUDIO_BYTES must be positive, got %d", c.MaxAudioBytes))
	}
	switch c.STTProvider {
	case "openai":
	case "deepgram":
		if c.DeepgramAPIKey == "" {
			errs = append(errs, errors.New("DEEPGRAM_API_KEY not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STT_PROVIDER %q", c.STTProvider))
	}
	if c.TelegramBotToken != "" && c.AdminChatID == 0 {
		errs = append(errs, errors.New("ADMIN_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set"))
	}
	if c.MaxSessions <= 0 {
		errs = append(errs, fmt.Errorf("MAX_SESSIONS must be positive, got %d", c.MaxSessions))
	}
	if c.S3.Endpoint != "" && c.S3.Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET is required when S3_ENDPOINT is set"))
	}

	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) Policy() conversation.Policy {
	p, _ := conversation.ParsePolicy(c.EvictionPolicy)
	return p
}
