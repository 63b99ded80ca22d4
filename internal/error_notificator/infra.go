package error_notificator

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// LogInfra пишет ошибки апстрима в zap. Работает всегда, даже без Telegram.
type LogInfra struct {
	log *zap.Logger
}

func NewLogInfra(log *zap.Logger) *LogInfra {
	return &LogInfra{log: log}
}

func (i *LogInfra) Notify(ctx context.Context, sessionID string, err error, details string) error {
	i.log.Error("upstream failure",
		zap.String("session_id", sessionID),
		zap.String("details", details),
		zap.String("diagnosis", Diagnose(err)),
		zap.Error(err),
	)
	return nil
}

// Diagnose переводит ошибку OpenAI в короткое человекочитаемое объяснение.
func Diagnose(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "OpenAI request timed out."
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusUnauthorized:
		return "Invalid OpenAI API key."
	case status == http.StatusNotFound:
		return "Model not found."
	case status == http.StatusTooManyRequests:
		return "OpenAI rate limit exceeded."
	case status == http.StatusBadRequest:
		return "Malformed request to OpenAI."
	case status >= 500:
		return "OpenAI internal error."
	}
	return "Unknown OpenAI error: " + err.Error()
}
