package error_notificator

import "context"

type Notificator interface {
	// Notify — сообщает об ошибке апстрима в рамках сессии
	Notify(ctx context.Context, sessionID string, err error, details string) error
}
