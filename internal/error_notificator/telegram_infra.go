package error_notificator

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramInfra шлёт алерт админу в личку бота.
type TelegramInfra struct {
	bot    sender
	chatID int64
}

// NewTelegramInfra авторизует бота (getMe), поэтому вызывается один раз при старте.
func NewTelegramInfra(token string, adminChatID int64) (*TelegramInfra, error) {
	if adminChatID == 0 {
		return nil, errors.New("admin chat id not set")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return newTelegramInfra(bot, adminChatID), nil
}

func newTelegramInfra(bot sender, chatID int64) *TelegramInfra {
	return &TelegramInfra{bot: bot, chatID: chatID}
}

func (i *TelegramInfra) Notify(ctx context.Context, sessionID string, err error, details string) error {
	text := fmt.Sprintf(
		"❗ Ошибка апстрима (сессия %s)\n\nОшибка: %v\n\nДиагноз: %s\n\nДетали: %s",
		sessionID,
		err,
		Diagnose(err),
		details,
	)

	if _, sendErr := i.bot.Send(tgbotapi.NewMessage(i.chatID, text)); sendErr != nil {
		return fmt.Errorf("telegram send: %w", sendErr)
	}
	return nil
}
