package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"weekplan/internal/planner"
)

// Telegram delivers reminders as one-way messages to a single chat.
// Useful when the planner runs headless (e.g. on a home server).
type Telegram struct {
	bot  *tele.Bot
	chat tele.ChatID
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	bot, err := tele.NewBot(tele.Settings{Token: token})
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &Telegram{bot: bot, chat: tele.ChatID(chatID)}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, r Reminder) error {
	_ = ctx // telebot manages its own HTTP timeouts

	text := fmt.Sprintf("🔔 %s\n%s (%s, %s)",
		r.Title, r.Body, r.Day, planner.FormatClock12(planner.Clock(r.At)))
	_, err := t.bot.Send(t.chat, text)
	return err
}
