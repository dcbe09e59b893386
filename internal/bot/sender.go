package bot

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/citymate-bot/citymate/internal/bot/keyboard"
)

// TelebotSender delivers conversation replies through the Telegram API.
type TelebotSender struct {
	bot *telebot.Bot
}

// NewTelebotSender wraps a telebot instance as a conversation sender.
func NewTelebotSender(b *telebot.Bot) *TelebotSender {
	return &TelebotSender{bot: b}
}

// Send delivers a message to the user, attaching the reply keyboard when one
// is provided.
func (s *TelebotSender) Send(userID int64, text string, kb *keyboard.Keyboard) error {
	recipient := &telebot.User{ID: userID}

	opts := []interface{}{telebot.ModeHTML}
	if kb != nil {
		opts = append(opts, kb.Markup())
	}

	_, err := s.bot.Send(recipient, text, opts...)
	return err
}
