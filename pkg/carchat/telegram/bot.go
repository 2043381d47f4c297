// Package telegram delivers chat replies over the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/chat"
	"github.com/rs/zerolog"
)

// MaxMessageLen is the longest text Telegram accepts in one message
const MaxMessageLen = 4096

// Sender is the part of tgbotapi.BotAPI the bot uses
type Sender interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Replier answers chat messages
type Replier interface {
	Reply(ctx context.Context, text string) chat.Reply
}

// Bot dispatches text messages to a Replier
type Bot struct {
	api     Sender
	chat    Replier
	timeout int
	log     zerolog.Logger
}

// Connect authorizes token against the Bot API
func Connect(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram authorize: %w", err)
	}
	api.Debug = debug
	return api, nil
}

// New returns a bot polling with the given long-poll timeout in seconds
func New(api Sender, replier Replier, timeout int, log zerolog.Logger) *Bot {
	if timeout <= 0 {
		timeout = 60
	}
	return &Bot{api: api, chat: replier, timeout: timeout, log: log}
}

// Run long-polls for updates until ctx is cancelled
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.timeout
	updates := b.api.GetUpdatesChan(u)
	b.log.Info().Int("timeout", b.timeout).Msg("bot started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info().Msg("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := b.handleUpdate(ctx, update); err != nil {
				b.log.Error().Err(err).Int("update_id", update.UpdateID).Msg("handle update failed")
			}
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic handling update %d: %v", update.UpdateID, r)
		}
	}()

	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.IsCommand() {
		return nil
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	log := b.log.With().
		Str("request_id", uuid.NewString()).
		Int64("chat_id", msg.Chat.ID).
		Int("message_id", msg.MessageID).
		Logger()
	log.Debug().Str("text", text).Msg("inbound message")

	reply := b.chat.Reply(log.WithContext(ctx), text)
	for _, part := range Split(reply.Text, MaxMessageLen) {
		out := tgbotapi.NewMessage(msg.Chat.ID, part)
		out.ReplyToMessageID = msg.MessageID
		if _, err := b.api.Send(out); err != nil {
			return fmt.Errorf("send reply to chat %d: %w", msg.Chat.ID, err)
		}
	}
	log.Info().Str("kind", string(reply.Kind)).Msg("replied")
	return nil
}

// Split breaks text into parts of at most limit runes, cutting at line
// boundaries where possible. Lines longer than limit are cut hard.
func Split(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	var parts []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			parts = append(parts, string(cur))
			cur = cur[:0]
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		r := []rune(line)
		if len(cur)+len(r) > limit {
			flush()
		}
		for len(r) > limit {
			parts = append(parts, string(r[:limit]))
			r = r[limit:]
		}
		cur = append(cur, r...)
	}
	flush()

	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimRight(p, "\n"); p != "" {
			out = append(out, p)
		}
	}
	return out
}
