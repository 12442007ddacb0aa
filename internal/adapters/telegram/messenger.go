package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

type Config struct {
	Token      string
	RatePerSec float64
	// APIURL overrides the Bot API endpoint.
	APIURL string
}

// Messenger delivers reminders through the Telegram Bot API. The bot never
// polls for updates; it only sends.
type Messenger struct {
	bot     *tele.Bot
	limiter *rate.Limiter
	log     zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) (*Messenger, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}

	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		URL:     cfg.APIURL,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 25
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	return &Messenger{
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     log.With().Str("component", "telegram").Logger(),
	}, nil
}

func (m *Messenger) Send(ctx context.Context, chatID string, text string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(chatID), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit: %w", err)
	}

	start := time.Now()
	if _, err := m.bot.Send(tele.ChatID(id), text); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}

	m.log.Debug().Int64("chat_id", id).Dur("took", time.Since(start)).Msg("message sent")
	return nil
}

// LogMessenger writes reminders to the log. It stands in for Telegram when
// no bot token is configured.
type LogMessenger struct {
	log zerolog.Logger
}

func NewLogMessenger(log zerolog.Logger) *LogMessenger {
	return &LogMessenger{log: log.With().Str("component", "log_messenger").Logger()}
}

func (m *LogMessenger) Send(ctx context.Context, chatID string, text string) error {
	m.log.Info().Str("chat_id", chatID).Str("text", text).Msg("reminder")
	return nil
}
