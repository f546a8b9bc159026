package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"autokit/internal/sched"
	"autokit/pkg/logx"
)

type TelegramConfig struct {
	Token  string
	ChatID int64

	FailuresOnly bool
	RatePerMin   int
}

// TelegramSink pushes outcome summaries to a chat. Send-only: no poller is
// attached to the bot.
type TelegramSink struct {
	cfg TelegramConfig
	log logx.Logger
	bot *tele.Bot
	lim *rate.Limiter
}

func NewTelegram(cfg TelegramConfig, log logx.Logger) (*TelegramSink, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram sink: token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram sink: chat_id is required")
	}
	if cfg.RatePerMin <= 0 {
		cfg.RatePerMin = 20
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	bot, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, fmt.Errorf("telegram sink: %w", err)
	}
	return &TelegramSink{
		cfg: cfg,
		log: log,
		bot: bot,
		lim: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMin)), cfg.RatePerMin),
	}, nil
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Deliver(ctx context.Context, o sched.Outcome) error {
	_ = ctx
	if o.Kind == sched.SkippedOverlap {
		return nil
	}
	if s.cfg.FailuresOnly && o.Kind == sched.Success {
		return nil
	}
	if !s.lim.Allow() {
		s.log.Debug("telegram rate limit hit; outcome not sent", logx.String("job", o.Job))
		return nil
	}

	_, err := s.bot.Send(
		&tele.Chat{ID: s.cfg.ChatID},
		formatTelegram(o),
		&tele.SendOptions{DisableWebPagePreview: true},
	)
	return err
}

func formatTelegram(o sched.Outcome) string {
	icon := "✅"
	switch o.Kind {
	case sched.Failure:
		icon = "❌"
	case sched.TimedOut:
		icon = "⏰"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", icon, o.Job, o.Kind)
	if o.Took > 0 {
		fmt.Fprintf(&b, " (%s)", o.Took.Round(time.Millisecond))
	}
	if o.Message != "" {
		b.WriteString("\n")
		b.WriteString(truncateMessage(o.Message, 600))
	}
	return b.String()
}

// truncateMessage shortens msg to at most max bytes without splitting a
// UTF-8 rune, so the result stays valid for the API.
func truncateMessage(msg string, max int) string {
	if len(msg) <= max {
		return msg
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "..."
}
