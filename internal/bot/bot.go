// Package bot wires the Telegram transport to the conversation engine.
package bot

import (
	"context"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/citymate-bot/citymate/internal/conversation"
	apperrors "github.com/citymate-bot/citymate/internal/errors"
	"github.com/citymate-bot/citymate/internal/ratelimit"
	"github.com/citymate-bot/citymate/pkg/logger"
)

// Options configures the Telegram bot.
type Options struct {
	Token         string
	PollTimeout   time.Duration
	RateLimit     int
	RateWindow    time.Duration
	HandleTimeout time.Duration
}

// Bot runs the Telegram long-polling loop and dispatches text updates
// through the middleware chain into the conversation engine.
type Bot struct {
	tb     *telebot.Bot
	engine *conversation.Engine
	log    *slog.Logger
	opts   Options
}

// New builds the telebot instance and registers handlers. The conversation
// engine is attached afterwards with SetEngine, since it needs the bot's
// sender to exist first.
func New(opts Options, limiter ratelimit.Limiter, errHandler *apperrors.Handler, log *slog.Logger) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 10 * time.Second
	}
	if opts.HandleTimeout <= 0 {
		opts.HandleTimeout = 30 * time.Second
	}

	tb, err := telebot.NewBot(telebot.Settings{
		Token:  opts.Token,
		Poller: &telebot.LongPoller{Timeout: opts.PollTimeout},
	})
	if err != nil {
		return nil, err
	}

	b := &Bot{
		tb:   tb,
		log:  log,
		opts: opts,
	}

	handler := b.chain(
		b.handleText,
		RecoveryMiddleware(log, errHandler),
		ErrorHandlingMiddleware(errHandler),
		LoggingMiddleware(log),
		MetricsMiddleware,
		RateLimitMiddleware(limiter, opts.RateLimit, opts.RateWindow, log),
	)

	tb.Handle(telebot.OnText, func(c telebot.Context) error {
		return handler(c)
	})

	return b, nil
}

// SetEngine attaches the conversation engine. Must be called before Start.
func (b *Bot) SetEngine(engine *conversation.Engine) {
	b.engine = engine
}

// Telebot exposes the underlying bot for adapters and health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.tb
}

// Start runs long polling until the context is canceled.
func (b *Bot) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		b.tb.Stop()
	}()

	b.log.Info("bot started", slog.String("username", b.tb.Me.Username))
	b.tb.Start()
	b.log.Info("bot stopped")
}

// chain applies middlewares so the first listed runs outermost.
func (b *Bot) chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func (b *Bot) handleText(c telebot.Context) error {
	sender := c.Sender()
	if sender == nil || b.engine == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.opts.HandleTimeout)
	defer cancel()

	ctx = logger.WithCorrelationID(ctx)

	return b.engine.HandleMessage(ctx, sender.ID, c.Text())
}
