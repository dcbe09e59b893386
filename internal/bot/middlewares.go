package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	apperrors "github.com/citymate-bot/citymate/internal/errors"
	"github.com/citymate-bot/citymate/internal/ratelimit"
	"github.com/citymate-bot/citymate/pkg/metrics"
)

// Handler processes one inbound update.
type Handler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

const msgTooManyRequests = "Слишком много запросов. Попробуйте позже"

// RecoveryMiddleware catches panics, reports them via the centralized
// handler, and notifies the user instead of crashing message processing.
func RecoveryMiddleware(log *slog.Logger, errHandler *apperrors.Handler) Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next Handler) Handler {
		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler",
						slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					userMsg := "Произошла ошибка. Попробуйте позже"
					if errHandler != nil {
						if msg, _ := errHandler.Handle(context.Background(), fmt.Errorf("panic recovered: %v", r)); msg != "" {
							userMsg = msg
						}
					}

					if c != nil {
						if sendErr := c.Send(userMsg); sendErr != nil {
							log.Error("failed to notify user about panic", slog.Any("error", sendErr))
						}
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for
// handler failures; no handler error propagates to telebot.
func ErrorHandlingMiddleware(errHandler *apperrors.Handler) Middleware {
	return func(next Handler) Handler {
		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			userMsg := "Произошла ошибка. Попробуйте позже"
			if errHandler != nil {
				if msg, _ := errHandler.Handle(context.Background(), err); msg != "" {
					userMsg = msg
				}
			}

			if c != nil {
				_ = c.Send(userMsg)
			}

			return nil
		}
	}
}

// LoggingMiddleware logs basic telemetry about incoming updates.
func LoggingMiddleware(log *slog.Logger) Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next Handler) Handler {
		return func(c telebot.Context) error {
			start := time.Now()

			userID := int64(0)
			text := ""
			if c != nil {
				if c.Sender() != nil {
					userID = c.Sender().ID
				}
				text = c.Text()
			}

			err := next(c)
			log.Info("handled message",
				slog.Int64("user_id", userID),
				slog.String("command", commandLabel(text)),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}

// MetricsMiddleware records per-command counters and latency.
func MetricsMiddleware(next Handler) Handler {
	return func(c telebot.Context) error {
		start := time.Now()

		text := ""
		if c != nil {
			text = c.Text()
		}

		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordCommand(commandLabel(text), status, time.Since(start))
		return err
	}
}

// RateLimitMiddleware rejects users over their message allowance with a
// polite reply; state and context are untouched.
func RateLimitMiddleware(limiter ratelimit.Limiter, limit int, window time.Duration, log *slog.Logger) Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next Handler) Handler {
		return func(c telebot.Context) error {
			if limiter == nil || c == nil || c.Sender() == nil {
				return next(c)
			}

			key := fmt.Sprintf("user:%d", c.Sender().ID)
			_, err := limiter.Check(context.Background(), key, limit, window)
			if err != nil {
				if errors.Is(err, ratelimit.ErrLimitExceeded) {
					log.Warn("user rate limited", slog.Int64("user_id", c.Sender().ID))
					return c.Send(msgTooManyRequests)
				}

				log.Error("rate limiter failure, allowing message", slog.Any("error", err))
			}

			return next(c)
		}
	}
}

// commandLabel maps free text to a bounded metric label: one of the fixed
// command words or "other".
func commandLabel(text string) string {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "начать", "/start":
		return "start"
	case "назад":
		return "back"
	case "погода":
		return "weather"
	case "пробки":
		return "traffic"
	case "афиша":
		return "events"
	case "валюта":
		return "currency"
	case "изменить город":
		return "change_city"
	case "да":
		return "yes"
	case "нет":
		return "no"
	case "сегодня":
		return "today"
	case "завтра":
		return "tomorrow"
	default:
		return "other"
	}
}
