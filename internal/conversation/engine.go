// Package conversation implements the per-user conversation state machine and
// the orchestration of external data providers behind it.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/citymate-bot/citymate/internal/bot/keyboard"
	apperrors "github.com/citymate-bot/citymate/internal/errors"
	"github.com/citymate-bot/citymate/internal/gateway"
	"github.com/citymate-bot/citymate/internal/provider"
	"github.com/citymate-bot/citymate/internal/repository"
	"github.com/citymate-bot/citymate/internal/state"
)

// Geocoder resolves a city name to coordinates.
type Geocoder interface {
	Coordinates(ctx context.Context, city string) (float64, float64, error)
}

// WeatherSource returns a forecast sample for coordinates and a day.
type WeatherSource interface {
	Forecast(ctx context.Context, lat, lon float64, day provider.Day) (provider.WeatherSnapshot, error)
}

// TrafficSource returns a congestion level for coordinates; it degrades
// internally and never fails.
type TrafficSource interface {
	Level(ctx context.Context, lat, lon float64) int
}

// CurrencySource returns the displayed exchange rates.
type CurrencySource interface {
	Rates(ctx context.Context) ([]provider.Rate, error)
}

// EventsSource lists events for a city slug and day.
type EventsSource interface {
	List(ctx context.Context, slug string, day provider.Day) ([]provider.Event, error)
}

// CityCatalog maps display city names to events slugs.
type CityCatalog interface {
	Slug(city string) (string, bool)
}

// Sender delivers outbound replies; satisfied by the bot's telebot adapter.
type Sender interface {
	Send(userID int64, text string, kb *keyboard.Keyboard) error
}

// Deps bundles everything the engine orchestrates.
type Deps struct {
	Storage  state.Storage
	Profiles repository.ProfileRepository
	Resolver gateway.ProfileCityResolver
	Geocoder Geocoder
	Weather  WeatherSource
	Traffic  TrafficSource
	Currency CurrencySource
	Events   EventsSource
	Catalog  CityCatalog
	Sender   Sender
	Errors   *apperrors.Handler
	Log      *slog.Logger
	// CallTimeout bounds each outbound provider call.
	CallTimeout time.Duration
}

// Engine drives the conversation machine: it loads the user's context,
// advances it through the pure transition function, executes the resulting
// effects, and persists the next context. Handling is serialized per user.
type Engine struct {
	deps  Deps
	log   *slog.Logger
	locks *keyedMutex
}

// NewEngine constructs the conversation engine.
func NewEngine(deps Deps) *Engine {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.CallTimeout <= 0 {
		deps.CallTimeout = 5 * time.Second
	}

	return &Engine{
		deps:  deps,
		log:   deps.Log,
		locks: newKeyedMutex(),
	}
}

// HandleMessage processes one inbound message for a user. Messages from the
// same user are handled strictly in arrival order; no error it returns is
// fatal to the conversation or to other users.
func (e *Engine) HandleMessage(ctx context.Context, userID int64, text string) error {
	unlock := e.locks.Lock(userID)
	defer unlock()

	cur := e.loadContext(ctx, userID)
	decision := Advance(*cur, text)
	next := decision.Next

	for _, effect := range decision.Effects {
		if err := e.apply(ctx, &next, effect); err != nil {
			// Durable-path failure: tell the user and keep the previous state
			// so the action can be retried.
			msg, _ := e.deps.Errors.Handle(ctx, err)
			if msg == "" {
				msg = msgSomethingWrong
			}
			e.send(userID, msg, nil)
			next = *cur
			break
		}
	}

	if !state.IsTransitionAllowed(cur.Current, next.Current) {
		e.log.Warn("transition outside the declared table",
			slog.Int64("user_id", userID),
			slog.String("from", string(cur.Current)), slog.String("to", string(next.Current)))
	}
	state.RecordTransition(cur.Current, next.Current)

	if err := e.deps.Storage.Set(ctx, userID, &next); err != nil {
		e.log.Error("failed to persist conversation context",
			slog.Int64("user_id", userID), slog.Any("error", err))
		return err
	}

	return nil
}

func (e *Engine) loadContext(ctx context.Context, userID int64) *state.Context {
	conv, err := e.deps.Storage.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, state.ErrContextNotFound) {
			e.log.Error("failed to load conversation context, starting fresh",
				slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return state.NewContext(userID)
	}

	return conv
}

// apply executes one effect. Provider failures are absorbed here and never
// surface as errors; only durable-path failures (profile store) propagate so
// the caller can revert the transition.
func (e *Engine) apply(ctx context.Context, conv *state.Context, effect Effect) error {
	switch effect := effect.(type) {
	case Reply:
		e.send(conv.UserID, effect.Text, effect.Keyboard)
		return nil
	case BeginOnboarding:
		return e.beginOnboarding(ctx, conv)
	case PersistCity:
		return e.persistCity(ctx, conv.UserID, effect.City)
	case RunWeather:
		e.runWeather(ctx, conv.UserID, effect.Day)
		return nil
	case RunEvents:
		e.runEvents(ctx, conv.UserID, effect.Day)
		return nil
	case RunTraffic:
		e.runTraffic(ctx, conv.UserID)
		return nil
	case RunCurrency:
		e.runCurrency(ctx, conv.UserID)
		return nil
	default:
		e.log.Warn("unknown conversation effect", slog.Any("effect", effect))
		return nil
	}
}

// beginOnboarding resolves the first-contact branch after the start command:
// an existing profile goes straight to main; otherwise the messenger profile
// city, when resolvable, seeds a confirmation prompt, and free-text city
// entry is the fallback.
func (e *Engine) beginOnboarding(ctx context.Context, conv *state.Context) error {
	profile, err := e.deps.Profiles.Get(ctx, conv.UserID)
	switch {
	case err == nil && profile != nil:
		conv.Current = state.StateMain
		e.send(conv.UserID, msgChooseAction, keyboard.MainMenu())
		return nil
	case errors.Is(err, repository.ErrProfileNotFound):
		city, cityErr := e.deps.Resolver.CityOf(ctx, conv.UserID)
		city = strings.TrimSpace(city)

		if cityErr == nil && city != "" {
			conv.Current = state.StateConfirmCity
			conv.PendingCity = city
			e.send(conv.UserID, fmt.Sprintf(msgConfirmCityFmt, city), keyboard.ConfirmMenu())
			return nil
		}

		if cityErr != nil && !errors.Is(cityErr, gateway.ErrNoCity) {
			e.log.Warn("profile city resolver failed",
				slog.Int64("user_id", conv.UserID), slog.Any("error", cityErr))
		}

		conv.Current = state.StateChooseCity
		e.send(conv.UserID, msgChooseCity, keyboard.BackMenu())
		return nil
	default:
		return apperrors.NewDatabaseError(err)
	}
}

func (e *Engine) persistCity(ctx context.Context, userID int64, city string) error {
	return apperrors.WithRetry(ctx, func() error {
		if err := e.deps.Profiles.Upsert(ctx, userID, city); err != nil {
			return apperrors.NewDatabaseError(err)
		}
		return nil
	})
}

func (e *Engine) runWeather(ctx context.Context, userID int64, day provider.Day) {
	city, err := e.registeredCity(ctx, userID)
	if err != nil {
		e.failQuery(ctx, userID, err)
		return
	}

	lat, lon, err := e.coordinates(ctx, city)
	if err != nil {
		e.failQuery(ctx, userID, err)
		return
	}

	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	snapshot, err := e.deps.Weather.Forecast(callCtx, lat, lon, day)
	if err != nil {
		e.failQuery(ctx, userID, err)
		return
	}

	e.send(userID, formatWeather(snapshot), nil)
}

func (e *Engine) runEvents(ctx context.Context, userID int64, day provider.Day) {
	city, err := e.registeredCity(ctx, userID)
	if err != nil {
		e.failQuery(ctx, userID, err)
		return
	}

	city = strings.ToLower(city)
	slug, ok := e.deps.Catalog.Slug(city)
	if !ok {
		e.send(userID, msgEventsUnavailable, nil)
		return
	}

	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	events, err := e.deps.Events.List(callCtx, slug, day)
	if err != nil {
		e.failQuery(ctx, userID, err)
		return
	}

	e.send(userID, formatEvents(city, day, events), nil)
}

func (e *Engine) runTraffic(ctx context.Context, userID int64) {
	city, err := e.registeredCity(ctx, userID)
	if err != nil {
		e.failQuery(ctx, userID, err)
		return
	}

	lat, lon, err := e.coordinates(ctx, city)
	if err != nil {
		e.failQuery(ctx, userID, err)
		return
	}

	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	level := e.deps.Traffic.Level(callCtx, lat, lon)
	e.send(userID, formatTraffic(level), nil)
}

func (e *Engine) runCurrency(ctx context.Context, userID int64) {
	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	rates, err := e.deps.Currency.Rates(callCtx)
	if err != nil {
		e.failQuery(ctx, userID, err)
		return
	}

	e.send(userID, formatRates(rates), nil)
}

// registeredCity loads the user's stored city. A missing profile at query
// time means the user reached main without one; it is treated like any other
// query failure rather than propagated.
func (e *Engine) registeredCity(ctx context.Context, userID int64) (string, error) {
	profile, err := e.deps.Profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return "", apperrors.NewNotFoundError("profile")
		}
		return "", apperrors.NewDatabaseError(err)
	}

	return profile.City, nil
}

func (e *Engine) coordinates(ctx context.Context, city string) (float64, float64, error) {
	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	return e.deps.Geocoder.Coordinates(callCtx, city)
}

// failQuery logs the failure and sends the generic failure reply. The caller
// has already decided the next state (main), so the user is never left stuck
// in a sub-state.
func (e *Engine) failQuery(ctx context.Context, userID int64, err error) {
	msg, _ := e.deps.Errors.Handle(ctx, err)
	if msg == "" {
		msg = msgSomethingWrong
	}

	e.send(userID, msg, nil)
}

func (e *Engine) send(userID int64, text string, kb *keyboard.Keyboard) {
	if err := e.deps.Sender.Send(userID, text, kb); err != nil {
		e.log.Error("failed to send reply", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

func (e *Engine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.deps.CallTimeout)
}
