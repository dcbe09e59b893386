// Package gateway defines the ports to the messaging platform that the
// conversation core consumes without knowing the transport.
package gateway

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNoCity indicates that the messenger profile exposes no usable city.
var ErrNoCity = errors.New("profile city unavailable")

// ProfileCityResolver reads a user's city from their externally-visible
// messenger profile data. Used once, on first contact, to pre-fill the city
// confirmation prompt.
type ProfileCityResolver interface {
	CityOf(ctx context.Context, userID int64) (string, error)
}

// TelegramProfileResolver is the resolver for Telegram, whose user profiles
// carry no city field; it always reports ErrNoCity, so first contact falls
// through to free-text city entry. Platforms that expose a profile city plug
// in their own resolver.
type TelegramProfileResolver struct {
	log *slog.Logger
}

// NewTelegramProfileResolver constructs the Telegram resolver.
func NewTelegramProfileResolver(log *slog.Logger) *TelegramProfileResolver {
	if log == nil {
		log = slog.Default()
	}

	return &TelegramProfileResolver{log: log}
}

// CityOf always reports ErrNoCity on Telegram.
func (r *TelegramProfileResolver) CityOf(_ context.Context, userID int64) (string, error) {
	r.log.Debug("telegram exposes no profile city", slog.Int64("user_id", userID))
	return "", ErrNoCity
}
