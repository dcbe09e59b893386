package state

import "time"

// State represents a conversation state in the per-user dialogue machine.
type State string

const (
	// StateStart indicates the user has never completed onboarding.
	StateStart State = "start"
	// StateConfirmCity indicates the bot is waiting for a yes/no answer about
	// the city it guessed from the user's messenger profile.
	StateConfirmCity State = "confirm_city"
	// StateChooseCity indicates the bot is waiting for free-text city entry.
	StateChooseCity State = "choose_city"
	// StateMain indicates the steady state where command words are accepted.
	StateMain State = "main"
	// StateWeatherDay indicates the bot is waiting for a weather day choice.
	StateWeatherDay State = "weather_day_select"
	// StateEventsDay indicates the bot is waiting for an events day choice.
	StateEventsDay State = "events_day_select"
)

// QueryKind identifies a pending query while a day choice is awaited.
type QueryKind string

const (
	QueryWeather QueryKind = "weather"
	QueryEvents  QueryKind = "events"
)

// Context captures the transient, per-user conversation state. PendingCity is
// meaningful only in StateConfirmCity and PendingQuery only in the day-select
// states; transitioning out of those states clears them.
type Context struct {
	UserID       int64     `json:"user_id"`
	Current      State     `json:"current_state"`
	PendingCity  string    `json:"pending_city,omitempty"`
	PendingQuery QueryKind `json:"pending_query,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewContext returns the default context for a user seen for the first time.
func NewContext(userID int64) *Context {
	return &Context{
		UserID:  userID,
		Current: StateStart,
	}
}
