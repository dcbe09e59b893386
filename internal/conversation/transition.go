package conversation

import (
	"fmt"
	"strings"

	"github.com/citymate-bot/citymate/internal/bot/keyboard"
	"github.com/citymate-bot/citymate/internal/provider"
	"github.com/citymate-bot/citymate/internal/state"
)

// Effect is one side effect the engine must execute after a transition.
// Keeping effects as data isolates the network calls from the transition
// logic, which stays a pure function.
type Effect interface {
	isEffect()
}

// Reply sends a message, optionally with a keyboard.
type Reply struct {
	Text     string
	Keyboard *keyboard.Keyboard
}

// BeginOnboarding resolves the first-contact branch: existing profile goes to
// main, a resolvable messenger-profile city goes to confirm_city, otherwise
// choose_city. The engine adjusts the context based on what it finds.
type BeginOnboarding struct{}

// PersistCity durably stores the city as the user's registered city.
type PersistCity struct {
	City string
}

// RunWeather executes a weather query for the registered city.
type RunWeather struct {
	Day provider.Day
}

// RunEvents executes an events query for the registered city.
type RunEvents struct {
	Day provider.Day
}

// RunTraffic executes a traffic query for the registered city.
type RunTraffic struct{}

// RunCurrency executes a currency rates query.
type RunCurrency struct{}

func (Reply) isEffect()           {}
func (BeginOnboarding) isEffect() {}
func (PersistCity) isEffect()     {}
func (RunWeather) isEffect()      {}
func (RunEvents) isEffect()       {}
func (RunTraffic) isEffect()      {}
func (RunCurrency) isEffect()     {}

// Decision is the outcome of advancing the conversation by one message.
type Decision struct {
	Next    state.Context
	Effects []Effect
}

// Advance interprets one inbound message against the current conversation
// context and returns the next context plus the effects to execute. It is a
// pure function: all I/O happens in the engine.
func Advance(cur state.Context, input string) Decision {
	text := strings.ToLower(strings.TrimSpace(input))

	if cur.Current == state.StateStart {
		return advanceStart(cur, text)
	}

	// Global override: "назад" returns to the main menu from any non-start
	// state and clears pending context.
	if text == cmdBack {
		return Decision{
			Next:    toState(cur, state.StateMain),
			Effects: []Effect{mainMenuReply()},
		}
	}

	switch cur.Current {
	case state.StateConfirmCity:
		return advanceConfirmCity(cur, text)
	case state.StateChooseCity:
		return advanceChooseCity(cur, input)
	case state.StateMain:
		return advanceMain(cur, text)
	case state.StateWeatherDay, state.StateEventsDay:
		return advanceDaySelect(cur, text)
	default:
		// Unknown stored state: recover by resetting to main.
		return Decision{
			Next:    toState(cur, state.StateMain),
			Effects: []Effect{mainMenuReply()},
		}
	}
}

func advanceStart(cur state.Context, text string) Decision {
	if text == cmdStart || text == cmdStartSlash {
		return Decision{
			Next:    cur,
			Effects: []Effect{BeginOnboarding{}},
		}
	}

	return Decision{
		Next:    cur,
		Effects: []Effect{Reply{Text: msgPressStart, Keyboard: keyboard.StartMenu()}},
	}
}

func advanceConfirmCity(cur state.Context, text string) Decision {
	switch text {
	case cmdYes:
		return Decision{
			Next: toState(cur, state.StateMain),
			Effects: []Effect{
				PersistCity{City: cur.PendingCity},
				Reply{Text: msgCityRegistered},
				mainMenuReply(),
			},
		}
	case cmdNo:
		return Decision{
			Next:    toState(cur, state.StateChooseCity),
			Effects: []Effect{Reply{Text: msgChooseCity, Keyboard: keyboard.BackMenu()}},
		}
	default:
		// Re-issue the yes/no prompt unchanged; no state or context mutation.
		return Decision{
			Next: cur,
			Effects: []Effect{Reply{
				Text:     fmt.Sprintf(msgConfirmCityFmt, cur.PendingCity),
				Keyboard: keyboard.ConfirmMenu(),
			}},
		}
	}
}

func advanceChooseCity(cur state.Context, input string) Decision {
	city := strings.TrimSpace(input)
	if city == "" {
		return Decision{
			Next:    cur,
			Effects: []Effect{Reply{Text: msgChooseCity, Keyboard: keyboard.BackMenu()}},
		}
	}

	return Decision{
		Next: toState(cur, state.StateMain),
		Effects: []Effect{
			PersistCity{City: city},
			Reply{Text: msgCityRegistered},
			mainMenuReply(),
		},
	}
}

func advanceMain(cur state.Context, text string) Decision {
	switch text {
	case cmdWeather:
		next := toState(cur, state.StateWeatherDay)
		next.PendingQuery = state.QueryWeather
		return Decision{
			Next:    next,
			Effects: []Effect{Reply{Text: msgChooseDay, Keyboard: keyboard.DaysMenu()}},
		}
	case cmdEvents:
		next := toState(cur, state.StateEventsDay)
		next.PendingQuery = state.QueryEvents
		return Decision{
			Next:    next,
			Effects: []Effect{Reply{Text: msgChooseDay, Keyboard: keyboard.DaysMenu()}},
		}
	case cmdTraffic:
		return Decision{
			Next:    cur,
			Effects: []Effect{RunTraffic{}, mainMenuReply()},
		}
	case cmdCurrency:
		return Decision{
			Next:    cur,
			Effects: []Effect{RunCurrency{}, mainMenuReply()},
		}
	case cmdChangeCity:
		return Decision{
			Next:    toState(cur, state.StateChooseCity),
			Effects: []Effect{Reply{Text: msgChooseCity, Keyboard: keyboard.BackMenu()}},
		}
	default:
		return Decision{
			Next: cur,
			Effects: []Effect{
				Reply{Text: msgUseKeyboard},
				mainMenuReply(),
			},
		}
	}
}

func advanceDaySelect(cur state.Context, text string) Decision {
	var day provider.Day
	switch text {
	case cmdDayToday:
		day = provider.DayToday
	case cmdDayTomorrow:
		day = provider.DayTomorrow
	default:
		return Decision{
			Next:    cur,
			Effects: []Effect{Reply{Text: msgChooseDay, Keyboard: keyboard.DaysMenu()}},
		}
	}

	var query Effect = RunWeather{Day: day}
	if cur.Current == state.StateEventsDay {
		query = RunEvents{Day: day}
	}

	return Decision{
		Next:    toState(cur, state.StateMain),
		Effects: []Effect{query, mainMenuReply()},
	}
}

// toState moves the context to a new state, clearing pending fields that only
// have meaning inside their originating state.
func toState(cur state.Context, next state.State) state.Context {
	out := cur
	out.Current = next
	out.PendingCity = ""
	out.PendingQuery = ""
	return out
}

func mainMenuReply() Reply {
	return Reply{Text: msgChooseAction, Keyboard: keyboard.MainMenu()}
}
