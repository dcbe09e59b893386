package state

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages (metrics) to observe
// conversation state transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// RecordTransition reports a state change to the registered recorder.
func RecordTransition(from, to State) {
	if from == to {
		return
	}

	transitionRecorder(string(from), string(to))
}

// validTransitions contains the permitted forward transitions of the
// conversation machine. "назад" resolves to StateMain, which is always
// reachable from any non-start state.
var validTransitions = map[State][]State{
	StateStart: {
		StateConfirmCity,
		StateChooseCity,
		StateMain,
	},
	StateConfirmCity: {
		StateChooseCity,
		StateMain,
	},
	StateChooseCity: {
		StateMain,
	},
	StateMain: {
		StateWeatherDay,
		StateEventsDay,
		StateChooseCity,
	},
	StateWeatherDay: {
		StateMain,
	},
	StateEventsDay: {
		StateMain,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is
// valid. Returning to main or resetting to start is always permitted.
func IsTransitionAllowed(from, to State) bool {
	if from == to || to == StateMain || to == StateStart {
		return true
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, s := range allowed {
		if s == to {
			return true
		}
	}

	return false
}
