// Package runstate defines the run lifecycle and the retry decision taken
// after each validation pass. Everything here is pure.
package runstate

import (
	"fmt"

	"docpilot/internal/spec"
)

type State string

const (
	Created    State = "CREATED"
	Scouting   State = "SCOUTING"
	Extracting State = "EXTRACTING"
	Drafting   State = "DRAFTING"
	Validating State = "VALIDATING"
	Fixing     State = "FIXING"
	ReadyForPR State = "READY_FOR_PR"
	Done       State = "DONE"
	Failed     State = "FAILED"
)

var allowedTransitions = map[State]map[State]struct{}{
	Created: {
		Scouting: {},
		Failed:   {},
	},
	Scouting: {
		Extracting: {},
		Failed:     {},
	},
	Extracting: {
		Drafting: {},
		Failed:   {},
	},
	Drafting: {
		Validating: {},
		Failed:     {},
	},
	Validating: {
		Fixing:     {},
		ReadyForPR: {},
		Failed:     {},
	},
	Fixing: {
		Validating: {},
		Failed:     {},
	},
	ReadyForPR: {
		Done:   {},
		Failed: {},
	},
	Done:   {},
	Failed: {},
}

var stageStates = map[string]State{
	spec.StageScout:   Scouting,
	spec.StageExtract: Extracting,
	spec.StageDraft:   Drafting,
}

func ValidateState(state State) error {
	if _, ok := allowedTransitions[state]; !ok {
		return fmt.Errorf("invalid run state: %q", state)
	}
	return nil
}

func ValidateTransition(from, to State) error {
	if err := ValidateState(from); err != nil {
		return err
	}
	if err := ValidateState(to); err != nil {
		return err
	}
	if _, ok := allowedTransitions[from][to]; !ok {
		return fmt.Errorf("invalid run transition: %s -> %s", from, to)
	}
	return nil
}

// Terminal reports whether no transition leaves state.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// ForStage maps a worker stage name to the state the run holds while that
// stage executes.
func ForStage(stage string) (State, bool) {
	state, ok := stageStates[stage]
	return state, ok
}
