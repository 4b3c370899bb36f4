package compile

import "fmt"

// State is a pipeline stage.
type State int

const (
	StateInit State = iota
	StateResolvingProgram
	StateWeaving
	StateCompiling
	StateReporting
	StateDone
)

var stateNames = [...]string{
	StateInit:             "init",
	StateResolvingProgram: "resolving_program",
	StateWeaving:          "weaving",
	StateCompiling:        "compiling",
	StateReporting:        "reporting",
	StateDone:             "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// allowedTransitions lists the states reachable from each state. Every stage may
// end the run.
var allowedTransitions = map[State][]State{
	StateInit:             {StateResolvingProgram, StateDone},
	StateResolvingProgram: {StateWeaving, StateCompiling, StateDone},
	StateWeaving:          {StateCompiling, StateDone},
	StateCompiling:        {StateReporting, StateDone},
	StateReporting:        {StateDone},
}

func transitionAllowed(from, to State) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// FailureKind classifies why a run failed.
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureValidation FailureKind = "validation"
	FailureResolution FailureKind = "resolution"
	FailureWeave      FailureKind = "weave"
	FailureCompile    FailureKind = "compile"
	FailureInvocation FailureKind = "invocation"
	FailureBusy       FailureKind = "busy"
)
