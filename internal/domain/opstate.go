package domain

// Phase identifies where an operation is in its lifecycle.
type Phase int

// Operation phases.
const (
	PhaseIdle Phase = iota
	PhaseInFlight
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInFlight:
		return "in_flight"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// OpState is the tagged operation state: Idle | InFlight | Succeeded(result)
// | Failed(error). It replaces ad hoc boolean flags so contradictory
// combinations cannot be represented.
type OpState struct {
	phase  Phase
	result *GenerationResult
	err    error
}

// Idle returns the idle state.
func Idle() OpState {
	return OpState{phase: PhaseIdle}
}

// InFlight returns the in-flight state.
func InFlight() OpState {
	return OpState{phase: PhaseInFlight}
}

// Succeeded wraps a finished result.
func Succeeded(result *GenerationResult) OpState {
	return OpState{phase: PhaseSucceeded, result: result}
}

// Failed wraps an operation error. The partial result, if any, stays
// attached so already-accumulated text remains visible.
func Failed(err error, partial *GenerationResult) OpState {
	return OpState{phase: PhaseFailed, err: err, result: partial}
}

// Phase returns the current phase.
func (s OpState) Phase() Phase {
	return s.phase
}

// Busy reports whether a new operation should be rejected or superseded.
func (s OpState) Busy() bool {
	return s.phase == PhaseInFlight
}

// Result returns the attached result and whether one is present.
func (s OpState) Result() (*GenerationResult, bool) {
	return s.result, s.result != nil
}

// Err returns the failure cause, or nil outside the failed phase.
func (s OpState) Err() error {
	return s.err
}
