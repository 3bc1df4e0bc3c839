package models

import (
	dErrors "jojo/pkg/domain-errors"
)

// Step names one of the six verification requirements.
type Step string

const (
	StepEmail                Step = "email"
	StepPhone                Step = "phone"
	StepPersonalInfo         Step = "personalInfo"
	StepIDDocument           Step = "idDocument"
	StepSelfie               Step = "selfie"
	StepEducationCertificate Step = "educationCertificate"
)

// AllSteps is the canonical step set, in wizard order.
var AllSteps = []Step{
	StepEmail,
	StepPhone,
	StepPersonalInfo,
	StepIDDocument,
	StepSelfie,
	StepEducationCertificate,
}

// TotalSteps is len(AllSteps).
const TotalSteps = 6

func (s Step) IsValid() bool {
	for _, step := range AllSteps {
		if s == step {
			return true
		}
	}
	return false
}

func (s Step) String() string {
	return string(s)
}

// ParseStep validates a wire step name.
func ParseStep(s string) (Step, error) {
	step := Step(s)
	if !step.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown verification step: "+s)
	}
	return step, nil
}

// StepState is the lifecycle of a single step.
type StepState string

const (
	StepNotStarted StepState = "not_started"
	StepSubmitted  StepState = "submitted"
	StepVerified   StepState = "verified"
	StepRejected   StepState = "rejected"
)

func (s StepState) IsValid() bool {
	switch s {
	case StepNotStarted, StepSubmitted, StepVerified, StepRejected:
		return true
	}
	return false
}

// IsComplete reports whether the step counts toward progress.
func (s StepState) IsComplete() bool {
	return s == StepVerified
}

// stepTransitions lists the allowed next states per current state.
// Resubmitting a verified step (new phone code, replacement ID) drops it back to submitted.
var stepTransitions = map[StepState][]StepState{
	StepNotStarted: {StepSubmitted, StepVerified},
	StepSubmitted:  {StepSubmitted, StepVerified, StepRejected},
	StepVerified:   {StepSubmitted, StepVerified, StepRejected},
	StepRejected:   {StepSubmitted, StepVerified},
}

// CanTransition reports whether a step may move from one state to another.
func CanTransition(from, to StepState) bool {
	for _, next := range stepTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StepStates holds the state of every canonical step.
type StepStates map[Step]StepState

// NewStepStates returns all six steps in not_started.
func NewStepStates() StepStates {
	states := make(StepStates, TotalSteps)
	for _, step := range AllSteps {
		states[step] = StepNotStarted
	}
	return states
}

// Get returns the state of step, treating absent keys as not_started.
func (s StepStates) Get(step Step) StepState {
	if state, ok := s[step]; ok && state.IsValid() {
		return state
	}
	return StepNotStarted
}

// Completed projects the states onto the boolean completedSteps view.
func (s StepStates) Completed() map[Step]bool {
	out := make(map[Step]bool, TotalSteps)
	for _, step := range AllSteps {
		out[step] = s.Get(step).IsComplete()
	}
	return out
}

// Incomplete lists steps that are not verified, in canonical order.
func (s StepStates) Incomplete() []Step {
	var out []Step
	for _, step := range AllSteps {
		if !s.Get(step).IsComplete() {
			out = append(out, step)
		}
	}
	return out
}

// Normalize drops unknown keys and fills missing canonical keys.
func (s StepStates) Normalize() StepStates {
	out := NewStepStates()
	for _, step := range AllSteps {
		out[step] = s.Get(step)
	}
	return out
}
