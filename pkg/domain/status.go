package domain

import "fmt"

// PipelineStatus is the lifecycle state of a Pipeline.
//
// The only legal transitions are InProgress -> Complete and
// InProgress -> Failed. Both terminal transitions also set
// Pipeline.Finished.
type PipelineStatus string

const (
	InProgress PipelineStatus = "InProgress"
	Complete   PipelineStatus = "Complete"
	Failed     PipelineStatus = "Failed"
)

func (s PipelineStatus) String() string {
	return string(s)
}

// Terminal reports whether s is an absorbing state.
func (s PipelineStatus) Terminal() bool {
	return s == Complete || s == Failed
}

func AsPipelineStatus(s string) (PipelineStatus, error) {
	switch ps := PipelineStatus(s); ps {
	case InProgress, Complete, Failed:
		return ps, nil
	default:
		return "", fmt.Errorf("unknown pipeline status: %s", s)
	}
}

// StepStatus is the lifecycle state of a Step.
//
// Transitions: NotStarted -> StepInProgress -> (StepSuccess|StepFail).
// A step reaches a terminal state exactly once.
type StepStatus string

const (
	NotStarted     StepStatus = "NotStarted"
	StepInProgress StepStatus = "InProgress"
	StepSuccess    StepStatus = "Success"
	StepFail       StepStatus = "Fail"
)

func (s StepStatus) String() string {
	return string(s)
}

// Terminal reports whether s is an absorbing state.
func (s StepStatus) Terminal() bool {
	return s == StepSuccess || s == StepFail
}

// CanTransitTo reports whether the transition s -> next is legal.
func (s StepStatus) CanTransitTo(next StepStatus) bool {
	switch s {
	case NotStarted:
		return next == StepInProgress
	case StepInProgress:
		return next == StepSuccess || next == StepFail
	default:
		return false
	}
}

func AsStepStatus(s string) (StepStatus, error) {
	switch ss := StepStatus(s); ss {
	case NotStarted, StepInProgress, StepSuccess, StepFail:
		return ss, nil
	default:
		return "", fmt.Errorf("unknown step status: %s", s)
	}
}
