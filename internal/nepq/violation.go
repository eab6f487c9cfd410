package nepq

import (
	"fmt"
	"math"
)

type ViolationType string

const (
	ViolationEarlyPresentation ViolationType = "early_presentation"
	ViolationPoorTransition    ViolationType = "poor_transition"
	ViolationMissedDiscovery   ViolationType = "missed_discovery"
)

func (t ViolationType) Valid() bool {
	switch t {
	case ViolationEarlyPresentation, ViolationPoorTransition, ViolationMissedDiscovery:
		return true
	}
	return false
}

// Label is the short text shown next to a flagged stage.
func (t ViolationType) Label() string {
	switch t {
	case ViolationEarlyPresentation:
		return "Presenting too early in the process"
	case ViolationPoorTransition:
		return "Weak transition between stages"
	case ViolationMissedDiscovery:
		return "Insufficient discovery questions"
	}
	return string(t)
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities low < medium < high; unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	}
	return 0
}

func (s Severity) Valid() bool { return s.Rank() > 0 }

// Violation flags a methodology breach at a point in a session. Violations
// are supplied by a reviewer or an upstream analyzer; nothing here detects them.
type Violation struct {
	Stage       Stage         `json:"stage"`
	Type        ViolationType `json:"type"`
	Severity    Severity      `json:"severity"`
	Timestamp   float64       `json:"timestamp"`
	Description string        `json:"description,omitempty"`
}

// Validate checks v against a session of the given length in seconds. A
// negative sessionDuration skips the upper timestamp bound.
func (v Violation) Validate(sessionDuration float64) error {
	if err := v.Stage.Validate(); err != nil {
		return err
	}
	if !v.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidViolation, v.Type)
	}
	if !v.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidViolation, v.Severity)
	}
	if math.IsNaN(v.Timestamp) || v.Timestamp < 0 {
		return fmt.Errorf("%w: negative timestamp %v", ErrInvalidViolation, v.Timestamp)
	}
	if sessionDuration >= 0 && v.Timestamp > sessionDuration {
		return fmt.Errorf("%w: timestamp %v after session end %v", ErrInvalidViolation, v.Timestamp, sessionDuration)
	}
	return nil
}

// Explanation prefers the annotator's description and falls back to the type label.
func (v Violation) Explanation() string {
	if v.Description != "" {
		return v.Description
	}
	return v.Type.Label()
}

// MostSevere returns the highest-severity violation in vs. Ties keep the
// earliest entry. ok is false when vs is empty.
func MostSevere(vs []Violation) (Violation, bool) {
	if len(vs) == 0 {
		return Violation{}, false
	}
	best := vs[0]
	for _, v := range vs[1:] {
		if v.Severity.Rank() > best.Severity.Rank() {
			best = v
		}
	}
	return best, true
}

// MostSevereByStage picks the most severe violation for each stage that has any.
func MostSevereByStage(vs []Violation) map[Stage]Violation {
	grouped := make(map[Stage][]Violation)
	for _, v := range vs {
		grouped[v.Stage] = append(grouped[v.Stage], v)
	}
	out := make(map[Stage]Violation, len(grouped))
	for stage, group := range grouped {
		if best, ok := MostSevere(group); ok {
			out[stage] = best
		}
	}
	return out
}
