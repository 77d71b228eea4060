package types

import (
	"fmt"
	"strings"
)

type Step string

const (
	StepPersonal    Step = "step1"
	StepNeeds       Step = "step2"
	StepCalculation Step = "step3"
	StepComplete    Step = "step4"
)

var AllSteps = []Step{StepPersonal, StepNeeds, StepCalculation, StepComplete}

func ParseStep(s string) (Step, error) {
	step := Step(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllSteps {
		if step == known {
			return step, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownStep, s)
}

// Number is the 1-based position of the step in the wizard.
func (s Step) Number() int {
	for i, known := range AllSteps {
		if s == known {
			return i + 1
		}
	}
	return 0
}

// Next returns the following step, or the same step for the terminal one.
func (s Step) Next() Step {
	n := s.Number()
	if n == 0 || n >= len(AllSteps) {
		return s
	}
	return AllSteps[n]
}

func (s Step) Previous() Step {
	n := s.Number()
	if n <= 1 {
		return s
	}
	return AllSteps[n-2]
}

func (s Step) Label() string {
	switch s {
	case StepPersonal:
		return "Personal Details"
	case StepNeeds:
		return "Needs & Covers"
	case StepCalculation:
		return "Calculation"
	case StepComplete:
		return "Summary"
	default:
		return "Unknown"
	}
}

// Path is the wizard page for this step under the given access link.
func (s Step) Path(linkID string) string {
	return fmt.Sprintf("/form/%s/%s", linkID, s)
}
