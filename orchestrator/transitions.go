package orchestrator

import (
	"fmt"

	"contentpilot/types"
)

var allowedTransitions = map[types.Stage]map[types.Stage]struct{}{
	types.StagePending: {
		types.StageResearching: {},
		types.StageFailed:      {},
	},
	types.StageResearching: {
		types.StageWriting: {},
		types.StageFailed:  {},
	},
	types.StageWriting: {
		types.StageGeneratingImage: {},
		types.StageFailed:          {},
	},
	types.StageGeneratingImage: {
		types.StagePublishing: {},
		types.StageFailed:     {},
	},
	types.StagePublishing: {
		types.StageCompleted: {},
		types.StageFailed:    {},
	},
	types.StageCompleted: {},
	types.StageFailed:    {},
}

// ValidateStage reports whether s is a known job stage
func ValidateStage(s types.Stage) error {
	if _, ok := allowedTransitions[s]; !ok {
		return fmt.Errorf("invalid job stage: %q", s)
	}
	return nil
}

// ValidateTransition checks that a job may move from one stage to another.
// Staying on a non-terminal stage is allowed so progress can advance within it.
func ValidateTransition(from, to types.Stage) error {
	if err := ValidateStage(from); err != nil {
		return err
	}
	if err := ValidateStage(to); err != nil {
		return err
	}
	if from == to && !from.Terminal() {
		return nil
	}
	if _, ok := allowedTransitions[from][to]; !ok {
		return fmt.Errorf("invalid job transition: %s -> %s", from, to)
	}
	return nil
}
