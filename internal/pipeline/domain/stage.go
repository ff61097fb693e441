package domain

// Stage is one step of the pipeline state machine. Stages are strictly
// ordered; a stage may only run when its predecessor has completed.
type Stage string

const (
	StageDraft                Stage = "draft"
	StageRequirementsComplete Stage = "requirements_complete"
	StageArchitectureComplete Stage = "architecture_complete"
	StageUXDesignComplete     Stage = "ux_design_complete"
	StageProjectGenerated     Stage = "project_generated"
)

var stageOrder = map[Stage]int{
	StageDraft:                0,
	StageRequirementsComplete: 1,
	StageArchitectureComplete: 2,
	StageUXDesignComplete:     3,
	StageProjectGenerated:     4,
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := stageOrder[s]
	return ok
}

// Ord returns the position of the stage in the pipeline order.
// Unknown stages sort before draft.
func (s Stage) Ord() int {
	if n, ok := stageOrder[s]; ok {
		return n
	}
	return -1
}

// Before reports whether s comes strictly before other in pipeline order.
func (s Stage) Before(other Stage) bool {
	return s.Ord() < other.Ord()
}

// Prev returns the stage that must be completed before s can run.
func (s Stage) Prev() Stage {
	switch s {
	case StageRequirementsComplete:
		return StageDraft
	case StageArchitectureComplete:
		return StageRequirementsComplete
	case StageUXDesignComplete:
		return StageArchitectureComplete
	case StageProjectGenerated:
		return StageUXDesignComplete
	default:
		return StageDraft
	}
}
