package domain

// TaskFailure records one failed fan-out sub-task. Sub-task failures degrade
// the result but do not fail the stage transition.
type TaskFailure struct {
	Task  string `json:"task"`
	Error string `json:"error"`
}

// StageResult is the discriminated outcome of a stage transition.
type StageResult struct {
	Success bool `json:"success"`

	// Set on success.
	NewStage     Stage          `json:"new_stage,omitempty"`
	Artifacts    map[string]any `json:"artifacts,omitempty"`
	TaskFailures []TaskFailure  `json:"task_failures,omitempty"`

	// Set on failure.
	Kind    FailureKind `json:"kind,omitempty"`
	Message string      `json:"error,omitempty"`
}

// FailureOf builds a failure result from an error using the taxonomy mapping.
func FailureOf(err error) *StageResult {
	return &StageResult{
		Success: false,
		Kind:    FailureKindOf(err),
		Message: err.Error(),
	}
}
