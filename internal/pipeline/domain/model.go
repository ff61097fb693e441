package domain

import "time"

// Project is a content-generation project moving through the pipeline stages.
// It is intentionally storage-agnostic and used across repository, engine and
// HTTP layers.
type Project struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Requirements string `json:"requirements"`

	// Provider is the registry key of the AI provider this project uses.
	Provider string `json:"ai_provider"`

	Stage    Stage `json:"stage"`
	Archived bool  `json:"archived"`

	// Artifact slots. Each is empty until its owning stage has run, and is
	// cleared again when an upstream artifact is overwritten.
	RefinedRequirements string             `json:"refined_requirements,omitempty"`
	UserStories         []StoryRecord      `json:"user_stories,omitempty"`
	SystemArchitecture  string             `json:"system_architecture,omitempty"`
	UXDesign            string             `json:"ux_design,omitempty"`
	TechStack           *TechStackDecision `json:"tech_stack,omitempty"`
	GeneratedProjectRef string             `json:"generated_project_ref,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProviderConfig is one row of provider configuration, resolved by name.
// The pipeline treats it as read-only input.
type ProviderConfig struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	APIKey      string    `json:"-"`
	ModelName   string    `json:"model_name"`
	MaxTokens   int       `json:"max_tokens"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StoryPriority is the priority bucket of a user story.
type StoryPriority string

const (
	PriorityHigh   StoryPriority = "High"
	PriorityMedium StoryPriority = "Medium"
	PriorityLow    StoryPriority = "Low"
)

// StoryRecord is one user story produced by the requirements stage.
// A new analysis replaces the whole sequence, it never merges.
type StoryRecord struct {
	ID                 string        `json:"id"`
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	AcceptanceCriteria []string      `json:"acceptance_criteria"`
	Priority           StoryPriority `json:"priority"`
	BusinessValue      string        `json:"business_value,omitempty"`
	StoryPoints        int           `json:"story_points"`
}

// TechStackDecision is the structured tech-stack choice produced at the start
// of full-stack generation. It drives the fan-out task list.
type TechStackDecision struct {
	ProjectType string        `json:"project_type"`
	Reasoning   string        `json:"tech_stack_reasoning,omitempty"`
	Frontend    FrontendStack `json:"frontend"`
	Backend     BackendStack  `json:"backend"`
	Database    DatabaseStack `json:"database"`
	Deployment  Deployment    `json:"deployment"`
}

type FrontendStack struct {
	Framework string `json:"framework"`
	Language  string `json:"language"`
	Styling   string `json:"styling"`
}

type BackendStack struct {
	Language  string `json:"language"`
	Framework string `json:"framework"`
}

type DatabaseStack struct {
	Type string `json:"type"`
}

type Deployment struct {
	Platform         string `json:"platform"`
	Containerization string `json:"containerization"`
}
