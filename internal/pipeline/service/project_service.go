// Package service holds the application services between HTTP handlers and
// the repositories/engine.
package service

import (
	"context"

	"github.com/craftforge/forge-backend/internal/logging"
	"github.com/craftforge/forge-backend/internal/pipeline/domain"
	"github.com/craftforge/forge-backend/internal/pipeline/repository"
)

// ProjectRepo is the persistence surface the project service needs.
type ProjectRepo interface {
	Create(ctx context.Context, name, description, requirements, aiProvider string) (*domain.Project, error)
	Get(ctx context.Context, id int64) (*domain.Project, error)
	List(ctx context.Context, includeArchived bool, limit, offset int) ([]domain.Project, int, error)
	UpdateFields(ctx context.Context, id int64, patch repository.UpdatePatch) (*domain.Project, error)
	SetArchived(ctx context.Context, id int64, archived bool) (*domain.Project, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// ProjectService implements project CRUD on top of the repository, including
// the pipeline reset that a requirements edit triggers.
type ProjectService struct {
	repo ProjectRepo
}

// NewProjectService creates a project service.
func NewProjectService(repo ProjectRepo) *ProjectService {
	return &ProjectService{repo: repo}
}

// CreateInput carries the fields of a new project.
type CreateInput struct {
	Name         string
	Description  string
	Requirements string
	Provider     string
}

// Create starts a new project in the draft stage.
func (s *ProjectService) Create(ctx context.Context, in CreateInput) (*domain.Project, error) {
	return s.repo.Create(ctx, in.Name, in.Description, in.Requirements, in.Provider)
}

// Get returns one project.
func (s *ProjectService) Get(ctx context.Context, id int64) (*domain.Project, error) {
	return s.repo.Get(ctx, id)
}

// Page is one page of the project listing.
type Page struct {
	Projects []domain.Project `json:"projects"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// List returns a page of projects, excluding archived ones unless asked.
func (s *ProjectService) List(ctx context.Context, includeArchived bool, limit, offset int) (*Page, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	projects, total, err := s.repo.List(ctx, includeArchived, limit, offset)
	if err != nil {
		return nil, err
	}
	return &Page{Projects: projects, Total: total, Limit: limit, Offset: offset}, nil
}

// Update edits project fields. Changing the requirements text puts the project
// back in draft and clears every artifact: everything downstream was derived
// from the old text. The reset rides the same statement as the edit, so a
// failed update leaves the old text and artifacts intact and a retry starts
// over from the comparison.
func (s *ProjectService) Update(ctx context.Context, id int64, patch repository.UpdatePatch) (*domain.Project, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.ResetPipeline = patch.Requirements != nil && *patch.Requirements != current.Requirements
	if patch.ResetPipeline {
		logging.New(ctx).Infof("update_project", "project=%d requirements changed, resetting pipeline", id)
	}

	return s.repo.UpdateFields(ctx, id, patch)
}

// SetArchived archives or unarchives a project.
func (s *ProjectService) SetArchived(ctx context.Context, id int64, archived bool) (*domain.Project, error) {
	return s.repo.SetArchived(ctx, id, archived)
}

// Delete removes a project.
func (s *ProjectService) Delete(ctx context.Context, id int64) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrProjectNotFound
	}
	return nil
}
