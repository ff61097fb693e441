package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/craftforge/forge-backend/internal/pipeline/domain"
	"github.com/craftforge/forge-backend/internal/pipeline/engine"
)

// ProjectRepository provides persistence operations for pipeline projects.
// It implements engine.ArtifactStore.
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, name, description, requirements, refined_requirements, user_stories,
system_architecture, ux_design, tech_stack, generated_project_ref, stage, archived, ai_provider,
created_at, updated_at`

// Create inserts a new project in the draft stage.
func (r *ProjectRepository) Create(ctx context.Context, name, description, requirements, aiProvider string) (*domain.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("name required")
	}
	if strings.TrimSpace(requirements) == "" {
		return nil, fmt.Errorf("requirements required")
	}
	if aiProvider == "" {
		aiProvider = "anthropic"
	}

	q := `
INSERT INTO pipeline_projects (name, description, requirements, stage, archived, ai_provider)
VALUES ($1, $2, $3, $4, false, $5)
RETURNING ` + projectColumns + `;`

	row := r.db.QueryRowContext(ctx, q, name, description, requirements, domain.StageDraft, aiProvider)
	return scanProject(row)
}

// Get returns a project by id.
func (r *ProjectRepository) Get(ctx context.Context, id int64) (*domain.Project, error) {
	q := `SELECT ` + projectColumns + ` FROM pipeline_projects WHERE id = $1;`
	p, err := scanProject(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, err
	}
	return p, nil
}

// List returns projects ordered by creation time, newest first, with the
// total count for pagination.
func (r *ProjectRepository) List(ctx context.Context, includeArchived bool, limit, offset int) ([]domain.Project, int, error) {
	if limit <= 0 {
		limit = 100
	}

	filter := "WHERE NOT archived"
	if includeArchived {
		filter = ""
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT count(*) FROM pipeline_projects "+filter+";").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	q := `SELECT ` + projectColumns + ` FROM pipeline_projects ` + filter + `
ORDER BY created_at DESC LIMIT $1 OFFSET $2;`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]domain.Project, 0, limit)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdatePatch carries the externally editable fields. Nil means unchanged.
// ResetPipeline puts the project back in draft and clears every artifact slot
// in the same statement as the edit, so a changed requirements text and its
// reset commit together or not at all.
type UpdatePatch struct {
	Name          *string
	Description   *string
	Requirements  *string
	Provider      *string
	ResetPipeline bool
}

// UpdateFields applies an external edit. The caller decides whether the edit
// requires a pipeline reset (a changed requirements text does) and sets
// ResetPipeline accordingly.
func (r *ProjectRepository) UpdateFields(ctx context.Context, id int64, patch UpdatePatch) (*domain.Project, error) {
	set := []string{"updated_at = now()"}
	args := []any{id}

	add := func(col string, v *string) {
		if v != nil {
			args = append(args, *v)
			set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	add("name", patch.Name)
	add("description", patch.Description)
	add("requirements", patch.Requirements)
	add("ai_provider", patch.Provider)

	if patch.ResetPipeline {
		args = append(args, string(domain.StageDraft))
		set = append(set, fmt.Sprintf("stage = $%d", len(args)),
			"refined_requirements = NULL",
			"user_stories = NULL",
			"system_architecture = NULL",
			"ux_design = NULL",
			"tech_stack = NULL",
			"generated_project_ref = NULL",
		)
	}

	q := `UPDATE pipeline_projects SET ` + strings.Join(set, ", ") + `
WHERE id = $1
RETURNING ` + projectColumns + `;`

	p, err := scanProject(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, err
	}
	return p, nil
}

// SetArchived archives or unarchives a project.
func (r *ProjectRepository) SetArchived(ctx context.Context, id int64, archived bool) (*domain.Project, error) {
	q := `UPDATE pipeline_projects SET archived = $2, updated_at = now()
WHERE id = $1
RETURNING ` + projectColumns + `;`
	p, err := scanProject(r.db.QueryRowContext(ctx, q, id, archived))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, err
	}
	return p, nil
}

// Delete removes a project. Generated output on disk is not touched here.
func (r *ProjectRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pipeline_projects WHERE id = $1;`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ArchiveStale archives draft projects untouched for longer than maxAge.
func (r *ProjectRepository) ArchiveStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	q := `UPDATE pipeline_projects SET archived = true, updated_at = now()
WHERE stage = $1 AND NOT archived AND updated_at < now() - $2::interval;`
	res, err := r.db.ExecContext(ctx, q, domain.StageDraft, fmt.Sprintf("%d seconds", int(maxAge.Seconds())))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Read implements engine.ArtifactStore.
func (r *ProjectRepository) Read(ctx context.Context, projectID int64) (*domain.Project, error) {
	return r.Get(ctx, projectID)
}

// Write implements engine.ArtifactStore: one UPDATE carrying the stage value
// and every touched artifact slot, so the commit is all-or-nothing.
func (r *ProjectRepository) Write(ctx context.Context, projectID int64, u *engine.ArtifactUpdate) (*domain.Project, error) {
	set := []string{"updated_at = now()"}
	args := []any{projectID}

	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if u.Stage != nil {
		add("stage", *u.Stage)
	}
	if u.RefinedRequirements != nil {
		add("refined_requirements", nullIfEmpty(*u.RefinedRequirements))
	}
	if u.UserStories != nil {
		if len(*u.UserStories) == 0 {
			add("user_stories", nil)
		} else {
			b, err := json.Marshal(*u.UserStories)
			if err != nil {
				return nil, fmt.Errorf("marshal user stories: %w", err)
			}
			add("user_stories", string(b))
		}
	}
	if u.SystemArchitecture != nil {
		add("system_architecture", nullIfEmpty(*u.SystemArchitecture))
	}
	if u.UXDesign != nil {
		add("ux_design", nullIfEmpty(*u.UXDesign))
	}
	if u.TechStack != nil {
		if *u.TechStack == nil {
			add("tech_stack", nil)
		} else {
			b, err := json.Marshal(*u.TechStack)
			if err != nil {
				return nil, fmt.Errorf("marshal tech stack: %w", err)
			}
			add("tech_stack", string(b))
		}
	}
	if u.GeneratedProjectRef != nil {
		add("generated_project_ref", nullIfEmpty(*u.GeneratedProjectRef))
	}

	q := `UPDATE pipeline_projects SET ` + strings.Join(set, ", ") + `
WHERE id = $1
RETURNING ` + projectColumns + `;`

	p, err := scanProject(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, err
	}
	return p, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var (
		p            domain.Project
		description  sql.NullString
		refined      sql.NullString
		storiesJSON  sql.NullString
		architecture sql.NullString
		uxDesign     sql.NullString
		stackJSON    sql.NullString
		generatedRef sql.NullString
		stage        string
	)
	err := row.Scan(
		&p.ID, &p.Name, &description, &p.Requirements, &refined, &storiesJSON,
		&architecture, &uxDesign, &stackJSON, &generatedRef, &stage, &p.Archived,
		&p.Provider, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Description = description.String
	p.RefinedRequirements = refined.String
	p.SystemArchitecture = architecture.String
	p.UXDesign = uxDesign.String
	p.GeneratedProjectRef = generatedRef.String
	p.Stage = domain.Stage(stage)

	if storiesJSON.Valid && storiesJSON.String != "" {
		if err := json.Unmarshal([]byte(storiesJSON.String), &p.UserStories); err != nil {
			return nil, fmt.Errorf("decode user stories for project %d: %w", p.ID, err)
		}
	}
	if stackJSON.Valid && stackJSON.String != "" {
		var stack domain.TechStackDecision
		if err := json.Unmarshal([]byte(stackJSON.String), &stack); err != nil {
			return nil, fmt.Errorf("decode tech stack for project %d: %w", p.ID, err)
		}
		p.TechStack = &stack
	}
	return &p, nil
}
