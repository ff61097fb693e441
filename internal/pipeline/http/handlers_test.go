package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftforge/forge-backend/internal/locks"
	"github.com/craftforge/forge-backend/internal/pipeline/domain"
	"github.com/craftforge/forge-backend/internal/pipeline/repository"
	"github.com/craftforge/forge-backend/internal/pipeline/service"
)

type memRepo struct {
	seq      int64
	projects map[int64]*domain.Project
}

func newMemRepo() *memRepo {
	return &memRepo{projects: map[int64]*domain.Project{}}
}

func (m *memRepo) Create(_ context.Context, name, description, requirements, aiProvider string) (*domain.Project, error) {
	if aiProvider == "" {
		aiProvider = "anthropic"
	}
	m.seq++
	p := &domain.Project{
		ID: m.seq, Name: name, Description: description, Requirements: requirements,
		Provider: aiProvider, Stage: domain.StageDraft,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.projects[p.ID] = p
	cp := *p
	return &cp, nil
}

func (m *memRepo) Get(_ context.Context, id int64) (*domain.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, includeArchived bool, limit, offset int) ([]domain.Project, int, error) {
	var out []domain.Project
	for _, p := range m.projects {
		if p.Archived && !includeArchived {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *memRepo) UpdateFields(_ context.Context, id int64, patch repository.UpdatePatch) (*domain.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Requirements != nil {
		p.Requirements = *patch.Requirements
	}
	if patch.Provider != nil {
		p.Provider = *patch.Provider
	}
	if patch.ResetPipeline {
		p.Stage = domain.StageDraft
		p.RefinedRequirements = ""
		p.UserStories = nil
		p.SystemArchitecture = ""
		p.UXDesign = ""
		p.TechStack = nil
		p.GeneratedProjectRef = ""
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) SetArchived(_ context.Context, id int64, archived bool) (*domain.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	p.Archived = archived
	cp := *p
	return &cp, nil
}

func (m *memRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := m.projects[id]; !ok {
		return false, nil
	}
	delete(m.projects, id)
	return true, nil
}

type stubRunner struct {
	result *domain.StageResult
}

func (s *stubRunner) AdvanceStage(_ context.Context, _ int64, target domain.Stage) (*domain.StageResult, error) {
	if s.result != nil {
		return s.result, nil
	}
	return &domain.StageResult{Success: true, NewStage: target, Artifacts: map[string]any{"refined_requirements": "x"}}, nil
}

type stubProviders struct{}

func (stubProviders) ListActive(context.Context) ([]domain.ProviderConfig, error) {
	return []domain.ProviderConfig{{Name: "anthropic", DisplayName: "Anthropic Claude", IsActive: true}}, nil
}

func setupRouter(t *testing.T, runner service.StageRunner) (*gin.Engine, *memRepo, *locks.ProjectLocker) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	locker := locks.NewProjectLocker(client, time.Minute)

	repo := newMemRepo()
	projects := service.NewProjectService(repo)
	pipeline := service.NewPipelineService(runner, locker, stubProviders{})

	r := gin.New()
	New(projects, pipeline).Register(r.Group("/api/v1"))
	return r, repo, locker
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestCreateProject(t *testing.T) {
	r, _, _ := setupRouter(t, &stubRunner{})

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/projects",
		`{"name":"Fitness Tracker","requirements":"track workouts"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, body["ok"])

	project := body["project"].(map[string]any)
	assert.Equal(t, "draft", project["stage"])
	assert.Equal(t, "anthropic", project["ai_provider"])
}

func TestCreateProject_MissingFields(t *testing.T) {
	r, _, _ := setupRouter(t, &stubRunner{})

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/projects", `{"name":"only a name"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["ok"])
}

func TestGetProject_NotFound(t *testing.T) {
	r, _, _ := setupRouter(t, &stubRunner{})

	w, _ := doJSON(t, r, http.MethodGet, "/api/v1/projects/99", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/projects/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProject_RequirementsEditResets(t *testing.T) {
	r, repo, _ := setupRouter(t, &stubRunner{})
	seed, err := repo.Create(context.Background(), "App", "", "old reqs", "")
	require.NoError(t, err)
	repo.projects[seed.ID].Stage = domain.StageRequirementsComplete
	repo.projects[seed.ID].RefinedRequirements = "refined"

	w, body := doJSON(t, r, http.MethodPatch, "/api/v1/projects/1", `{"requirements":"new reqs"}`)
	require.Equal(t, http.StatusOK, w.Code)

	project := body["project"].(map[string]any)
	assert.Equal(t, "draft", project["stage"])
	assert.Nil(t, project["refined_requirements"])
}

func TestArchiveUnarchive(t *testing.T) {
	r, repo, _ := setupRouter(t, &stubRunner{})
	_, err := repo.Create(context.Background(), "App", "", "reqs", "")
	require.NoError(t, err)

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/projects/1/archive", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["project"].(map[string]any)["archived"])

	w, body = doJSON(t, r, http.MethodPost, "/api/v1/projects/1/unarchive", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["project"].(map[string]any)["archived"])
}

func TestDeleteProject(t *testing.T) {
	r, repo, _ := setupRouter(t, &stubRunner{})
	_, err := repo.Create(context.Background(), "App", "", "reqs", "")
	require.NoError(t, err)

	w, _ := doJSON(t, r, http.MethodDelete, "/api/v1/projects/1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, r, http.MethodDelete, "/api/v1/projects/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdvanceEndpoints_Success(t *testing.T) {
	r, repo, _ := setupRouter(t, &stubRunner{})
	_, err := repo.Create(context.Background(), "App", "", "reqs", "")
	require.NoError(t, err)

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/projects/1/analyze-requirements", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, string(domain.StageRequirementsComplete), body["stage"])
	assert.Contains(t, body["artifacts"], "refined_requirements")
}

func TestAdvanceEndpoints_FailureStatuses(t *testing.T) {
	cases := []struct {
		kind   domain.FailureKind
		status int
	}{
		{domain.KindPreconditionNotMet, http.StatusBadRequest},
		{domain.KindUnsupportedProvider, http.StatusBadRequest},
		{domain.KindProviderUnavailable, http.StatusServiceUnavailable},
		{domain.KindEmptyResponse, http.StatusBadGateway},
		{domain.KindMalformedResponse, http.StatusBadGateway},
		{domain.KindTransientProvider, http.StatusBadGateway},
		{domain.KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			runner := &stubRunner{result: &domain.StageResult{Success: false, Kind: tc.kind, Message: "boom"}}
			r, repo, _ := setupRouter(t, runner)
			_, err := repo.Create(context.Background(), "App", "", "reqs", "")
			require.NoError(t, err)

			w, body := doJSON(t, r, http.MethodPost, "/api/v1/projects/1/generate-system-architecture", "")
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, string(tc.kind), body["kind"])
		})
	}
}

func TestAdvance_ConflictWhileLocked(t *testing.T) {
	r, repo, locker := setupRouter(t, &stubRunner{})
	_, err := repo.Create(context.Background(), "App", "", "reqs", "")
	require.NoError(t, err)

	lock, err := locker.Acquire(context.Background(), 1)
	require.NoError(t, err)
	defer lock.Release(context.Background())

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/projects/1/generate-project", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListProviders(t *testing.T) {
	r, _, _ := setupRouter(t, &stubRunner{})

	w, body := doJSON(t, r, http.MethodGet, "/api/v1/ai-providers", "")
	require.Equal(t, http.StatusOK, w.Code)

	providers := body["providers"].([]any)
	require.Len(t, providers, 1)
	first := providers[0].(map[string]any)
	assert.Equal(t, "anthropic", first["name"])
	_, hasKey := first["api_key"]
	assert.False(t, hasKey, "api keys must never be serialized")
}
