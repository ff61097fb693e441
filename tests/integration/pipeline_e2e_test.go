package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftforge/forge-backend/internal/generated"
	"github.com/craftforge/forge-backend/internal/locks"
	"github.com/craftforge/forge-backend/internal/pipeline/domain"
	"github.com/craftforge/forge-backend/internal/pipeline/engine"
	pipelinehttp "github.com/craftforge/forge-backend/internal/pipeline/http"
	"github.com/craftforge/forge-backend/internal/pipeline/repository"
	"github.com/craftforge/forge-backend/internal/pipeline/service"
	"github.com/craftforge/forge-backend/internal/provider"
)

// memStore is an in-memory stand-in for the postgres repository, implementing
// both the service's repo surface and the engine's artifact store.
type memStore struct {
	mu       sync.Mutex
	seq      int64
	projects map[int64]*domain.Project
}

func newMemStore() *memStore {
	return &memStore{projects: map[int64]*domain.Project{}}
}

func (m *memStore) Create(_ context.Context, name, description, requirements, aiProvider string) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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

func (m *memStore) Get(_ context.Context, id int64) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) Read(ctx context.Context, id int64) (*domain.Project, error) {
	return m.Get(ctx, id)
}

func (m *memStore) List(_ context.Context, includeArchived bool, limit, offset int) ([]domain.Project, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Project
	for _, p := range m.projects {
		if p.Archived && !includeArchived {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *memStore) UpdateFields(_ context.Context, id int64, patch repository.UpdatePatch) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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

func (m *memStore) SetArchived(_ context.Context, id int64, archived bool) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	p.Archived = archived
	cp := *p
	return &cp, nil
}

func (m *memStore) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return false, nil
	}
	delete(m.projects, id)
	return true, nil
}

func (m *memStore) Write(_ context.Context, id int64, u *engine.ArtifactUpdate) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	if u.Stage != nil {
		p.Stage = *u.Stage
	}
	if u.RefinedRequirements != nil {
		p.RefinedRequirements = *u.RefinedRequirements
	}
	if u.UserStories != nil {
		p.UserStories = *u.UserStories
	}
	if u.SystemArchitecture != nil {
		p.SystemArchitecture = *u.SystemArchitecture
	}
	if u.UXDesign != nil {
		p.UXDesign = *u.UXDesign
	}
	if u.TechStack != nil {
		p.TechStack = *u.TechStack
	}
	if u.GeneratedProjectRef != nil {
		p.GeneratedProjectRef = *u.GeneratedProjectRef
	}
	cp := *p
	return &cp, nil
}

// memConfigs serves one active scripted provider.
type memConfigs struct{}

func (memConfigs) Lookup(_ context.Context, name string) (*domain.ProviderConfig, error) {
	if name != "scripted" {
		return nil, domain.ErrProviderNotFound
	}
	return &domain.ProviderConfig{Name: "scripted", APIKey: "k", ModelName: "scripted-1", MaxTokens: 4000, IsActive: true}, nil
}

func (memConfigs) ListActive(context.Context) ([]domain.ProviderConfig, error) {
	return []domain.ProviderConfig{{Name: "scripted", DisplayName: "Scripted", IsActive: true}}, nil
}

// scriptedGenerator answers each prompt by substring match.
type scriptedGenerator struct{}

const storiesJSON = `[{"id":"US-001","title":"Track workouts","description":"As a user...","acceptance_criteria":["logs a workout"],"priority":"High","story_points":3}]`

const stackJSON = `{"project_type":"web_app","frontend":{"framework":"React.js","language":"JavaScript","styling":"CSS"},"backend":{"language":"Node.js","framework":"Express.js"},"database":{"type":"PostgreSQL"},"deployment":{"platform":"Docker","containerization":"Docker"}}`

func (scriptedGenerator) Generate(_ context.Context, prompt, _ string, _ int) (string, error) {
	for _, r := range []struct{ match, text string }{
		{"enough information to begin analysis", `{"sufficient": true, "reason": "ok", "guidance": ""}`},
		{"project_type: what type of project", `{"project_type":"web app","domain":"fitness","complexity":"simple"}`},
		{"Generate refined requirements", "Refined requirements document."},
		{"Generate user stories", "Sure: " + storiesJSON},
		{"determine the optimal tech stack", stackJSON},
		{"folder structure", `["src","config","docs"]`},
		{"README.md", "# Readme"},
	} {
		if strings.Contains(prompt, r.match) {
			return r.text, nil
		}
	}
	return "generated text", nil
}

func setup(t *testing.T) (*gin.Engine, *memStore, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemStore()
	outDir := t.TempDir()

	reg := provider.NewRegistry()
	reg.Register("scripted", func(string) provider.TextGenerator { return scriptedGenerator{} })

	eng := engine.New(store, memConfigs{}, reg, generated.NewSinkFactory(outDir), engine.Options{})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	locker := locks.NewProjectLocker(client, time.Minute)

	projectSvc := service.NewProjectService(store)
	pipelineSvc := service.NewPipelineService(eng, locker, memConfigs{})

	r := gin.New()
	pipelinehttp.New(projectSvc, pipelineSvc).Register(r.Group("/api/v1"))
	return r, store, outDir
}

func do(t *testing.T, r *gin.Engine, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func TestPipelineEndToEnd(t *testing.T) {
	r, store, outDir := setup(t)

	code, body := do(t, r, http.MethodPost, "/api/v1/projects",
		`{"name":"Fitness Tracker","requirements":"An app to track my workouts","ai_provider":"scripted"}`)
	require.Equal(t, http.StatusCreated, code, body)

	for _, step := range []struct {
		path  string
		stage domain.Stage
	}{
		{"/api/v1/projects/1/analyze-requirements", domain.StageRequirementsComplete},
		{"/api/v1/projects/1/generate-system-architecture", domain.StageArchitectureComplete},
		{"/api/v1/projects/1/generate-ux-design", domain.StageUXDesignComplete},
		{"/api/v1/projects/1/generate-project", domain.StageProjectGenerated},
	} {
		code, body = do(t, r, http.MethodPost, step.path, "")
		require.Equal(t, http.StatusOK, code, "%s: %v", step.path, body)
		assert.Equal(t, string(step.stage), body["stage"], step.path)
	}

	p, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StageProjectGenerated, p.Stage)
	require.NotNil(t, p.TechStack)
	assert.Equal(t, "React.js", p.TechStack.Frontend.Framework)
	require.Len(t, p.UserStories, 1)

	// Generated output landed on disk under the per-project directory.
	projectDir := filepath.Join(outDir, "1_fitness_tracker")
	assert.Equal(t, projectDir, p.GeneratedProjectRef)
	for _, f := range []string{
		"tech-stack.md", "package.json", "src/server.js",
		"src/App.jsx", "src/index.js", "Dockerfile",
		".gitignore", ".env.example", "docs/README.md",
	} {
		_, err := os.Stat(filepath.Join(projectDir, f))
		assert.NoError(t, err, f)
	}
}

func TestPipelineSkipAheadRejected(t *testing.T) {
	r, _, _ := setup(t)

	code, _ := do(t, r, http.MethodPost, "/api/v1/projects",
		`{"name":"App","requirements":"reqs","ai_provider":"scripted"}`)
	require.Equal(t, http.StatusCreated, code)

	code, body := do(t, r, http.MethodPost, "/api/v1/projects/1/generate-project", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, string(domain.KindPreconditionNotMet), body["kind"])
}

func TestPipelineRequirementsEditInvalidatesDownstream(t *testing.T) {
	r, store, _ := setup(t)

	code, _ := do(t, r, http.MethodPost, "/api/v1/projects",
		`{"name":"App","requirements":"first reqs","ai_provider":"scripted"}`)
	require.Equal(t, http.StatusCreated, code)

	code, _ = do(t, r, http.MethodPost, "/api/v1/projects/1/analyze-requirements", "")
	require.Equal(t, http.StatusOK, code)
	code, _ = do(t, r, http.MethodPost, "/api/v1/projects/1/generate-system-architecture", "")
	require.Equal(t, http.StatusOK, code)

	code, _ = do(t, r, http.MethodPatch, "/api/v1/projects/1", `{"requirements":"different reqs"}`)
	require.Equal(t, http.StatusOK, code)

	p, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StageDraft, p.Stage)
	assert.Empty(t, p.RefinedRequirements)
	assert.Empty(t, p.UserStories)
	assert.Empty(t, p.SystemArchitecture)

	// Architecture cannot run again until requirements are re-analyzed.
	code, body := do(t, r, http.MethodPost, "/api/v1/projects/1/generate-system-architecture", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, string(domain.KindPreconditionNotMet), body["kind"])
}
