package bootstrap

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/craftforge/forge-backend/internal/generated"
	"github.com/craftforge/forge-backend/internal/locks"
	"github.com/craftforge/forge-backend/internal/middleware"
	"github.com/craftforge/forge-backend/internal/pipeline/engine"
	pipelinehttp "github.com/craftforge/forge-backend/internal/pipeline/http"
	"github.com/craftforge/forge-backend/internal/pipeline/repository"
	"github.com/craftforge/forge-backend/internal/pipeline/service"
	"github.com/craftforge/forge-backend/internal/provider"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	SQL         *sql.DB
	Pool        *pgxpool.Pool
	Redis       *redis.Client

	ProjectsDir          string
	ValidationFailClosed bool
	LockTTL              time.Duration
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	DB        string    `json:"db,omitempty"`
}

// BuildRouter wires the repositories, engine and services into a gin engine.
func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RequestID())

	health := func(c *gin.Context) {
		dbStatus := "disabled"
		if dep.Pool != nil {
			pingCtx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()
			if err := dep.Pool.Ping(pingCtx); err != nil {
				dbStatus = "down"
			} else {
				dbStatus = "up"
			}
		}
		c.JSON(http.StatusOK, healthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Service:   dep.ServiceName,
			Version:   dep.Version,
			DB:        dbStatus,
		})
	}
	r.GET("/health", health)
	r.GET("/healthz", health)

	projectRepo := repository.NewProjectRepository(dep.SQL)
	providerRepo := repository.NewProviderRepository(dep.SQL)

	eng := engine.New(
		projectRepo,
		providerRepo,
		provider.DefaultRegistry(),
		generated.NewSinkFactory(dep.ProjectsDir),
		engine.Options{ValidationFailClosed: dep.ValidationFailClosed},
	)

	locker := locks.NewProjectLocker(dep.Redis, dep.LockTTL)
	projectSvc := service.NewProjectService(projectRepo)
	pipelineSvc := service.NewPipelineService(eng, locker, providerRepo)

	api := r.Group("/api/v1")
	pipelinehttp.New(projectSvc, pipelineSvc).Register(api)

	return r
}
