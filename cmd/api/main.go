package main

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/craftforge/forge-backend/config"
	"github.com/craftforge/forge-backend/internal/bootstrap"
	"github.com/craftforge/forge-backend/internal/db"
	"github.com/craftforge/forge-backend/internal/maintenance"
	"github.com/craftforge/forge-backend/internal/pipeline/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	pool, err := db.Open(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer pool.Close()

	if err := pool.InitSchema(ctx); err != nil {
		log.Fatalf("init schema: %v", err)
	}

	sqlDB, err := db.OpenSQL(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("open sql db: %v", err)
	}
	defer sqlDB.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	sweeper := maintenance.NewSweeper(
		repository.NewProjectRepository(sqlDB),
		time.Duration(cfg.Pipeline.DraftTTLDays)*24*time.Hour,
	)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("start sweeper: %v", err)
	}
	defer sweeper.Stop()

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:          "forge-backend",
		Version:              cfg.App.Version,
		SQL:                  sqlDB,
		Pool:                 pool.Pool,
		Redis:                rdb,
		ProjectsDir:          cfg.Pipeline.ProjectsDir,
		ValidationFailClosed: cfg.Pipeline.ValidationFailClosed,
		LockTTL:              time.Duration(cfg.Pipeline.LockTTLSeconds) * time.Second,
	})

	log.Printf("listening on :%s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
