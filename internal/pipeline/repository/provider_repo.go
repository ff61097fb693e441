package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/craftforge/forge-backend/internal/pipeline/domain"
)

// ProviderRepository reads AI provider configurations. It implements
// engine.ProviderConfigStore.
type ProviderRepository struct {
	db *sql.DB
}

// NewProviderRepository creates a new provider config repository.
func NewProviderRepository(db *sql.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

const providerColumns = `id, name, display_name, api_key, model_name, max_tokens, is_active, created_at, updated_at`

// Lookup returns the configuration row for a provider name, active or not.
// The engine distinguishes an inactive row from a missing one.
func (r *ProviderRepository) Lookup(ctx context.Context, name string) (*domain.ProviderConfig, error) {
	q := `SELECT ` + providerColumns + ` FROM pipeline_ai_providers WHERE name = $1;`

	var cfg domain.ProviderConfig
	var apiKey sql.NullString
	err := r.db.QueryRowContext(ctx, q, name).Scan(
		&cfg.ID, &cfg.Name, &cfg.DisplayName, &apiKey, &cfg.ModelName, &cfg.MaxTokens,
		&cfg.IsActive, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProviderNotFound
		}
		return nil, err
	}
	cfg.APIKey = apiKey.String
	return &cfg, nil
}

// ListActive returns the active provider configurations, for the provider
// listing endpoint. API keys are never serialized in responses.
func (r *ProviderRepository) ListActive(ctx context.Context) ([]domain.ProviderConfig, error) {
	q := `SELECT ` + providerColumns + ` FROM pipeline_ai_providers WHERE is_active ORDER BY name;`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ProviderConfig
	for rows.Next() {
		var cfg domain.ProviderConfig
		var apiKey sql.NullString
		if err := rows.Scan(&cfg.ID, &cfg.Name, &cfg.DisplayName, &apiKey, &cfg.ModelName,
			&cfg.MaxTokens, &cfg.IsActive, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
			return nil, err
		}
		cfg.APIKey = apiKey.String
		out = append(out, cfg)
	}
	return out, rows.Err()
}
