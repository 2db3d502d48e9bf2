// Package redisstore provides Redis persistence for flow versions.
package redisstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/flowops/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "flowops:"

// Persistence implements persistence.Persistence on top of a Redis client.
type Persistence struct {
	client          *redis.Client
	logger          *slog.Logger
	flowVersionRepo *FlowVersionRepository
}

// NewPersistence connects to the redis:// URL and checks the connection.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	options, err := redis.ParseURL(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(options)

	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return New(client, logger, defaultPrefix), nil
}

// New wraps an existing client; keys are namespaced with prefix.
func New(client *redis.Client, logger *slog.Logger, prefix string) *Persistence {
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Persistence{
		client:          client,
		logger:          logger,
		flowVersionRepo: NewFlowVersionRepository(client, logger, prefix),
	}
}

func (p *Persistence) Close(_ context.Context) error {
	err := p.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	return nil
}

func (p *Persistence) FlowVersions() persistence.FlowVersionRepository {
	return p.flowVersionRepo
}
