package services

import (
	"context"
	"fmt"

	"vehiclefinder/internal/config"
	"vehiclefinder/internal/repository"
	"vehiclefinder/internal/repository/datfile"
	"vehiclefinder/internal/repository/postgres"
)

// OpenSource returns the position source selected by cfg. The returned close
// function releases any connection the source holds and is never nil.
func OpenSource(ctx context.Context, cfg config.SourceConfig) (repository.PositionSource, func() error, error) {
	switch cfg.Kind {
	case config.SourceFile:
		return datfile.NewSource(cfg.Path), func() error { return nil }, nil
	case config.SourcePostgres:
		repo, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}
