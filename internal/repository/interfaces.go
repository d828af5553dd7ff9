package repository

import (
	"context"
	"time"

	"vehiclefinder/internal/domain/entities"
)

// PositionSource supplies the positions an index is built from, in the order
// they should be inserted.
type PositionSource interface {
	Load(ctx context.Context) ([]*entities.VehiclePosition, error)
	// Describe names the source for logs, e.g. "file:VehiclePositions.dat".
	Describe() string
}

// PositionRepository is the canonical flat collection of loaded positions.
type PositionRepository interface {
	Replace(ctx context.Context, positions []*entities.VehiclePosition) error
	GetByID(ctx context.Context, id int) (*entities.VehiclePosition, error)
}

// ResultCache remembers which position answered a query against one index
// generation. The answer is stored as the position's load-order index in
// that generation, since vehicle ids may repeat within a load.
type ResultCache interface {
	Get(ctx context.Context, generation uint64, lat, lon float64) (ordinal int, ok bool, err error)
	Set(ctx context.Context, generation uint64, lat, lon float64, ordinal int, ttl time.Duration) error
}
