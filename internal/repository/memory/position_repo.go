package memory

import (
	"context"
	"errors"
	"sync"

	"vehiclefinder/internal/domain/entities"
)

var ErrPositionNotFound = errors.New("vehicle position not found")

// PositionRepository is the id lookup over the loaded positions. When a
// source repeats a vehicle id, the lookup resolves to the last record; the
// index snapshot keeps every record in load order.
type PositionRepository struct {
	mu   sync.RWMutex
	byID map[int]*entities.VehiclePosition
}

func NewPositionRepository() *PositionRepository {
	return &PositionRepository{
		byID: make(map[int]*entities.VehiclePosition),
	}
}

// Replace swaps the whole collection.
func (r *PositionRepository) Replace(ctx context.Context, positions []*entities.VehiclePosition) error {
	byID := make(map[int]*entities.VehiclePosition, len(positions))
	for _, p := range positions {
		byID[p.VehicleID] = p
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID = byID
	return nil
}

func (r *PositionRepository) GetByID(ctx context.Context, id int) (*entities.VehiclePosition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	position, exists := r.byID[id]
	if !exists {
		return nil, ErrPositionNotFound
	}
	return position, nil
}
