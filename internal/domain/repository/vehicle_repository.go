package repository

import (
	"context"

	"roamly/internal/domain/entity"
)

// VehicleRepository is the messaging layer's view of the vehicle
// marketplace: enough to validate a topic ref and render a listing
// preview inside a conversation.
type VehicleRepository interface {
	Create(ctx context.Context, vehicle *entity.Vehicle) error
	GetByID(ctx context.Context, id string) (*entity.Vehicle, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Vehicle, int64, error)
}
