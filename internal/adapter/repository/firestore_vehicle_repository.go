package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"roamly/internal/domain/entity"
	"roamly/internal/domain/repository"
	"roamly/pkg/errors"
	"roamly/pkg/logger"
)

type firestoreVehicleRepository struct {
	client *firestore.Client
}

func NewFirestoreVehicleRepository(client *firestore.Client) repository.VehicleRepository {
	return &firestoreVehicleRepository{
		client: client,
	}
}

func (r *firestoreVehicleRepository) Create(ctx context.Context, vehicle *entity.Vehicle) error {
	if vehicle.ID == "" {
		vehicle.ID = uuid.New().String()
	}
	now := time.Now()
	vehicle.CreatedAt = now
	vehicle.UpdatedAt = now
	if vehicle.Status == "" {
		vehicle.Status = "listed"
	}

	_, err := r.client.Collection("vehicles").Doc(vehicle.ID).Set(ctx, vehicle)
	if err != nil {
		return errors.Internal("Failed to create vehicle", err)
	}
	return nil
}

func (r *firestoreVehicleRepository) GetByID(ctx context.Context, id string) (*entity.Vehicle, error) {
	doc, err := r.client.Collection("vehicles").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Vehicle", err)
		}
		return nil, errors.Internal("Failed to get vehicle", err)
	}

	var vehicle entity.Vehicle
	if err := doc.DataTo(&vehicle); err != nil {
		return nil, errors.Internal("Failed to parse vehicle data", err)
	}

	return &vehicle, nil
}

func (r *firestoreVehicleRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Vehicle, int64, error) {
	query := r.client.Collection("vehicles").
		Where("ownerId", "==", ownerID).
		OrderBy("createdAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while listing vehicles for owner %s: %v", ownerID, err)
		return nil, 0, errors.Internal("Failed to list vehicles", err)
	}

	total := int64(len(allDocs))

	start := offset
	if start > len(allDocs) {
		start = len(allDocs)
	}
	end := len(allDocs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var vehicles []*entity.Vehicle
	for _, doc := range allDocs[start:end] {
		var vehicle entity.Vehicle
		if err := doc.DataTo(&vehicle); err != nil {
			logger.Warn("Skipping malformed vehicle %s: %v", doc.Ref.ID, err)
			continue
		}
		vehicles = append(vehicles, &vehicle)
	}

	return vehicles, total, nil
}
