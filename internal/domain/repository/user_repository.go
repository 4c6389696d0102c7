package repository

import (
	"context"
	"time"

	"roamly/internal/domain/entity"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error

	// UpdatePresence writes through the presence mirror fields so profile
	// reads work without a live connection.
	UpdatePresence(ctx context.Context, userID string, online bool, lastSeen time.Time) error
}
