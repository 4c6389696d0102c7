package usecase

import (
	"context"
	"time"

	"roamly/internal/domain/entity"
	"roamly/internal/domain/repository"
	"roamly/pkg/errors"
)

// ProfileUseCase covers the small slice of the user platform the
// messaging layer leans on: own-profile read/update and the public
// profile view with presence.
type ProfileUseCase struct {
	userRepo repository.UserRepository
}

func NewProfileUseCase(userRepo repository.UserRepository) *ProfileUseCase {
	return &ProfileUseCase{
		userRepo: userRepo,
	}
}

type UpdateProfileInput struct {
	Username string
	FullName string
	Bio      string
	HomeBase string
	Avatar   string
}

func (uc *ProfileUseCase) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (uc *ProfileUseCase) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Username != "" {
		user.Username = input.Username
	}
	if input.FullName != "" {
		user.FullName = input.FullName
	}
	if input.Bio != "" {
		user.Bio = input.Bio
	}
	if input.HomeBase != "" {
		user.HomeBase = input.HomeBase
	}
	if input.Avatar != "" {
		user.AvatarURL = input.Avatar
	}
	user.UpdatedAt = time.Now()

	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, errors.Internal("Failed to update profile", err)
	}

	return user, nil
}
