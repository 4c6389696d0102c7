package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"roamly/internal/domain/entity"
	"roamly/internal/domain/repository"
	"roamly/pkg/errors"
)

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) Create(ctx context.Context, user *entity.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.client.Collection("users").Doc(user.ID).Set(ctx, user)
	if err != nil {
		return errors.Internal("Failed to create user", err)
	}
	return nil
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	doc, err := r.client.Collection("users").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.Internal("Failed to get user", err)
	}

	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}

	return &user, nil
}

func (r *firestoreUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	iter := r.client.Collection("users").Where("email", "==", email).Limit(1).Documents(ctx)
	doc, err := iter.Next()
	if err != nil {
		return nil, errors.NotFound("User", err)
	}

	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}

	return &user, nil
}

func (r *firestoreUserRepository) Update(ctx context.Context, user *entity.User) error {
	// Merge only the fields a profile edit may touch, so a stale struct
	// never clobbers the presence mirror written by the realtime layer.
	updateData := map[string]interface{}{
		"updatedAt": time.Now(),
	}
	if user.Username != "" {
		updateData["username"] = user.Username
	}
	if user.FullName != "" {
		updateData["fullName"] = user.FullName
	}
	if user.Bio != "" {
		updateData["bio"] = user.Bio
	}
	if user.HomeBase != "" {
		updateData["homeBase"] = user.HomeBase
	}
	if user.AvatarURL != "" {
		updateData["avatarURL"] = user.AvatarURL
	}

	_, err := r.client.Collection("users").Doc(user.ID).Set(ctx, updateData, firestore.MergeAll)
	if err != nil {
		return errors.Internal("Failed to update user", err)
	}
	return nil
}

func (r *firestoreUserRepository) UpdatePresence(ctx context.Context, userID string, online bool, lastSeen time.Time) error {
	onlineStatus := "offline"
	if online {
		onlineStatus = "online"
	}

	_, err := r.client.Collection("users").Doc(userID).Set(ctx, map[string]interface{}{
		"onlineStatus": onlineStatus,
		"lastSeen":     lastSeen,
	}, firestore.MergeAll)
	if err != nil {
		return errors.Internal("Failed to update presence", err)
	}
	return nil
}
