package profile_repo

import (
	"context"

	"skoolstore/internal/domain"
)

type ProfileRepository interface {
	GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error)
}
