package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"skoolstore/internal/domain"
	"skoolstore/internal/repository/profile_repo"
)

type pgProfileRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewProfileRepository(db *sql.DB, l *zap.Logger) profile_repo.ProfileRepository {
	return &pgProfileRepository{db: db, logger: l}
}

func (r *pgProfileRepository) GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	profile := &domain.Profile{}
	var fullName sql.NullString
	query := `SELECT user_id, email, full_name, is_admin, created_at FROM profiles WHERE user_id = $1`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&profile.UserID, &profile.Email, &fullName, &profile.IsAdmin, &profile.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		r.logger.Error("Failed to get profile", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get profile for user %s: %w", userID, err)
	}
	if fullName.Valid {
		profile.FullName = fullName.String
	}
	return profile, nil
}
