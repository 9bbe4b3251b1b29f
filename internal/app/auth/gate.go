package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"skoolstore/internal/repository/profile_repo"
)

// UserIDHeader is set by the fronting gateway after it has validated the
// shopper's session. An empty value means the caller is anonymous.
const UserIDHeader = "X-User-ID"

func UserIDFromRequest(r *http.Request) string {
	return r.Header.Get(UserIDHeader)
}

// Access is the two-valued authorization result: whether the caller has an
// identity at all, and whether that identity carries admin rights. The admin
// flag on the profile row is the single source of truth.
type Access struct {
	UserID          string
	IsAuthenticated bool
	IsAuthorized    bool
}

type Gate struct {
	profileRepo profile_repo.ProfileRepository
	logger      *zap.Logger
}

func NewGate(profileRepo profile_repo.ProfileRepository, l *zap.Logger) *Gate {
	return &Gate{profileRepo: profileRepo, logger: l}
}

func (g *Gate) Authorize(ctx context.Context, userID string) Access {
	if userID == "" {
		return Access{}
	}

	access := Access{UserID: userID, IsAuthenticated: true}

	profile, err := g.profileRepo.GetProfileByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			g.logger.Debug("No profile for authenticated user, treating as non-admin", zap.String("user_id", userID))
			return access
		}
		// A profile lookup failure never escalates privileges.
		g.logger.Error("Failed to resolve profile for authorization", zap.String("user_id", userID), zap.Error(err))
		return access
	}

	access.IsAuthorized = profile.IsAdmin
	return access
}
