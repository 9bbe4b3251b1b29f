package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"skoolstore/internal/domain"
)

type fakeProfileRepo struct {
	profiles map[string]*domain.Profile
	err      error
}

func (f *fakeProfileRepo) GetProfileByUserID(_ context.Context, userID string) (*domain.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	profile, ok := f.profiles[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return profile, nil
}

func TestUserIDFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/me/orders", nil)
	assert.Empty(t, UserIDFromRequest(r))

	r.Header.Set(UserIDHeader, "u1")
	assert.Equal(t, "u1", UserIDFromRequest(r))
}

func TestAuthorize_Anonymous(t *testing.T) {
	gate := NewGate(&fakeProfileRepo{}, zap.NewNop())

	access := gate.Authorize(context.Background(), "")
	assert.Equal(t, Access{}, access)
}

func TestAuthorize_AuthenticatedWithoutProfile(t *testing.T) {
	gate := NewGate(&fakeProfileRepo{profiles: map[string]*domain.Profile{}}, zap.NewNop())

	access := gate.Authorize(context.Background(), "u1")
	assert.True(t, access.IsAuthenticated)
	assert.False(t, access.IsAuthorized)
	assert.Equal(t, "u1", access.UserID)
}

func TestAuthorize_AdminFlagGrantsAuthorization(t *testing.T) {
	repo := &fakeProfileRepo{profiles: map[string]*domain.Profile{
		"admin": {UserID: "admin", Email: "ops@skool.store", IsAdmin: true},
		"u1":    {UserID: "u1", Email: "shopper@example.com"},
	}}
	gate := NewGate(repo, zap.NewNop())

	assert.True(t, gate.Authorize(context.Background(), "admin").IsAuthorized)
	assert.False(t, gate.Authorize(context.Background(), "u1").IsAuthorized)
}

func TestAuthorize_LookupFailureNeverEscalates(t *testing.T) {
	gate := NewGate(&fakeProfileRepo{err: errors.New("connection reset")}, zap.NewNop())

	access := gate.Authorize(context.Background(), "admin")
	assert.True(t, access.IsAuthenticated)
	assert.False(t, access.IsAuthorized, "a failed lookup must not grant admin rights")
}
