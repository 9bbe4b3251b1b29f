package grant_repo

import (
	"context"

	"skoolstore/internal/domain"
)

type GrantRepository interface {
	// CreateGrant inserts one grant row. A duplicate (user, product, order)
	// triple returns domain.ErrGrantAlreadyExists.
	CreateGrant(ctx context.Context, grant *domain.UserProductGrant) error

	GetGrantsByUserID(ctx context.Context, userID string) ([]*domain.UserProductGrant, error)
	GetGrantsByOrderID(ctx context.Context, orderID string) ([]*domain.UserProductGrant, error)
	UserHasProduct(ctx context.Context, userID, productID string) (bool, error)
}
