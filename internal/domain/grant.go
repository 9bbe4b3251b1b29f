package domain

import (
	"errors"
	"time"
)

// ErrGrantAlreadyExists signals that the (user, product, order) triple has
// already been granted. Duplicate settlement deliveries map onto it.
var ErrGrantAlreadyExists = errors.New("product grant already exists")

// UserProductGrant records that a user owns access to a product as the
// result of a completed order. Its existence is the access check.
type UserProductGrant struct {
	ID        string
	UserID    string
	ProductID string
	OrderID   string
	CreatedAt time.Time
}
