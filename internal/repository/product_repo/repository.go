package product_repo

import (
	"context"

	"skoolstore/internal/domain"
)

type ProductRepository interface {
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	GetAllProducts(ctx context.Context) ([]*domain.Product, error)
}
