package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"skoolstore/internal/domain"
	"skoolstore/internal/repository/product_repo"
)

type pgProductRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewProductRepository(db *sql.DB, l *zap.Logger) product_repo.ProductRepository {
	return &pgProductRepository{db: db, logger: l}
}

func (r *pgProductRepository) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT id, title, slug, price, category_id, created_at FROM products WHERE id = $1`
	return r.scanProduct(r.db.QueryRowContext(ctx, query, id), "id", id)
}

func (r *pgProductRepository) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `SELECT id, title, slug, price, category_id, created_at FROM products WHERE slug = $1`
	return r.scanProduct(r.db.QueryRowContext(ctx, query, slug), "slug", slug)
}

func (r *pgProductRepository) GetAllProducts(ctx context.Context) ([]*domain.Product, error) {
	query := `SELECT id, title, slug, price, category_id, created_at FROM products ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query products", zap.Error(err))
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		product := &domain.Product{}
		var categoryID sql.NullString
		if err := rows.Scan(&product.ID, &product.Title, &product.Slug, &product.Price, &categoryID, &product.CreatedAt); err != nil {
			r.logger.Error("Failed to scan product row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		if categoryID.Valid {
			product.CategoryID = categoryID.String
		}
		products = append(products, product)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return products, nil
}

func (r *pgProductRepository) scanProduct(row *sql.Row, keyName, key string) (*domain.Product, error) {
	product := &domain.Product{}
	var categoryID sql.NullString
	err := row.Scan(&product.ID, &product.Title, &product.Slug, &product.Price, &categoryID, &product.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		r.logger.Error("Failed to get product", zap.String(keyName, key), zap.Error(err))
		return nil, fmt.Errorf("failed to get product by %s %s: %w", keyName, key, err)
	}
	if categoryID.Valid {
		product.CategoryID = categoryID.String
	}
	return product, nil
}
