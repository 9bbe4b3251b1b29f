package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"skoolstore/internal/domain"
	"skoolstore/internal/repository/grant_repo"
)

type pgGrantRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewGrantRepository(db *sql.DB, l *zap.Logger) grant_repo.GrantRepository {
	return &pgGrantRepository{db: db, logger: l}
}

func (r *pgGrantRepository) CreateGrant(ctx context.Context, grant *domain.UserProductGrant) error {
	query := `INSERT INTO user_product_grants (id, user_id, product_id, order_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, product_id, order_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, grant.ID, grant.UserID, grant.ProductID, grant.OrderID, grant.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create product grant",
			zap.String("user_id", grant.UserID),
			zap.String("product_id", grant.ProductID),
			zap.String("order_id", grant.OrderID),
			zap.Error(err))
		return fmt.Errorf("failed to create grant for product %s: %w", grant.ProductID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check insert result: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrGrantAlreadyExists
	}
	r.logger.Debug("Product grant created",
		zap.String("user_id", grant.UserID),
		zap.String("product_id", grant.ProductID),
		zap.String("order_id", grant.OrderID))
	return nil
}

func (r *pgGrantRepository) GetGrantsByUserID(ctx context.Context, userID string) ([]*domain.UserProductGrant, error) {
	query := `SELECT id, user_id, product_id, order_id, created_at FROM user_product_grants WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to query grants for user", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get grants by user ID %s: %w", userID, err)
	}
	defer rows.Close()
	return collectGrants(rows)
}

func (r *pgGrantRepository) GetGrantsByOrderID(ctx context.Context, orderID string) ([]*domain.UserProductGrant, error) {
	query := `SELECT id, user_id, product_id, order_id, created_at FROM user_product_grants WHERE order_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to query grants for order", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("failed to get grants by order ID %s: %w", orderID, err)
	}
	defer rows.Close()
	return collectGrants(rows)
}

func (r *pgGrantRepository) UserHasProduct(ctx context.Context, userID, productID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM user_product_grants WHERE user_id = $1 AND product_id = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, productID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check product access", zap.String("user_id", userID), zap.String("product_id", productID), zap.Error(err))
		return false, fmt.Errorf("failed to check access for product %s: %w", productID, err)
	}
	return exists, nil
}

func collectGrants(rows *sql.Rows) ([]*domain.UserProductGrant, error) {
	var grants []*domain.UserProductGrant
	for rows.Next() {
		grant := &domain.UserProductGrant{}
		if err := rows.Scan(&grant.ID, &grant.UserID, &grant.ProductID, &grant.OrderID, &grant.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan grant row: %w", err)
		}
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return grants, nil
}
