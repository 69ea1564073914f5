package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitale-labs/voucher-service/internal/model"
	"github.com/vitale-labs/voucher-service/internal/service"
)

const productColumns = `id, name, quantity, created_at, updated_at`

// ProductRepository provides data access for products using pgx.
type ProductRepository struct {
	pool PoolInterface
}

// NewProductRepository creates a new ProductRepository with the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// NewProductRepositoryWithPool creates a new ProductRepository with a custom
// pool interface. This is primarily used for testing.
func NewProductRepositoryWithPool(pool PoolInterface) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Quantity, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Insert inserts a new product.
func (r *ProductRepository) Insert(ctx context.Context, p *model.Product) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO products (id, name, quantity, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)`,
		p.ID, p.Name, p.Quantity, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by ID.
// Returns nil, nil if the product is not found.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// Update writes the mutable product fields.
func (r *ProductRepository) Update(ctx context.Context, p *model.Product) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET name = $1, quantity = $2, updated_at = now() WHERE id = $3`,
		p.Name, p.Quantity, p.ID)
	if err != nil {
		return fmt.Errorf("update product %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrProductNotFound
	}
	return nil
}

// List retrieves all products ordered by name.
func (r *ProductRepository) List(ctx context.Context) ([]*model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []*model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// ListInStock retrieves products with remaining stock, used by the bulk
// voucher generator when assigning products.
func (r *ProductRepository) ListInStock(ctx context.Context) ([]*model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE quantity > 0 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list in-stock products: %w", err)
	}
	defer rows.Close()

	products := []*model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// DecrementStock atomically takes one unit of stock. The quantity predicate
// makes the decrement race-safe: it reports false when stock is already gone,
// and quantity can never go negative.
func (r *ProductRepository) DecrementStock(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET quantity = quantity - 1, updated_at = now()
		 WHERE id = $1 AND quantity > 0`, id)
	if err != nil {
		return false, fmt.Errorf("decrement stock for %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
