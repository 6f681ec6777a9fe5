// Package products owns the product catalog: CRUD, search and the
// price/stock lookup consumed by the cart.
package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("product not found")

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

func (c *Conf) InsertProduct(ctx context.Context, np NewProduct) (Product, error) {
	price, err := decimal.NewFromString(np.Price)
	if err != nil || price.IsNegative() {
		return Product{}, fmt.Errorf("invalid price %q", np.Price)
	}

	p := Product{
		ID:          uuid.NewString(),
		Name:        np.Name,
		Description: np.Description,
		Price:       price,
		Stock:       np.Stock,
		Category:    np.Category,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	query := `
		INSERT INTO products (id, name, description, price, stock, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = c.db.ExecContext(ctx, query, p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("inserting product: %w", err)
	}
	return p, nil
}

func (c *Conf) GetProductByID(ctx context.Context, id string) (Product, error) {
	query := `
		SELECT id, name, description, price, stock, category, created_at, updated_at
		FROM products
		WHERE id = $1
	`
	var p Product
	err := c.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("querying product: %w", err)
	}
	return p, nil
}

// ListProducts returns products matching the filter. Search matches name,
// description, or exact category, case-insensitively.
func (c *Conf) ListProducts(ctx context.Context, f Filter) ([]Product, error) {
	query := `
		SELECT id, name, description, price, stock, category, created_at, updated_at
		FROM products
		WHERE 1=1
	`
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Search != "" {
		ph := next("%" + f.Search + "%")
		query += fmt.Sprintf(" AND (name ILIKE %s OR description ILIKE %s OR LOWER(category) = LOWER(%s))",
			ph, ph, next(f.Search))
	}
	if f.Category != "" {
		query += fmt.Sprintf(" AND category = %s", next(f.Category))
	}
	if f.MinPrice != nil {
		query += fmt.Sprintf(" AND price >= %s", next(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		query += fmt.Sprintf(" AND price <= %s", next(*f.MaxPrice))
	}
	query += " ORDER BY created_at DESC"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}
	return out, nil
}

func (c *Conf) UpdateProduct(ctx context.Context, id string, np NewProduct) (Product, error) {
	price, err := decimal.NewFromString(np.Price)
	if err != nil || price.IsNegative() {
		return Product{}, fmt.Errorf("invalid price %q", np.Price)
	}

	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, stock = $4, category = $5, updated_at = NOW()
		WHERE id = $6
	`
	res, err := c.db.ExecContext(ctx, query, np.Name, np.Description, price, np.Stock, np.Category, id)
	if err != nil {
		return Product{}, fmt.Errorf("updating product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Product{}, fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return Product{}, ErrNotFound
	}
	return c.GetProductByID(ctx, id)
}

func (c *Conf) DeleteProduct(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
