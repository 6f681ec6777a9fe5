// Package cart owns the per-user mutable cart. All read-modify-write
// sequences run inside a single transaction holding the cart row lock, so
// concurrent mutations for the same user serialize instead of losing updates.
package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrItemNotFound      = errors.New("cart item not found")
	ErrInsufficientStock = errors.New("insufficient product quantity")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

// GetCart returns the user's cart, creating an empty one on first access.
func (c *Conf) GetCart(ctx context.Context, userID string) (Cart, error) {
	var out Cart
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		cartID, err := ensureCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		items, err := loadItems(ctx, tx, cartID)
		if err != nil {
			return err
		}
		out = buildCart(cartID, userID, items)
		return nil
	})
	if err != nil {
		return Cart{}, err
	}
	return out, nil
}

// AddItem puts quantity units of the product into the cart, accumulating onto
// an existing line item. The summed quantity may never exceed available stock.
func (c *Conf) AddItem(ctx context.Context, userID, productID string, quantity int) (Cart, error) {
	if quantity <= 0 {
		return Cart{}, ErrInvalidQuantity
	}

	var out Cart
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		cartID, err := ensureCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		var stock int
		queryStock := `
			SELECT stock
			FROM products
			WHERE id = $1
		`
		err = tx.QueryRowContext(ctx, queryStock, productID).Scan(&stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProductNotFound
			}
			return fmt.Errorf("querying product stock: %w", err)
		}

		queryItem := `
			SELECT id, quantity
			FROM cart_items
			WHERE cart_id = $1 AND product_id = $2
		`
		var itemID int64
		var existing int
		err = tx.QueryRowContext(ctx, queryItem, cartID, productID).Scan(&itemID, &existing)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if quantity > stock {
				return ErrInsufficientStock
			}
			queryInsert := `
				INSERT INTO cart_items (cart_id, product_id, quantity)
				VALUES ($1, $2, $3)
			`
			if _, err := tx.ExecContext(ctx, queryInsert, cartID, productID, quantity); err != nil {
				return fmt.Errorf("inserting cart item: %w", err)
			}
		case err != nil:
			return fmt.Errorf("querying cart item: %w", err)
		default:
			newQuantity := existing + quantity
			if newQuantity > stock {
				return ErrInsufficientStock
			}
			queryUpdate := `
				UPDATE cart_items
				SET quantity = $1, updated_at = NOW()
				WHERE id = $2
			`
			if _, err := tx.ExecContext(ctx, queryUpdate, newQuantity, itemID); err != nil {
				return fmt.Errorf("updating cart item: %w", err)
			}
		}

		items, err := loadItems(ctx, tx, cartID)
		if err != nil {
			return err
		}
		out = buildCart(cartID, userID, items)
		return nil
	})
	if err != nil {
		return Cart{}, err
	}
	return out, nil
}

// UpdateItem replaces the quantity on a line item belonging to the user.
func (c *Conf) UpdateItem(ctx context.Context, userID string, itemID int64, quantity int) (CartItem, error) {
	if quantity <= 0 {
		return CartItem{}, ErrInvalidQuantity
	}

	var out CartItem
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		queryUpdate := `
			UPDATE cart_items
			SET quantity = $1, updated_at = NOW()
			FROM carts
			WHERE cart_items.id = $2 AND cart_items.cart_id = carts.id AND carts.user_id = $3
		`
		res, err := tx.ExecContext(ctx, queryUpdate, quantity, itemID, userID)
		if err != nil {
			return fmt.Errorf("updating cart item: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking update result: %w", err)
		}
		if affected == 0 {
			return ErrItemNotFound
		}

		queryItem := `
			SELECT ci.id, ci.product_id, p.name, p.price, ci.quantity
			FROM cart_items ci
			JOIN products p ON p.id = ci.product_id
			WHERE ci.id = $1
		`
		err = tx.QueryRowContext(ctx, queryItem, itemID).Scan(&out.ID, &out.ProductID, &out.Name, &out.Price, &out.Quantity)
		if err != nil {
			return fmt.Errorf("reloading cart item: %w", err)
		}
		return nil
	})
	if err != nil {
		return CartItem{}, err
	}
	return out, nil
}

// RemoveItem deletes a line item. Removing an already-removed item reports
// ErrItemNotFound; removal is not idempotent.
func (c *Conf) RemoveItem(ctx context.Context, userID string, itemID int64) error {
	queryDelete := `
		DELETE FROM cart_items
		USING carts
		WHERE cart_items.id = $1 AND cart_items.cart_id = carts.id AND carts.user_id = $2
	`
	res, err := c.db.ExecContext(ctx, queryDelete, itemID, userID)
	if err != nil {
		return fmt.Errorf("deleting cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// ensureCart upserts the user's cart row and returns its id. The upsert takes
// the row lock for the rest of the transaction, serializing mutations per user.
func ensureCart(ctx context.Context, tx *sql.Tx, userID string) (int64, error) {
	queryUpsert := `
		INSERT INTO carts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING id
	`
	var cartID int64
	if err := tx.QueryRowContext(ctx, queryUpsert, userID).Scan(&cartID); err != nil {
		return 0, fmt.Errorf("upserting cart: %w", err)
	}
	return cartID, nil
}

func loadItems(ctx context.Context, tx *sql.Tx, cartID int64) ([]CartItem, error) {
	queryItems := `
		SELECT ci.id, ci.product_id, p.name, p.price, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id
	`
	rows, err := tx.QueryContext(ctx, queryItems, cartID)
	if err != nil {
		return nil, fmt.Errorf("querying cart items: %w", err)
	}
	defer rows.Close()

	var items []CartItem
	for rows.Next() {
		var item CartItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scanning cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cart items: %w", err)
	}
	return items, nil
}

// buildCart recomputes the total from the freshly loaded items; the total is
// never served from a cache.
func buildCart(cartID int64, userID string, items []CartItem) Cart {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return Cart{ID: cartID, UserID: userID, Items: items, Total: total}
}

func (c *Conf) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if er := tx.Rollback(); er != nil && !errors.Is(er, sql.ErrTxDone) {
			return fmt.Errorf("failed to rollback withTx: %w", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit withTx: %w", err)
	}
	return nil
}
