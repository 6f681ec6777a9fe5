// Package orders snapshots carts into immutable orders at checkout and tracks
// their status and payment status afterwards.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrNotFound      = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid status value")
	ErrAlreadyPaid   = errors.New("order already paid")
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

// PlaceOrder snapshots the user's cart into a new pending, unpaid order and
// clears the cart, all in one transaction. The snapshot copies product name
// and current price per line; the total is frozen at this instant.
func (c *Conf) PlaceOrder(ctx context.Context, userID, shippingAddress, paymentMethod string) (Order, error) {
	var out Order
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		queryCart := `
			SELECT id
			FROM carts
			WHERE user_id = $1
			FOR UPDATE
		`
		var cartID int64
		err := tx.QueryRowContext(ctx, queryCart, userID).Scan(&cartID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrEmptyCart
			}
			return fmt.Errorf("querying cart: %w", err)
		}

		queryItems := `
			SELECT ci.product_id, p.name, p.price, ci.quantity
			FROM cart_items ci
			JOIN products p ON p.id = ci.product_id
			WHERE ci.cart_id = $1
			ORDER BY ci.id
		`
		rows, err := tx.QueryContext(ctx, queryItems, cartID)
		if err != nil {
			return fmt.Errorf("querying cart items: %w", err)
		}
		defer rows.Close()

		var items []OrderItem
		total := decimal.Zero
		for rows.Next() {
			var item OrderItem
			if err := rows.Scan(&item.ProductID, &item.ProductName, &item.UnitPrice, &item.Quantity); err != nil {
				return fmt.Errorf("scanning cart item: %w", err)
			}
			total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
			items = append(items, item)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating cart items: %w", err)
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		order := Order{
			ID:              uuid.NewString(),
			UserID:          userID,
			Items:           items,
			Total:           total,
			Status:          StatusPending,
			PaymentStatus:   PaymentStatusUnpaid,
			ShippingAddress: shippingAddress,
			PaymentMethod:   paymentMethod,
			CreatedAt:       time.Now().UTC(),
			UpdatedAt:       time.Now().UTC(),
		}

		queryInsertOrder := `
			INSERT INTO orders (id, user_id, total, status, payment_status, shipping_address, payment_method, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err = tx.ExecContext(ctx, queryInsertOrder, order.ID, order.UserID, order.Total,
			order.Status, order.PaymentStatus, order.ShippingAddress, order.PaymentMethod,
			order.CreatedAt, order.UpdatedAt)
		if err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}

		queryInsertItem := `
			INSERT INTO order_items (order_id, product_id, product_name, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`
		for i := range order.Items {
			item := &order.Items[i]
			err = tx.QueryRowContext(ctx, queryInsertItem, order.ID, item.ProductID,
				item.ProductName, item.UnitPrice, item.Quantity).Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("inserting order item: %w", err)
			}
		}

		// Checkout empties the cart; the cart row itself survives.
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
			return fmt.Errorf("clearing cart: %w", err)
		}

		out = order
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return out, nil
}

// ListOrders returns the user's orders, newest first.
func (c *Conf) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	queryOrders := `
		SELECT id, user_id, total, status, payment_status, shipping_address, payment_method, payment_ref, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, queryOrders, userID)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.PaymentStatus,
			&o.ShippingAddress, &o.PaymentMethod, &o.PaymentRef, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating orders: %w", err)
	}

	for i := range out {
		items, err := c.loadItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

// GetOrder fetches one order owned by the user.
func (c *Conf) GetOrder(ctx context.Context, userID, orderID string) (Order, error) {
	queryOrder := `
		SELECT id, user_id, total, status, payment_status, shipping_address, payment_method, payment_ref, created_at, updated_at
		FROM orders
		WHERE id = $1 AND user_id = $2
	`
	var o Order
	err := c.db.QueryRowContext(ctx, queryOrder, orderID, userID).Scan(
		&o.ID, &o.UserID, &o.Total, &o.Status, &o.PaymentStatus,
		&o.ShippingAddress, &o.PaymentMethod, &o.PaymentRef, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("querying order: %w", err)
	}

	items, err := c.loadItems(ctx, o.ID)
	if err != nil {
		return Order{}, err
	}
	o.Items = items
	return o, nil
}

// UpdateOrder applies a partial update. Only status, shipping_address,
// payment_method and payment_status may change; the snapshot and total are
// immutable.
func (c *Conf) UpdateOrder(ctx context.Context, userID, orderID string, patch Patch) (Order, error) {
	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Status != nil {
		if !validStatus(*patch.Status) {
			return Order{}, ErrInvalidStatus
		}
		add("status", *patch.Status)
	}
	if patch.PaymentStatus != nil {
		if !validPaymentStatus(*patch.PaymentStatus) {
			return Order{}, ErrInvalidStatus
		}
		add("payment_status", *patch.PaymentStatus)
	}
	if patch.ShippingAddress != nil {
		add("shipping_address", *patch.ShippingAddress)
	}
	if patch.PaymentMethod != nil {
		add("payment_method", *patch.PaymentMethod)
	}
	if len(sets) == 0 {
		return c.GetOrder(ctx, userID, orderID)
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, orderID)
	idPos := len(args)
	args = append(args, userID)
	userPos := len(args)

	queryUpdate := fmt.Sprintf(`UPDATE orders SET %s WHERE id = $%d AND user_id = $%d`,
		strings.Join(sets, ", "), idPos, userPos)

	res, err := c.db.ExecContext(ctx, queryUpdate, args...)
	if err != nil {
		return Order{}, fmt.Errorf("updating order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Order{}, fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return Order{}, ErrNotFound
	}
	return c.GetOrder(ctx, userID, orderID)
}

// DeleteOrder removes the order and its item snapshot. Hard delete; callers
// decide whether the actor is allowed to cancel.
func (c *Conf) DeleteOrder(ctx context.Context, userID, orderID string) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM orders WHERE id = $1 AND user_id = $2`, orderID, userID)
	if err != nil {
		return fmt.Errorf("deleting order: %w", err)
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

// MarkPaid flips an unpaid order to paid and records the gateway reference in
// a single transaction. Paying twice reports ErrAlreadyPaid.
func (c *Conf) MarkPaid(ctx context.Context, orderID, paymentRef string) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		queryStatus := `
			SELECT payment_status
			FROM orders
			WHERE id = $1
			FOR UPDATE
		`
		var paymentStatus string
		err := tx.QueryRowContext(ctx, queryStatus, orderID).Scan(&paymentStatus)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("querying order status: %w", err)
		}
		if paymentStatus == PaymentStatusPaid {
			return ErrAlreadyPaid
		}

		queryUpdate := `
			UPDATE orders
			SET payment_status = $1, payment_ref = $2, updated_at = NOW()
			WHERE id = $3
		`
		if _, err := tx.ExecContext(ctx, queryUpdate, PaymentStatusPaid, paymentRef, orderID); err != nil {
			return fmt.Errorf("marking order paid: %w", err)
		}
		return nil
	})
}

func (c *Conf) loadItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	queryItems := `
		SELECT id, product_id, product_name, unit_price, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`
	rows, err := c.db.QueryContext(ctx, queryItems, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.UnitPrice, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order items: %w", err)
	}
	return items, nil
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
