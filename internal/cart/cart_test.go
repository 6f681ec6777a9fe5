package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newConf(t *testing.T) (*Conf, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	conf, err := NewConf(db)
	if err != nil {
		t.Fatalf("NewConf: %v", err)
	}
	return conf, mock
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	conf, _ := newConf(t)

	if _, err := conf.AddItem(context.Background(), "u1", "p1", 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := conf.AddItem(context.Background(), "u1", "p1", -3); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestAddItem_ProductMissing(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO carts").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT stock").WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"stock"}))
	mock.ExpectRollback()

	if _, err := conf.AddItem(context.Background(), "u1", "missing", 1); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// A product with 2 units already in the cart and stock 5 cannot take 4 more;
// the cart stays at quantity 2.
func TestAddItem_StockCeilingOnAccumulate(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO carts").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT stock").WithArgs("pA").
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(5))
	mock.ExpectQuery("SELECT id, quantity").WithArgs(int64(1), "pA").
		WillReturnRows(sqlmock.NewRows([]string{"id", "quantity"}).AddRow(int64(7), 2))
	mock.ExpectRollback()

	if _, err := conf.AddItem(context.Background(), "u1", "pA", 4); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddItem_NewItemWithinStock(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO carts").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT stock").WithArgs("pA").
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(5))
	mock.ExpectQuery("SELECT id, quantity").WithArgs(int64(1), "pA").
		WillReturnRows(sqlmock.NewRows([]string{"id", "quantity"}))
	mock.ExpectExec("INSERT INTO cart_items").WithArgs(int64(1), "pA", 2).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery("SELECT ci.id, ci.product_id").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "name", "price", "quantity"}).
			AddRow(int64(7), "pA", "Widget", "10.00", 2))
	mock.ExpectCommit()

	got, err := conf.AddItem(context.Background(), "u1", "pA", 2)
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Quantity != 2 {
		t.Fatalf("unexpected cart items: %+v", got.Items)
	}
	if got.Total.String() != "20.00" {
		t.Fatalf("expected total 20.00, got %s", got.Total.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// Total is recomputed from live prices on every read: (10.00 x 2) + (5.50 x 1).
func TestGetCart_TotalFromLivePrices(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO carts").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT ci.id, ci.product_id").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "name", "price", "quantity"}).
			AddRow(int64(7), "pA", "Widget", "10.00", 2).
			AddRow(int64(8), "pB", "Gadget", "5.50", 1))
	mock.ExpectCommit()

	got, err := conf.GetCart(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if got.Total.String() != "25.50" {
		t.Fatalf("expected total 25.50, got %s", got.Total.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetCart_LazyCreateEmpty(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO carts").WithArgs("new-user").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectQuery("SELECT ci.id, ci.product_id").WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "name", "price", "quantity"}))
	mock.ExpectCommit()

	got, err := conf.GetCart(context.Background(), "new-user")
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if len(got.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", got.Items)
	}
	if !got.Total.IsZero() {
		t.Fatalf("expected zero total, got %s", got.Total.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateItem_NotFound(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE cart_items").WithArgs(3, int64(99), "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if _, err := conf.UpdateItem(context.Background(), "u1", 99, 3); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// Removal is not idempotent: the second delete of the same item reports
// not-found.
func TestRemoveItem_SecondRemovalNotFound(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectExec("DELETE FROM cart_items").WithArgs(int64(7), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM cart_items").WithArgs(int64(7), "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := conf.RemoveItem(context.Background(), "u1", 7); err != nil {
		t.Fatalf("first removal failed: %v", err)
	}
	if err := conf.RemoveItem(context.Background(), "u1", 7); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound on second removal, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
