package products

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
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

func productColumns() []string {
	return []string{"id", "name", "description", "price", "stock", "category", "created_at", "updated_at"}
}

func TestInsertProduct_RejectsBadPrice(t *testing.T) {
	conf, _ := newConf(t)

	for _, price := range []string{"", "free", "-1.00"} {
		if _, err := conf.InsertProduct(context.Background(), NewProduct{
			Name: "Widget", Price: price, Stock: 5,
		}); err == nil {
			t.Fatalf("expected error for price %q", price)
		}
	}
}

func TestGetProductByID_NotFound(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectQuery("SELECT id, name, description").WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(productColumns()))

	if _, err := conf.GetProductByID(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// Search hits name and description case-insensitively and category exactly.
func TestListProducts_Search(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectQuery("name ILIKE").WithArgs("%phone%", "phone").
		WillReturnRows(sqlmock.NewRows(productColumns()).
			AddRow("p1", "Phone X", "A phone", "499.00", 3, "electronics", time.Now(), time.Now()))

	list, err := conf.ListProducts(context.Background(), Filter{Search: "phone"})
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Phone X" {
		t.Fatalf("unexpected results: %+v", list)
	}
	if list[0].Price.String() != "499.00" {
		t.Fatalf("expected price 499.00, got %s", list[0].Price.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListProducts_PriceRange(t *testing.T) {
	conf, mock := newConf(t)

	min, _ := decimal.NewFromString("10.00")
	max, _ := decimal.NewFromString("100.00")

	mock.ExpectQuery("price >= .+ AND price <=").WithArgs("electronics", "10.00", "100.00").
		WillReturnRows(sqlmock.NewRows(productColumns()))

	list, err := conf.ListProducts(context.Background(), Filter{
		Category: "electronics",
		MinPrice: &min,
		MaxPrice: &max,
	})
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no results, got %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateProduct_NotFound(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectExec("UPDATE products").
		WithArgs("Widget", "desc", sqlmock.AnyArg(), 5, "tools", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := conf.UpdateProduct(context.Background(), "ghost", NewProduct{
		Name: "Widget", Description: "desc", Price: "10.00", Stock: 5, Category: "tools",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteProduct_NotFound(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectExec("DELETE FROM products").WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := conf.DeleteProduct(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
