package cart

import "github.com/shopspring/decimal"

// CartItem carries the live product name and price alongside the stored
// quantity; price is re-read from the catalog on every load so the cart
// preview always reflects current prices.
type CartItem struct {
	ID        int64           `json:"id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type Cart struct {
	ID     int64           `json:"id"`
	UserID string          `json:"user_id"`
	Items  []CartItem      `json:"items"`
	Total  decimal.Decimal `json:"total"`
}
