package checkout

// CartItem is one line of the shopper's cart. The unit price is the quoted
// price in minor currency units and is authoritative for this transaction;
// it is never re-read from the catalog.
type CartItem struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
}

type CheckoutRequest struct {
	Items []CartItem `json:"items"`
}

type CheckoutResponse struct {
	OrderID     string `json:"order_id"`
	CheckoutURL string `json:"checkout_url"`
}
