package models

// Product is one in-stock catalog row, snapshotted fresh on every turn.
type Product struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
}

// ProductLink is a deep link to a product mentioned in a turn.
type ProductLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}
