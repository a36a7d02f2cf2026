package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"shopbot/models"
)

// catalogFieldOrder is the canonical column order; positional records map to
// it when keys are absent.
var catalogFieldOrder = []string{"id", "name", "description", "price", "stock_quantity"}

type CatalogService struct {
	db *sql.DB
}

func NewCatalogService(db *sql.DB) *CatalogService {
	return &CatalogService{db: db}
}

// FetchAvailable returns the current in-stock catalog snapshot. Out-of-stock
// products are filtered at the source. An empty catalog is a valid result,
// not an error; only a failed read maps to ErrCatalogUnavailable.
func (cs *CatalogService) FetchAvailable(ctx context.Context) ([]models.Product, error) {
	query := `
		SELECT id, name, description, price, stock_quantity
		FROM products
		WHERE stock_quantity > 0
	`

	rows, err := cs.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		var (
			id          sql.NullInt64
			name        sql.NullString
			description sql.NullString
			price       sql.NullFloat64
			stock       sql.NullInt64
		)
		if err := rows.Scan(&id, &name, &description, &price, &stock); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCatalog, err)
		}

		product, err := NormalizeRecord([]any{
			nullable(id.Valid, id.Int64),
			nullable(name.Valid, name.String),
			nullable(description.Valid, description.String),
			nullable(price.Valid, price.Float64),
			nullable(stock.Valid, stock.Int64),
		})
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	if len(products) == 0 {
		log.Printf("Warning: No products found in database")
	}

	return products, nil
}

// NormalizeRecord maps one heterogeneous catalog record into the canonical
// Product shape. Keyed records (map) are read by field name; ordered records
// (slice) map positionally to {id, name, description, price, stock_quantity}.
func NormalizeRecord(record any) (models.Product, error) {
	var fields map[string]any

	switch rec := record.(type) {
	case map[string]any:
		fields = rec
	case []any:
		fields = make(map[string]any, len(catalogFieldOrder))
		for i, key := range catalogFieldOrder {
			if i < len(rec) {
				fields[key] = rec[i]
			}
		}
	default:
		return models.Product{}, fmt.Errorf("%w: unsupported record type %T", ErrMalformedCatalog, record)
	}

	id, ok := asInt(fields["id"])
	if !ok {
		return models.Product{}, fmt.Errorf("%w: missing id", ErrMalformedCatalog)
	}
	name, ok := fields["name"].(string)
	if !ok || name == "" {
		return models.Product{}, fmt.Errorf("%w: missing name", ErrMalformedCatalog)
	}
	description, ok := fields["description"].(string)
	if !ok {
		return models.Product{}, fmt.Errorf("%w: missing description", ErrMalformedCatalog)
	}
	price, ok := asFloat(fields["price"])
	if !ok {
		return models.Product{}, fmt.Errorf("%w: missing price", ErrMalformedCatalog)
	}
	stock, ok := asInt(fields["stock_quantity"])
	if !ok || stock < 0 {
		return models.Product{}, fmt.Errorf("%w: missing stock_quantity", ErrMalformedCatalog)
	}

	return models.Product{
		ID:            id,
		Name:          name,
		Description:   description,
		Price:         price,
		StockQuantity: stock,
	}, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func nullable(valid bool, v any) any {
	if !valid {
		return nil
	}
	return v
}
