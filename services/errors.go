package services

import "errors"

// Pipeline error taxonomy. Controllers dispatch on these with errors.Is;
// everything else surfaces as a generic 500.
var (
	ErrInvalidRequest     = errors.New("missing required field")
	ErrCatalogUnavailable = errors.New("failed to fetch products from database")
	ErrMalformedCatalog   = errors.New("invalid product data format")
	ErrModelUnavailable   = errors.New("failed to generate response")
	ErrPersistence        = errors.New("chat history operation failed")
)
