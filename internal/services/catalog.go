package services

import (
	"context"

	"brhygiene/internal/domain"
	"brhygiene/internal/logging"
)

// ProductLister returns the product catalog and where it came from.
type ProductLister interface {
	List(ctx context.Context) ([]domain.Product, string)
}

// CatalogService serves the read-only product list.
type CatalogService struct {
	products ProductLister
}

// NewCatalogService creates a new catalog service
func NewCatalogService(products ProductLister) *CatalogService {
	return &CatalogService{products: products}
}

// List returns every product ordered by id.
func (s *CatalogService) List(ctx context.Context) ([]domain.Product, error) {
	products, source := s.products.List(ctx)
	logging.For("catalog").WithField("request_id", requestID(ctx)).
		WithField("source", source).
		WithField("count", len(products)).
		Debug("products requested")
	return products, nil
}
