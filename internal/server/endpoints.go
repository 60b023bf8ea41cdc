package server

import (
	"context"
	"fmt"

	goa "goa.design/goa/v3/pkg"

	"brhygiene/internal/domain"
	"brhygiene/internal/services"
)

// Submitter runs the inquiry submission pipeline.
type Submitter interface {
	Submit(ctx context.Context, p *services.SubmitPayload) (*services.SubmitResult, error)
}

// ProductCatalog lists the products.
type ProductCatalog interface {
	List(ctx context.Context) ([]domain.Product, error)
}

// HealthChecker reports service health.
type HealthChecker interface {
	Check(ctx context.Context) (*services.HealthResult, error)
}

// Endpoints wraps the service methods as goa endpoints.
type Endpoints struct {
	Submit       goa.Endpoint
	ListProducts goa.Endpoint
	Health       goa.Endpoint
}

// NewEndpoints wraps the methods of the services into goa endpoints.
func NewEndpoints(contact Submitter, catalog ProductCatalog, health HealthChecker) *Endpoints {
	return &Endpoints{
		Submit:       NewSubmitEndpoint(contact),
		ListProducts: NewListProductsEndpoint(catalog),
		Health:       NewHealthEndpoint(health),
	}
}

// Use applies the given middleware to all the endpoints.
func (e *Endpoints) Use(m func(goa.Endpoint) goa.Endpoint) {
	e.Submit = m(e.Submit)
	e.ListProducts = m(e.ListProducts)
	e.Health = m(e.Health)
}

// NewSubmitEndpoint returns an endpoint function that calls Submit.
func NewSubmitEndpoint(s Submitter) goa.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		p, ok := req.(*services.SubmitPayload)
		if !ok {
			return nil, fmt.Errorf("submit: unexpected payload %T", req)
		}
		return s.Submit(ctx, p)
	}
}

// NewListProductsEndpoint returns an endpoint function that calls List.
func NewListProductsEndpoint(s ProductCatalog) goa.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		return s.List(ctx)
	}
}

// NewHealthEndpoint returns an endpoint function that calls Check.
func NewHealthEndpoint(s HealthChecker) goa.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		return s.Check(ctx)
	}
}
