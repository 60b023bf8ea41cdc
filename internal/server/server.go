// Package server is the HTTP transport of the inquiry API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	goahttp "goa.design/goa/v3/http"
	httpmdlwr "goa.design/goa/v3/http/middleware"
	goa "goa.design/goa/v3/pkg"

	"brhygiene/internal/auth"
	"brhygiene/internal/config"
	"brhygiene/internal/metrics"
	"brhygiene/internal/services"
)

var responseEncoder = goahttp.ResponseEncoder

// Options configures the HTTP handler.
type Options struct {
	Debug    bool
	CORS     config.CORSConfig
	Business *config.BusinessConfig
	// Issuer guards /metrics. Nil leaves it open.
	Issuer *auth.TokenIssuer
}

// NewHandler mounts the endpoints on a goa muxer and wraps it in the
// middleware chain: security headers, CORS, request id, request logging,
// Prometheus.
func NewHandler(e *Endpoints, opts Options) http.Handler {
	e.Use(logEndpoint)

	mux := goahttp.NewMuxer()
	Mount(mux, e, services.UnavailableMessage(opts.Business))

	metricsHandler := services.RequireScope(opts.Issuer, auth.ScopeMetrics, promhttp.Handler())
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			metricsHandler.ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})

	var handler http.Handler = metrics.PrometheusMiddleware(root)
	handler = requestLogging(handler)
	handler = httpmdlwr.PopulateRequestContext()(handler)
	handler = httpmdlwr.RequestID(httpmdlwr.UseXRequestIDHeaderOption(true))(handler)
	handler = cors(handler, opts.CORS, opts.Debug)
	handler = securityHeaders(handler, opts.Debug)
	return handler
}

// Mount configures the mux to serve the inquiry, product and health
// endpoints. Every other method on a mounted path answers 405.
func Mount(mux goahttp.Muxer, e *Endpoints, unavailableMessage string) {
	mux.Handle(http.MethodPost, "/api/inquiries",
		NewSubmitHandler(e.Submit, goahttp.RequestDecoder, responseEncoder, errorHandler, unavailableMessage).ServeHTTP)
	mux.Handle(http.MethodGet, "/api/products",
		NewListProductsHandler(e.ListProducts, responseEncoder, errorHandler).ServeHTTP)
	mux.Handle(http.MethodGet, "/health",
		NewHealthHandler(e.Health, responseEncoder, errorHandler).ServeHTTP)

	postOnly := methodNotAllowed(http.MethodPost, ErrorBody{Error: "Method not allowed. Use POST."})
	getOnly := methodNotAllowed(http.MethodGet, map[string]string{"error": "Method not allowed. Use GET."})
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		mux.Handle(method, "/api/inquiries", postOnly)
	}
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		mux.Handle(method, "/api/products", getOnly)
	}
}

// errorHandler logs failures to write a response.
func errorHandler(ctx context.Context, w http.ResponseWriter, err error) {
	logger(ctx).WithError(err).Error("failed to encode response")
}

// logEndpoint logs each endpoint call with its goa service and method.
func logEndpoint(next goa.Endpoint) goa.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		start := time.Now()
		res, err := next(ctx, req)

		service, _ := ctx.Value(goa.ServiceKey).(string)
		method, _ := ctx.Value(goa.MethodKey).(string)
		logger(ctx).
			WithField("endpoint", service+"."+method).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Debug("endpoint called")
		return res, err
	}
}
