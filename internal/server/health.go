package server

import (
	"context"
	"net/http"

	goahttp "goa.design/goa/v3/http"
	goa "goa.design/goa/v3/pkg"

	"brhygiene/internal/services"
)

// NewHealthHandler creates a HTTP handler which calls the "health" service
// "check" endpoint. A degraded result is answered with 503.
func NewHealthHandler(
	endpoint goa.Endpoint,
	encoder func(context.Context, http.ResponseWriter) goahttp.Encoder,
	errhandler func(context.Context, http.ResponseWriter, error),
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := jsonContext(r.Context(), "health", "check")

		v, err := endpoint(ctx, nil)
		res, _ := v.(*services.HealthResult)
		if err != nil || res == nil {
			logger(ctx).WithError(err).Error("health check failed")
			res = &services.HealthResult{Status: "unhealthy"}
		}

		status := http.StatusOK
		if !res.Healthy() {
			status = http.StatusServiceUnavailable
		}
		enc := encoder(ctx, w)
		w.WriteHeader(status)
		if err := enc.Encode(res); err != nil {
			errhandler(ctx, w, err)
		}
	})
}
