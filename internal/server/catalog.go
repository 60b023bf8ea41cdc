package server

import (
	"context"
	"net/http"

	goahttp "goa.design/goa/v3/http"
	goa "goa.design/goa/v3/pkg"
)

// NewListProductsHandler creates a HTTP handler which calls the "catalog"
// service "list" endpoint.
func NewListProductsHandler(
	endpoint goa.Endpoint,
	encoder func(context.Context, http.ResponseWriter) goahttp.Encoder,
	errhandler func(context.Context, http.ResponseWriter, error),
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := jsonContext(r.Context(), "catalog", "list")

		res, err := endpoint(ctx, nil)
		if err != nil {
			logger(ctx).WithError(err).Error("failed to list products")
			enc := encoder(ctx, w)
			w.WriteHeader(http.StatusInternalServerError)
			if err := enc.Encode(map[string]string{"error": "Failed to fetch products. Please try again later."}); err != nil {
				errhandler(ctx, w, err)
			}
			return
		}

		enc := encoder(ctx, w)
		w.WriteHeader(http.StatusOK)
		if err := enc.Encode(res); err != nil {
			errhandler(ctx, w, err)
		}
	})
}
