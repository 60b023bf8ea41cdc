package server

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"

	goahttp "goa.design/goa/v3/http"
	goa "goa.design/goa/v3/pkg"

	"brhygiene/internal/services"
	apperrors "brhygiene/pkg/errors"
)

const (
	maxBodyBytes      = 64 << 10
	maxMultipartBytes = 1 << 20
)

var (
	errUnsupportedMedia = errors.New("unsupported content type")
	errMalformedBody    = errors.New("malformed request body")
)

// ErrorBody is the JSON body of every failed inquiry response.
type ErrorBody struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// NewSubmitHandler creates a HTTP handler which loads the HTTP request and
// calls the "contact" service "submit" endpoint.
func NewSubmitHandler(
	endpoint goa.Endpoint,
	decoder func(*http.Request) goahttp.Decoder,
	encoder func(context.Context, http.ResponseWriter) goahttp.Encoder,
	errhandler func(context.Context, http.ResponseWriter, error),
	unavailableMessage string,
) http.Handler {
	var (
		decodeRequest  = DecodeSubmitRequest(decoder)
		encodeResponse = EncodeSubmitResponse(encoder)
		encodeError    = EncodeSubmitError(encoder, unavailableMessage)
	)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := jsonContext(r.Context(), "contact", "submit")

		payload, err := decodeRequest(r)
		if err != nil {
			if err := encodeError(ctx, w, err); err != nil {
				errhandler(ctx, w, err)
			}
			return
		}
		res, err := endpoint(ctx, payload)
		if err != nil {
			if err := encodeError(ctx, w, err); err != nil {
				errhandler(ctx, w, err)
			}
			return
		}
		if err := encodeResponse(ctx, w, res); err != nil {
			errhandler(ctx, w, err)
		}
	})
}

// DecodeSubmitRequest returns a decoder for requests sent to the contact
// submit endpoint. JSON bodies go through the goa decoder; url-encoded and
// multipart bodies are read as forms. An empty JSON body decodes to an empty
// payload so that validation reports every missing field.
func DecodeSubmitRequest(decoder func(*http.Request) goahttp.Decoder) func(*http.Request) (*services.SubmitPayload, error) {
	return func(r *http.Request) (*services.SubmitPayload, error) {
		mediaType := "application/json"
		if ct := r.Header.Get("Content-Type"); ct != "" {
			mt, _, err := mime.ParseMediaType(ct)
			if err != nil {
				return nil, errUnsupportedMedia
			}
			mediaType = mt
		}

		var body services.SubmitPayload
		switch mediaType {
		case "application/json":
			r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
			if err := decoder(r).Decode(&body); err != nil {
				if errors.Is(err, io.EOF) {
					return &body, nil
				}
				return nil, errMalformedBody
			}
		case "application/x-www-form-urlencoded":
			r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
			if err := r.ParseForm(); err != nil {
				return nil, errMalformedBody
			}
			body = formPayload(r)
		case "multipart/form-data":
			r.Body = http.MaxBytesReader(nil, r.Body, maxMultipartBytes)
			if err := r.ParseMultipartForm(maxMultipartBytes); err != nil {
				return nil, errMalformedBody
			}
			body = formPayload(r)
		default:
			return nil, errUnsupportedMedia
		}
		return &body, nil
	}
}

func formPayload(r *http.Request) services.SubmitPayload {
	return services.SubmitPayload{
		Name:    r.PostFormValue("name"),
		Email:   r.PostFormValue("email"),
		Phone:   r.PostFormValue("phone"),
		Subject: r.PostFormValue("subject"),
		Message: r.PostFormValue("message"),
	}
}

// EncodeSubmitResponse returns an encoder for responses returned by the
// contact submit endpoint.
func EncodeSubmitResponse(encoder func(context.Context, http.ResponseWriter) goahttp.Encoder) func(context.Context, http.ResponseWriter, any) error {
	return func(ctx context.Context, w http.ResponseWriter, v any) error {
		res, _ := v.(*services.SubmitResult)
		enc := encoder(ctx, w)
		w.WriteHeader(http.StatusCreated)
		return enc.Encode(res)
	}
}

// EncodeSubmitError returns an encoder for errors returned by the contact
// submit endpoint. Storage and unexpected failures never reveal their cause.
func EncodeSubmitError(encoder func(context.Context, http.ResponseWriter) goahttp.Encoder, unavailableMessage string) func(context.Context, http.ResponseWriter, error) error {
	return func(ctx context.Context, w http.ResponseWriter, v error) error {
		status := http.StatusInternalServerError
		body := ErrorBody{Error: unavailableMessage}

		var fe apperrors.FieldErrors
		var appErr *apperrors.AppError
		switch {
		case errors.As(v, &fe):
			status = http.StatusBadRequest
			body.Error = "Please correct the highlighted fields."
			body.Errors = fe
		case errors.Is(v, errUnsupportedMedia):
			status = http.StatusUnsupportedMediaType
			body.Error = "Unsupported content type. Send JSON or form data."
		case errors.Is(v, errMalformedBody):
			status = http.StatusBadRequest
			body.Error = "Invalid request body."
		case errors.As(v, &appErr) && appErr.Code == apperrors.ErrCodeStorageUnavailable:
			body.Error = appErr.Message
		case errors.As(v, &appErr) && appErr.Code == apperrors.ErrCodeBadRequest:
			status = http.StatusBadRequest
			body.Error = appErr.Message
		default:
			logger(ctx).WithError(v).Error("unexpected submit error")
		}

		enc := encoder(ctx, w)
		w.WriteHeader(status)
		return enc.Encode(body)
	}
}

// jsonContext tags ctx with the goa service and method names and pins the
// response encoding to JSON.
func jsonContext(ctx context.Context, service, method string) context.Context {
	ctx = context.WithValue(ctx, goahttp.ContentTypeKey, "application/json")
	ctx = context.WithValue(ctx, goa.MethodKey, method)
	ctx = context.WithValue(ctx, goa.ServiceKey, service)
	return ctx
}
