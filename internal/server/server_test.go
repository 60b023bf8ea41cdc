package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goa.design/goa/v3/middleware"
	goa "goa.design/goa/v3/pkg"
	"gorm.io/gorm"

	"brhygiene/internal/auth"
	"brhygiene/internal/catalog"
	"brhygiene/internal/config"
	"brhygiene/internal/database"
	"brhygiene/internal/database/dbtest"
	"brhygiene/internal/domain"
	"brhygiene/internal/services"
	"brhygiene/internal/store"
	"brhygiene/internal/validation"
)

var testBusiness = &config.BusinessConfig{
	Name:         "BR Hygiene",
	Phone:        "+91 60014 60018",
	Email:        "brhygiene23@gmail.com",
	ResponseTime: "24 hours",
}

var testCORS = config.CORSConfig{
	AllowedOrigins: []string{"*"},
	AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	AllowedHeaders: []string{"Content-Type", "Authorization"},
	MaxAge:         86400,
}

type countingDispatcher struct {
	mu sync.Mutex
	n  int
}

func (d *countingDispatcher) Dispatch(ctx context.Context, inq *domain.Inquiry) {
	d.mu.Lock()
	d.n++
	d.mu.Unlock()
}

func (d *countingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.n
}

type testServer struct {
	handler    http.Handler
	dispatcher *countingDispatcher
}

func newTestServer(t *testing.T, db *gorm.DB, issuer *auth.TokenIssuer) *testServer {
	t.Helper()
	dispatcher := &countingDispatcher{}
	contact := services.NewContactService(validation.New(), store.NewInquiryStore(db, time.Second), dispatcher, testBusiness, false)
	products := services.NewCatalogService(catalog.New(db, nil, time.Second))
	health := services.NewHealthService(db, "BR Hygiene API", "test")

	h := NewHandler(NewEndpoints(contact, products, health), Options{
		CORS:     testCORS,
		Business: testBusiness,
		Issuer:   issuer,
	})
	return &testServer{handler: h, dispatcher: dispatcher}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func postJSON(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/inquiries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

const janeJSON = `{"name":"Jane Doe","email":"jane@co.com","phone":"9876543210","subject":"Bulk Order","message":"Need 500 units monthly."}`

func TestSubmitJSON(t *testing.T) {
	db := dbtest.Open(t)
	s := newTestServer(t, db, nil)

	rec := s.do(postJSON(janeJSON))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	id, _ := body["inquiry_id"].(string)
	assert.True(t, strings.HasPrefix(id, domain.InquiryIDPrefix))
	assert.NotEmpty(t, body["message"])
	assert.Equal(t, 1, s.dispatcher.count())

	var stored domain.Inquiry
	require.NoError(t, db.First(&stored, "id = ?", id).Error)
	assert.Equal(t, "+91 98765 43210", stored.Phone)
}

func TestRequestIDFromHeader(t *testing.T) {
	db := dbtest.Open(t)
	contact := services.NewContactService(validation.New(), store.NewInquiryStore(db, time.Second), &countingDispatcher{}, testBusiness, false)
	e := NewEndpoints(contact, services.NewCatalogService(catalog.New(db, nil, time.Second)), services.NewHealthService(db, "BR Hygiene API", "test"))

	var seen string
	e.Use(func(next goa.Endpoint) goa.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			seen, _ = ctx.Value(middleware.RequestIDKey).(string)
			return next(ctx, req)
		}
	})
	h := NewHandler(e, Options{CORS: testCORS, Business: testBusiness})

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("X-Request-Id", "edge-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "edge-42", seen)
}

func TestSubmitForm(t *testing.T) {
	s := newTestServer(t, dbtest.Open(t), nil)

	form := url.Values{
		"name":    {"Ravi Patel"},
		"email":   {"ravi@example.in"},
		"phone":   {"+91 (912) 345-6789"},
		"subject": {"Sample Request"},
		"message": {"Please send samples of the lemon wipes."},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/inquiries", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := s.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["success"])
}

func TestSubmitValidationErrors(t *testing.T) {
	s := newTestServer(t, dbtest.Open(t), nil)

	rec := s.do(postJSON(`{"name":"Jane Doe","email":"jane@co.com","phone":"12345","subject":"Bulk Order"}`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, errs, 2)
	assert.Contains(t, errs["message"], "at least 10 characters")
	assert.Equal(t, "Enter a valid 10-digit Indian mobile number.", errs["phone"])
	assert.NotContains(t, body, "inquiry_id")
	assert.Zero(t, s.dispatcher.count())
}

func TestSubmitEmptyBodyListsEveryField(t *testing.T) {
	s := newTestServer(t, dbtest.Open(t), nil)

	rec := s.do(postJSON(""))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs, _ := decode(t, rec)["errors"].(map[string]any)
	assert.Len(t, errs, 5)
}

func TestSubmitMalformedBody(t *testing.T) {
	s := newTestServer(t, dbtest.Open(t), nil)

	tests := []struct {
		name        string
		contentType string
		body        string
		want        int
	}{
		{"broken json", "application/json", `{"name":`, http.StatusBadRequest},
		{"wrong type", "application/json", `{"name":42}`, http.StatusBadRequest},
		{"plain text", "text/plain", "hello", http.StatusUnsupportedMediaType},
		{"bad media type", "application/", "{}", http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/inquiries", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := s.do(req)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, false, decode(t, rec)["success"])
		})
	}
	assert.Zero(t, s.dispatcher.count())
}

func TestSubmitStorageFailure(t *testing.T) {
	db := dbtest.Open(t)
	s := newTestServer(t, db, nil)
	require.NoError(t, database.Close(db))

	rec := s.do(postJSON(janeJSON))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.NotContains(t, body, "inquiry_id")
	assert.Contains(t, body["error"], testBusiness.Email)
	assert.NotContains(t, rec.Body.String(), "closed")
	assert.Zero(t, s.dispatcher.count())
}

func TestInquiriesRejectsOtherMethods(t *testing.T) {
	s := newTestServer(t, dbtest.Open(t), nil)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			rec := s.do(httptest.NewRequest(method, "/api/inquiries", nil))
			require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "Method not allowed. Use POST.", body["error"])
		})
	}
}

func TestPreflightSkipsServices(t *testing.T) {
	s := newTestServer(t, dbtest.Open(t), nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/inquiries", nil)
	req.Header.Set("Origin", "https://brhygiene.in")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := s.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://brhygiene.in", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Empty(t, rec.Body.String())
	assert.Zero(t, s.dispatcher.count())
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	h := cors(http.NotFoundHandler(), config.CORSConfig{AllowedOrigins: []string{"https://brhygiene.in"}}, false)

	req := httptest.NewRequest(http.MethodPost, "/api/inquiries", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListProducts(t *testing.T) {
	s := newTestServer(t, dbtest.Open(t), nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/products", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var products []domain.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 3)
	assert.Equal(t, "Aloe Vera & Cucumber Wipe", products[0].Name)
	require.NotNil(t, products[2].Badge)
	assert.Equal(t, "OEM Available", *products[2].Badge)
}

func TestProductsRejectsOtherMethods(t *testing.T) {
	s := newTestServer(t, dbtest.Open(t), nil)

	rec := s.do(httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader("{}")))

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method not allowed. Use GET.", decode(t, rec)["error"])
}

func TestHealth(t *testing.T) {
	db := dbtest.Open(t)
	s := newTestServer(t, db, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	require.NoError(t, database.Close(db))
	rec = s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", decode(t, rec)["database"])
}

func TestMetricsRequiresToken(t *testing.T) {
	issuer := auth.NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	s := newTestServer(t, dbtest.Open(t), issuer)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := issuer.Issue("prometheus", auth.ScopeMetrics)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = s.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
