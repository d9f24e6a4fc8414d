package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-qris-payflow/internal/logger"
	"github.com/imrishuroy/go-qris-payflow/internal/payments"
	"github.com/imrishuroy/go-qris-payflow/internal/webhook"
	"github.com/imrishuroy/go-qris-payflow/internal/xendit"
)

const testToken = "test-callback-token"

// fakeXendit emulates the two QR code endpoints.
type fakeXendit struct {
	mu          sync.Mutex
	codes       map[string]map[string]any
	createCalls int
	reject      bool
}

func (f *fakeXendit) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	if f.reject {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":"API_VALIDATION_ERROR","message":"amount is invalid"}`))
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/qr_codes":
		f.createCalls++
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		id := fmt.Sprintf("qr_%d", f.createCalls)
		code := map[string]any{
			"id":           id,
			"reference_id": req["reference_id"],
			"type":         "DYNAMIC",
			"currency":     "IDR",
			"amount":       req["amount"],
			"status":       "ACTIVE",
			"qr_string":    "00020101021226660014ID.LINKAJA.WWW",
			"expires_at":   "2025-03-02T10:00:00.000Z",
			"created":      "2025-03-01T10:00:00.000Z",
		}
		f.codes[id] = code
		_ = json.NewEncoder(w).Encode(code)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/qr_codes/"):
		code, ok := f.codes[strings.TrimPrefix(r.URL.Path, "/qr_codes/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error_code":"DATA_NOT_FOUND"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(code)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeXendit) setStatus(id, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[id]["status"] = status
}

type testEnv struct {
	router  *gin.Engine
	store   *payments.MemoryStore
	xendit  *fakeXendit
	mirrors chan map[string]any
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fx := &fakeXendit{codes: map[string]map[string]any{}}
	xsrv := httptest.NewServer(fx)
	t.Cleanup(xsrv.Close)

	mirrors := make(chan map[string]any, 10)
	debug := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mirrors <- body
	}))
	t.Cleanup(debug.Close)

	log := logger.Discard()
	store := payments.NewMemoryStore()
	svc := payments.NewService(store, xendit.NewClient("xnd_development_test", xsrv.URL, time.Second), nil, log)

	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(log))
	RegisterRoutes(r, HandlerConfig{
		Service:      svc,
		WebhookToken: testToken,
		Forwarder:    webhook.NewForwarder(debug.URL, log),
		Logger:       log,
	})

	return &testEnv{router: r, store: store, xendit: fx, mirrors: mirrors}
}

func (e *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "OK")

	w = env.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["ok"])
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestPaymentLifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/payments", `{"method":"qris","amount":15000,"order_id":"ORD-1"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, true, created["ok"])
	assert.Equal(t, "ORD-1", created["reference_id"])
	assert.Equal(t, float64(15000), created["amount"])
	qris := created["qris"].(map[string]any)
	assert.Equal(t, "qr_1", qris["id"])
	assert.Equal(t, "ACTIVE", qris["status"])
	assert.Nil(t, qris["image_url"])
	assert.Equal(t, "/api/qris/qr_1", created["links"].(map[string]any)["status"])

	w = env.do(http.MethodGet, "/api/payments/ORD-1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode(t, w)
	assert.Equal(t, "PENDING", rec["status"])
	assert.Nil(t, rec["paid_at"])

	w = env.do(http.MethodPost, "/webhook/xendit", `{"reference_id":"ORD-1","status":"PAID"}`,
		map[string]string{webhook.TokenHeader: testToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	w = env.do(http.MethodGet, "/api/payments/ORD-1", "", nil)
	rec = decode(t, w)
	assert.Equal(t, "PAID", rec["status"])
	assert.NotNil(t, rec["paid_at"])
	assert.Equal(t, float64(15000), rec["amount"])
	assert.Equal(t, "qr_1", rec["qr_id"])

	select {
	case mirrored := <-env.mirrors:
		assert.Equal(t, "ORD-1", mirrored["body"].(map[string]any)["reference_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was not mirrored")
	}
}

func TestCreatePayment_DefaultReference(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/payments", `{"amount":1000}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ref, _ := decode(t, w)["reference_id"].(string)
	assert.True(t, strings.HasPrefix(ref, "ORD-"), ref)
}

func TestCreatePayment_Invalid(t *testing.T) {
	bodies := []string{
		`{"amount":999}`,
		`{"amount":10000001}`,
		`{"amount":15000.5}`,
		`{"amount":"15000"}`,
		`{"method":"ewallet","amount":15000}`,
		`{"method":"","amount":15000}`,
		`{}`,
		`not json`,
	}
	for _, body := range bodies {
		env := newTestEnv(t)
		w := env.do(http.MethodPost, "/api/payments", body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "validation_failed", decode(t, w)["error"], body)
		assert.Equal(t, 0, env.xendit.createCalls, "gateway called for %s", body)

		txs, _ := env.store.List(context.Background(), payments.MaxHistoryLimit)
		assert.Empty(t, txs, "store written for %s", body)
	}
}

func TestCreatePayment_GatewayRejects(t *testing.T) {
	env := newTestEnv(t)
	env.xendit.reject = true

	w := env.do(http.MethodPost, "/api/payments", `{"amount":15000,"order_id":"ORD-9"}`, nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.Equal(t, "xendit_error", body["error"])
	assert.Equal(t, float64(http.StatusBadRequest), body["status"])
	assert.Equal(t, "API_VALIDATION_ERROR", body["detail"].(map[string]any)["error_code"])

	w = env.do(http.MethodGet, "/api/payments/ORD-9", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPollQR(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/payments", `{"amount":20000,"order_id":"ORD-2"}`, nil)
	env.xendit.setStatus("qr_1", "SUCCEEDED")

	w := env.do(http.MethodGet, "/api/qris/qr_1", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "qr_1", body["id"])
	assert.Equal(t, "SUCCEEDED", body["status"])
	assert.Equal(t, "ORD-2", body["reference_id"])
	assert.Equal(t, "IDR", body["currency"])
	assert.Equal(t, "2025-03-01T10:00:00.000Z", body["created"])

	rec := decode(t, env.do(http.MethodGet, "/api/payments/ORD-2", "", nil))
	assert.Equal(t, "SUCCEEDED", rec["status"])
	assert.NotNil(t, rec["paid_at"])
}

func TestPollQR_Unknown(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/qris/qr_missing", "", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "DATA_NOT_FOUND", decode(t, w)["detail"].(map[string]any)["error_code"])
}

func TestGetPayment_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/payments/ORD-404", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["error"])
	assert.Equal(t, 0, env.xendit.createCalls)
}

func TestWebhook_RejectsBadToken(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/payments", `{"amount":15000,"order_id":"ORD-1"}`, nil)

	for _, headers := range []map[string]string{
		nil,
		{webhook.TokenHeader: "wrong"},
		{webhook.TokenHeader: testToken + "x"},
	} {
		w := env.do(http.MethodPost, "/webhook/xendit", `{"reference_id":"ORD-1","status":"PAID"}`, headers)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid_webhook_token", decode(t, w)["error"])
	}

	rec := decode(t, env.do(http.MethodGet, "/api/payments/ORD-1", "", nil))
	assert.Equal(t, "PENDING", rec["status"])
	assert.Nil(t, rec["paid_at"])
	assert.Nil(t, rec["raw_webhook"])
	assert.Empty(t, env.mirrors)
}

func TestWebhook_OversizedBodyRejected(t *testing.T) {
	env := newTestEnv(t)

	body := fmt.Sprintf(`{"reference_id":"ORD-BIG","status":"PAID","padding":%q}`,
		strings.Repeat("x", maxWebhookBody))
	w := env.do(http.MethodPost, "/webhook/xendit", body, map[string]string{webhook.TokenHeader: testToken})
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "payload_too_large", decode(t, w)["error"])

	w = env.do(http.MethodGet, "/api/payments/ORD-BIG", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, env.mirrors)
}

func TestWebhook_BodyAtLimitAccepted(t *testing.T) {
	env := newTestEnv(t)

	prefix := `{"reference_id":"ORD-MAX","status":"PAID","padding":"`
	suffix := `"}`
	body := prefix + strings.Repeat("x", maxWebhookBody-len(prefix)-len(suffix)) + suffix
	require.Len(t, body, maxWebhookBody)

	w := env.do(http.MethodPost, "/webhook/xendit", body, map[string]string{webhook.TokenHeader: testToken})
	require.Equal(t, http.StatusOK, w.Code)

	rec := decode(t, env.do(http.MethodGet, "/api/payments/ORD-MAX", "", nil))
	assert.Equal(t, "PAID", rec["status"])
}

func TestWebhook_NoReferenceIsNoop(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{`{"status":"PAID"}`, ``, `[1,2]`} {
		w := env.do(http.MethodPost, "/webhook/xendit", body, map[string]string{webhook.TokenHeader: testToken})
		assert.Equal(t, http.StatusOK, w.Code, body)
		assert.Equal(t, true, decode(t, w)["success"])
	}

	txs, _ := env.store.List(context.Background(), payments.MaxHistoryLimit)
	assert.Empty(t, txs)
}

func TestWebhook_NestedPayloadCreatesRecord(t *testing.T) {
	env := newTestEnv(t)

	body := `{"event":"qr.payment","data":{"reference_id":"ORD-77","status":"SUCCEEDED","qr_id":"qr_x"}}`
	w := env.do(http.MethodPost, "/webhook/xendit", body, map[string]string{webhook.TokenHeader: testToken})
	require.Equal(t, http.StatusOK, w.Code)

	rec := decode(t, env.do(http.MethodGet, "/api/payments/ORD-77", "", nil))
	assert.Equal(t, "SUCCEEDED", rec["status"])
	assert.NotNil(t, rec["paid_at"])
	assert.Equal(t, "qr.payment", rec["raw_webhook"].(map[string]any)["event"])
}

func TestWebhook_NumericReference(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/webhook/xendit", `{"reference_id":12345,"status":"PAID"}`,
		map[string]string{webhook.TokenHeader: testToken})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/payments/12345", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PAID", decode(t, w)["status"])
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	for _, ref := range []string{"ORD-1", "ORD-2", "ORD-3"} {
		w := env.do(http.MethodPost, "/api/payments", fmt.Sprintf(`{"amount":1000,"order_id":%q}`, ref), nil)
		require.Equal(t, http.StatusOK, w.Code)
		// created_at must differ between records
		time.Sleep(2 * time.Millisecond)
	}

	var got []map[string]any
	w := env.do(http.MethodGet, "/api/history?limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "ORD-3", got[0]["reference_id"])
	assert.Equal(t, "ORD-2", got[1]["reference_id"])

	w = env.do(http.MethodGet, "/api/history", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 3)

	w = env.do(http.MethodGet, "/api/history?limit=abc", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 3)

	w = env.do(http.MethodGet, "/api/history?limit=-1", "", nil)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}
