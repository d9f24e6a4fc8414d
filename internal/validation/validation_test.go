package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-qris-payflow/internal/apperrors"
)

func TestCreatePaymentRequest_Valid(t *testing.T) {
	v := New()

	for _, req := range []CreatePaymentRequest{
		{Method: strPtr("qris"), Amount: 15000, OrderID: "ORD-1"},
		{Amount: 1000},
		{Amount: 10_000_000, WebhookURL: "https://merchant.example/hook"},
	} {
		if err := v.Struct(req); err != nil {
			t.Fatalf("expected valid %+v, got error: %v", req, err)
		}
	}
}

func TestCreatePaymentRequest_InvalidAmount(t *testing.T) {
	v := New()

	for _, amount := range []float64{0, 999, 10_000_001, 1500.5, -1000} {
		if err := v.Struct(CreatePaymentRequest{Amount: amount}); err == nil {
			t.Fatalf("expected validation error for amount %v, got nil", amount)
		}
	}
}

func TestCreatePaymentRequest_UnsupportedMethod(t *testing.T) {
	v := New()

	for _, method := range []string{"ovo", "", "QRIS"} {
		if err := v.Struct(CreatePaymentRequest{Method: strPtr(method), Amount: 15000}); err == nil {
			t.Fatalf("expected validation error for method %q, got nil", method)
		}
	}
}

func strPtr(s string) *string { return &s }

func bindRequest(t *testing.T, body string) (CreatePaymentRequest, error) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/payments", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req CreatePaymentRequest
	err := BindAndValidate(c, &req, New())
	return req, err
}

func TestBindAndValidate(t *testing.T) {
	req, err := bindRequest(t, `{"method":"qris","amount":25000,"order_id":"ORD-7"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Amount != 25000 || req.OrderID != "ORD-7" {
		t.Fatalf("unexpected bind: %+v", req)
	}

	_, err = bindRequest(t, `{"amount":"abc"}`)
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("expected validation error for bad json, got %v", err)
	}

	_, err = bindRequest(t, `{"amount":1500.25}`)
	appErr := apperrors.GetAppError(err)
	if appErr == nil || appErr.Fields["amount"] != "must be a whole number" {
		t.Fatalf("expected integer field error, got %v", err)
	}

	_, err = bindRequest(t, `{"method":"va","amount":15000}`)
	appErr = apperrors.GetAppError(err)
	if appErr == nil || appErr.Fields["method"] != "only 'qris' is supported" {
		t.Fatalf("expected method field error, got %v", err)
	}

	_, err = bindRequest(t, `{"method":"","amount":15000}`)
	appErr = apperrors.GetAppError(err)
	if appErr == nil || appErr.Fields["method"] != "only 'qris' is supported" {
		t.Fatalf("expected explicit empty method to be rejected, got %v", err)
	}

	req, err = bindRequest(t, `{"amount":15000}`)
	if err != nil || req.Method != nil {
		t.Fatalf("expected absent method to pass as nil, got %v %v", req.Method, err)
	}
}
