// Package xendit is a minimal client for the Xendit QR code API.
package xendit

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/imrishuroy/go-qris-payflow/internal/apperrors"
)

const (
	// DefaultBaseURL is the production API host.
	DefaultBaseURL = "https://api.xendit.co"
	// DefaultTimeout bounds every gateway call.
	DefaultTimeout = 15 * time.Second

	maxResponseSize = 1 << 20

	qrTypeDynamic = "DYNAMIC"
	currencyIDR   = "IDR"
)

// QRCode is the QR code resource as returned by Xendit. Timestamps are kept
// as the gateway formats them.
type QRCode struct {
	ID          string  `json:"id"`
	ReferenceID string  `json:"reference_id"`
	Type        string  `json:"type,omitempty"`
	Currency    string  `json:"currency"`
	Amount      float64 `json:"amount"`
	Status      string  `json:"status"`
	QRString    string  `json:"qr_string"`
	ImageURL    string  `json:"image_url,omitempty"`
	ExpiresAt   *string `json:"expires_at"`
	Created     *string `json:"created"`
	Updated     *string `json:"updated,omitempty"`
}

type createQRCodeRequest struct {
	ReferenceID string `json:"reference_id"`
	Type        string `json:"type"`
	Currency    string `json:"currency"`
	Amount      int64  `json:"amount"`
}

// Client talks to the Xendit API using HTTP Basic auth with the secret key.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

// NewClient returns a Client. The Authorization header is computed once.
func NewClient(secretKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(secretKey+":")),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateQRPayment creates a dynamic IDR QR code for amount.
func (c *Client) CreateQRPayment(ctx context.Context, referenceID string, amount int64) (*QRCode, error) {
	body := createQRCodeRequest{
		ReferenceID: referenceID,
		Type:        qrTypeDynamic,
		Currency:    currencyIDR,
		Amount:      amount,
	}
	var qr QRCode
	if err := c.do(ctx, http.MethodPost, "/qr_codes", body, &qr); err != nil {
		return nil, fmt.Errorf("create qr code %s: %w", referenceID, err)
	}
	return &qr, nil
}

// GetQRPaymentStatus fetches a previously created QR code.
func (c *Client) GetQRPaymentStatus(ctx context.Context, qrID string) (*QRCode, error) {
	var qr QRCode
	if err := c.do(ctx, http.MethodGet, "/qr_codes/"+url.PathEscape(qrID), nil, &qr); err != nil {
		return nil, fmt.Errorf("get qr code %s: %w", qrID, err)
	}
	return &qr, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewGatewayError(0, nil, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return apperrors.NewGatewayError(resp.StatusCode, nil, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.NewGatewayError(resp.StatusCode, data, nil)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.NewGatewayError(resp.StatusCode, data, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
