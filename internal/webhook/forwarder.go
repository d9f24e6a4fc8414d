package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const forwardTimeout = 5 * time.Second

// Forwarder mirrors received callbacks to a debug endpoint such as
// webhook.site. Delivery is best effort: errors are logged and dropped.
type Forwarder struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
	nowFunc    func() time.Time
}

type mirrorBody struct {
	ReceivedAt time.Time      `json:"received_at"`
	Body       map[string]any `json:"body"`
}

// NewForwarder returns a Forwarder. An empty url makes Forward a no-op.
func NewForwarder(url string, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		url:        url,
		httpClient: &http.Client{Timeout: forwardTimeout},
		logger:     logger,
		nowFunc:    time.Now,
	}
}

// Enabled reports whether a debug endpoint is configured.
func (f *Forwarder) Enabled() bool {
	return f != nil && f.url != ""
}

// Forward posts {received_at, body} to the debug endpoint. The caller's
// cancellation is ignored so a client hang-up does not cut the mirror short.
func (f *Forwarder) Forward(ctx context.Context, body map[string]any) {
	if !f.Enabled() {
		return
	}

	data, err := json.Marshal(mirrorBody{ReceivedAt: f.nowFunc().UTC(), Body: body})
	if err != nil {
		f.logger.Debug("debug forward marshal failed", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), forwardTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(data))
	if err != nil {
		f.logger.Debug("debug forward request failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Debug("debug forward failed", "url", f.url, "error", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		f.logger.Debug("debug forward rejected", "url", f.url, "status", resp.StatusCode)
	}
}
