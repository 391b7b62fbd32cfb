package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	apperrors "github.com/kurihiro0119/editor-activity-metrics/internal/errors"
)

// Well-known event types accepted by the backend
const (
	EventMetricsBatch = "metrics_batch"
	EventSessionStart = "session_start"
	EventSessionEnd   = "session_end"
)

// Transport is the abstract backend delivery capability. The backend
// is expected to dedupe on batchId, so delivery is at-least-once.
type Transport interface {
	SendEvent(ctx context.Context, eventType string, payload interface{}) error
}

// eventEnvelope is the wire shape of one delivery
type eventEnvelope struct {
	EventType string      `json:"eventType"`
	Payload   interface{} `json:"payload"`
	SentAt    time.Time   `json:"sentAt"`
}

// httpTransport implements Transport against the metrics backend
type httpTransport struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPTransport creates a transport for the given endpoint. When a
// token is provided the underlying client authenticates with it.
func NewHTTPTransport(endpoint, token string) Transport {
	client := &http.Client{Timeout: 30 * time.Second}
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		client = oauth2.NewClient(context.Background(), ts)
		client.Timeout = 30 * time.Second
	}
	return &httpTransport{
		endpoint:   endpoint,
		httpClient: client,
	}
}

// SendEvent delivers one event envelope to the backend. Failures are
// classified: 429 becomes a rate-limit error carrying the reset time,
// 5xx and network errors are transient, other statuses are internal.
func (t *httpTransport) SendEvent(ctx context.Context, eventType string, payload interface{}) error {
	body, err := json.Marshal(eventEnvelope{
		EventType: eventType,
		Payload:   payload,
		SentAt:    time.Now(),
	})
	if err != nil {
		return apperrors.NewInternalError("failed to encode event", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"/api/v1/events", bytes.NewReader(body))
	if err != nil {
		return apperrors.NewInternalError("failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return apperrors.NewTransientError("backend unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.NewRateLimitedError("backend rate limit hit", resetTimeFromHeaders(resp))
	case resp.StatusCode >= 500:
		return apperrors.NewTransientError(fmt.Sprintf("backend error: %s", resp.Status), nil)
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return apperrors.NewInternalError(fmt.Sprintf("backend rejected event: %s - %s", resp.Status, string(respBody)), nil)
	}
}

// resetTimeFromHeaders derives the rate-limit reset time from
// Retry-After or X-RateLimit-Reset, defaulting to one minute out.
func resetTimeFromHeaders(resp *http.Response) time.Time {
	now := time.Now()
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return now.Add(time.Duration(secs) * time.Second)
		}
		if at, err := http.ParseTime(v); err == nil {
			return at
		}
	}
	if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(epoch, 0)
		}
	}
	return now.Add(time.Minute)
}
