package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kurihiro0119/editor-activity-metrics/internal/domain"
	"github.com/kurihiro0119/editor-activity-metrics/internal/syncer"
)

// Client is the API client for the editor-activity-metrics daemon
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Status is the daemon's combined status as served by the control API
type Status struct {
	Active          bool                 `json:"active"`
	Paused          bool                 `json:"paused"`
	LastActivity    time.Time            `json:"lastActivity"`
	TypingSpeed     float64              `json:"typingSpeed"`
	SessionDuration int64                `json:"sessionDuration"`
	Sync            syncer.Status        `json:"sync"`
	Pomodoro        domain.PomodoroState `json:"pomodoro"`
}

// GetStatus retrieves the daemon status
func (c *Client) GetStatus() (*Status, error) {
	var response struct {
		Data *Status `json:"data"`
	}
	if err := c.get("/api/v1/status", &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetMetrics retrieves the current metrics snapshot
func (c *Client) GetMetrics() (*domain.MetricsSnapshot, error) {
	var response struct {
		Data *domain.MetricsSnapshot `json:"data"`
	}
	if err := c.get("/api/v1/metrics", &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// SendEvent posts one activity event to the daemon
func (c *Client) SendEvent(event domain.ActivityEvent) error {
	return c.post("/api/v1/events", event, nil)
}

// ForceSync triggers an immediate forced sync
func (c *Client) ForceSync() (*syncer.Status, error) {
	var response struct {
		Data *syncer.Status `json:"data"`
	}
	if err := c.post("/api/v1/sync", nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// ListReminders retrieves all reminder definitions
func (c *Client) ListReminders() ([]domain.ReminderDefinition, error) {
	var response struct {
		Data []domain.ReminderDefinition `json:"data"`
	}
	if err := c.get("/api/v1/reminders", &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// CreateReminder registers a custom reminder and returns it with its
// assigned id.
func (c *Client) CreateReminder(def domain.ReminderDefinition) (*domain.ReminderDefinition, error) {
	var response struct {
		Data *domain.ReminderDefinition `json:"data"`
	}
	if err := c.post("/api/v1/reminders", def, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// DeleteReminder removes a custom reminder
func (c *Client) DeleteReminder(id string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/api/v1/reminders/"+id, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// TogglePomodoro starts or stops the pomodoro timer
func (c *Client) TogglePomodoro() (*domain.PomodoroState, error) {
	var response struct {
		Data *domain.PomodoroState `json:"data"`
	}
	if err := c.post("/api/v1/pomodoro/toggle", nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// HealthCheck checks if the daemon is healthy
func (c *Client) HealthCheck() error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.get("/health", &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

func (c *Client) get(path string, result interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, result)
}

func (c *Client) post(path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}
	if result == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(result)
}
