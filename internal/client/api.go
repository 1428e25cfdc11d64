// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/contracthub/internal/models"
)

// maxResponseBytes caps response bodies read by the client.
const maxResponseBytes = 4 << 20

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Message)
}

// LoginResult is the data of a successful login.
type LoginResult struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// envelope mirrors the server's APIResponse.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// API is an HTTP client for the endpoints the notification cache consumes.
// It is safe for concurrent use.
type API struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// NewAPI creates a client for baseURL. A nil httpClient uses a client with a
// 15s timeout.
func NewAPI(baseURL string, httpClient *http.Client) (*API, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &API{baseURL: u, httpClient: httpClient}, nil
}

// BaseURL returns the server root.
func (a *API) BaseURL() *url.URL {
	u := *a.baseURL
	return &u
}

// Token returns the bearer token set by Login or SetToken.
func (a *API) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// SetToken replaces the bearer token.
func (a *API) SetToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

// Login exchanges credentials for a token and keeps it for later calls.
func (a *API) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var result LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := a.doEnvelope(ctx, http.MethodPost, "/api/auth/login", nil, body, &result); err != nil {
		return nil, err
	}
	a.SetToken(result.Token)
	return &result, nil
}

// Session returns the user the current token belongs to.
func (a *API) Session(ctx context.Context) (*models.User, error) {
	var data struct {
		User models.User `json:"user"`
	}
	if err := a.doEnvelope(ctx, http.MethodGet, "/api/auth/session", nil, nil, &data); err != nil {
		return nil, err
	}
	return &data.User, nil
}

// FetchNotifications returns the notification snapshot of the current user.
func (a *API) FetchNotifications(ctx context.Context) (*models.NotificationFeed, error) {
	var feed models.NotificationFeed
	if err := a.do(ctx, http.MethodGet, "/api/notifications/all", nil, nil, &feed); err != nil {
		return nil, err
	}
	if feed.Notifications == nil {
		feed.Notifications = []models.NotificationWithContract{}
	}
	return &feed, nil
}

// MarkRead marks the given notifications of the current user as read.
func (a *API) MarkRead(ctx context.Context, ids []string) error {
	var resp struct {
		Success bool `json:"success"`
	}
	if err := a.do(ctx, http.MethodPatch, "/api/notifications/read", nil,
		map[string][]string{"notificationIds": ids}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &APIError{StatusCode: http.StatusOK, Message: "mark read not acknowledged"}
	}
	return nil
}

// UserStatuses returns the statuses userID is subscribed to.
func (a *API) UserStatuses(ctx context.Context, userID string) (models.StatusSet, error) {
	var data struct {
		Data models.StatusSet `json:"data"`
	}
	q := url.Values{"id": []string{userID}}
	if err := a.doEnvelope(ctx, http.MethodGet, "/api/user/status", q, nil, &data); err != nil {
		return nil, err
	}
	return data.Data.Normalize(), nil
}

// doEnvelope performs a request against an enveloped endpoint and decodes data into out.
func (a *API) doEnvelope(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var env envelope
	if err := a.do(ctx, method, path, query, body, &env); err != nil {
		return err
	}
	if !env.Success {
		return &APIError{StatusCode: http.StatusOK, Message: "unsuccessful response"}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", path, err)
	}
	return nil
}

func (a *API) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := a.BaseURL()
	u.Path += path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := a.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// decodeAPIError understands both the envelope error and the bare
// {"error": "..."} shape of the notification endpoints.
func decodeAPIError(status int, raw []byte) error {
	apiErr := &APIError{StatusCode: status, Message: http.StatusText(status)}

	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		return apiErr
	}
	var bare struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &bare); err == nil && bare.Error != "" {
		apiErr.Message = bare.Error
	}
	return apiErr
}
