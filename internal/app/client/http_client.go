package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/exp/slog"

	"fieldsync/internal/app/client/config"
	"fieldsync/internal/domain/sync"
)

// httpClient implements sync.Transport over the reference server's HTTP API.
// The user and device identity travels as request headers on every call.
type httpClient struct {
	client    *http.Client
	config    *config.Config
	log       *slog.Logger
	baseURL   string
	identity  sync.Identity
	userAgent string
}

func NewHTTPClient(cfg *config.Config, identity sync.Identity, log *slog.Logger) (*httpClient, error) {
	if identity.UserID == "" || identity.DeviceID == "" {
		return nil, sync.ErrMissingIdentity
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
	}

	return &httpClient{
		client:    client,
		config:    cfg,
		log:       log,
		baseURL:   scheme + cfg.ServerAddress,
		identity:  identity,
		userAgent: "FieldSync-Client/1.0",
	}, nil
}

// Health probes the server health endpoint. Any transport error or non-200
// status counts as unreachable.
func (h *httpClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return nil
}

func (h *httpClient) Upsert(ctx context.Context, req sync.UpsertRequest) (*sync.UpsertResponse, error) {
	resp, err := h.doRequest(ctx, http.MethodPost, "/api/v1/sync/records", req)
	if err != nil {
		return nil, err
	}

	var out sync.UpsertResponse
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *httpClient) Upload(ctx context.Context, req sync.UploadRequest) (*sync.UploadResponse, error) {
	resp, err := h.doRequest(ctx, http.MethodPost, "/api/v1/sync/attachments", req)
	if err != nil {
		return nil, err
	}

	var out sync.UploadResponse
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *httpClient) Changes(ctx context.Context, req sync.ChangesRequest) (*sync.ChangesResponse, error) {
	resp, err := h.doRequest(ctx, http.MethodPost, "/api/v1/sync/changes", req)
	if err != nil {
		return nil, err
	}

	var out sync.ChangesResponse
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ServerStatus fetches the remote store's view of this user's data. Used by
// the status command, not by the sync cycle itself.
func (h *httpClient) ServerStatus(ctx context.Context) (*sync.ServerStatus, error) {
	resp, err := h.doRequest(ctx, http.MethodGet, "/api/v1/sync/status", nil)
	if err != nil {
		return nil, err
	}

	var out sync.GetStatusResponse
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (h *httpClient) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("X-User-Id", h.identity.UserID)
	req.Header.Set("X-Device-Id", h.identity.DeviceID)

	h.log.Debug("sending request",
		"method", method,
		"url", req.URL.String(),
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

func (h *httpClient) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	h.log.Debug("received response",
		"status", resp.StatusCode,
	)

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("server error: %s", errResp.Error)
		}
		return fmt.Errorf("server error: status %d", resp.StatusCode)
	}

	// The server also reports rejections inside a 200 body as
	// {"status":"Error","error":...}. Those are failures, not results.
	var envelope struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Status == "Error" {
		if envelope.Error != "" {
			return fmt.Errorf("server rejected request: %s", envelope.Error)
		}
		return fmt.Errorf("server rejected request")
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

var _ sync.Transport = (*httpClient)(nil)
