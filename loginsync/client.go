// Package loginsync calls the identity-sync backend that maps a verified
// wallet address to the stable user id of the service of record.
package loginsync

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/tidwall/gjson"
)

// SyncPath is the backend route the client posts to
const SyncPath = "/api/internal/login-user-sync"

const (
	TextCodeSyncTransport = "login_sync_transport"
	TextCodeSyncStatus    = "login_sync_status"
	TextCodeSyncSchema    = "login_sync_schema"

	maxResponseBytes = 1 << 20
)

// Config holds identity-sync client configuration.
type Config struct {
	// BaseURL is the API origin, e.g. https://api.sigle.io
	BaseURL string
	// Token is the static bearer token shared with the backend
	Token string

	HTTPClient *http.Client
}

// Client implements auth.IdentitySyncer over HTTP.
type Client struct {
	config     Config
	endpoint   string
	httpClient *http.Client
}

// New creates a new identity-sync client.
func New(cfg Config) *Client {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		config:     cfg,
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + SyncPath,
		httpClient: client,
	}
}

// Endpoint returns the full sync URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// SyncUser posts the address and returns the id from the response. Any
// transport error, non-2xx status or body without a non-empty string id is
// an error. Errors never carry the bearer token.
func (c *Client) SyncUser(ctx context.Context, address string) (string, error) {
	payload, err := json.Marshal(map[string]string{"address": address})
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to encode sync request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", syncError(TextCodeSyncTransport, "failed to build sync request", 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", syncError(TextCodeSyncTransport, "sync request failed", 0, scrub(err, c.config.Token))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", syncError(TextCodeSyncTransport, "failed to read sync response", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", syncError(TextCodeSyncStatus, "sync request returned non-2xx status", resp.StatusCode, nil)
	}

	return parseSyncResponse(body, resp.StatusCode)
}

func parseSyncResponse(body []byte, status int) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", syncError(TextCodeSyncSchema, "sync response is not valid JSON", status, nil)
	}

	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return "", syncError(TextCodeSyncSchema, "sync response is not an object", status, nil)
	}

	id := doc.Get("id")
	if id.Type != gjson.String || id.String() == "" {
		return "", syncError(TextCodeSyncSchema, "sync response has no id", status, nil)
	}

	return id.String(), nil
}

func syncError(code, msg string, status int, err error) *errors.Error {
	var e *errors.Error
	if err != nil {
		e = errors.Wrap(err, errors.CategoryOperation, msg)
	} else {
		e = errors.New(msg, errors.CategoryOperation)
	}
	e = e.WithTextCode(code)
	if status > 0 {
		e = e.WithMetadata(map[string]any{"status": status})
	}
	return e
}

// scrub removes the token from transport errors, which may echo request
// details.
func scrub(err error, token string) error {
	if err == nil || token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "[REDACTED]"), errors.CategoryOperation)
}
