// Package remote talks to the profile service that holds the authoritative
// theme preference and the premium entitlement flag.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/palette/internal/theme"
)

// Config locates the profile service endpoints.
type Config struct {
	BaseURL         string        `mapstructure:"base_url"`
	PreferencesPath string        `mapstructure:"preferences_path"`
	EntitlementPath string        `mapstructure:"entitlement_path"`
	WatchPath       string        `mapstructure:"watch_path"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns the paths served by paletted.
func DefaultConfig() Config {
	return Config{
		BaseURL:         "http://localhost:8080",
		PreferencesPath: "/api/v1/theme/preferences",
		EntitlementPath: "/api/v1/subscription/premium",
		WatchPath:       "/api/v1/ws/theme",
		Timeout:         10 * time.Second,
	}
}

// StatusError is returned when the service answers with a 4xx or 5xx.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("profile API %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Temporary reports whether retrying the request might succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client is an HTTP client for the profile service.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Client. Empty paths fall back to DefaultConfig.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.PreferencesPath == "" {
		cfg.PreferencesPath = def.PreferencesPath
	}
	if cfg.EntitlementPath == "" {
		cfg.EntitlementPath = def.EntitlementPath
	}
	if cfg.WatchPath == "" {
		cfg.WatchPath = def.WatchPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Load fetches the stored preference. It returns nil, nil when the service
// has no preference for the credential.
func (c *Client) Load(ctx context.Context, credential string) (*theme.Preference, error) {
	var wire Preference
	err := c.doJSON(ctx, "load", http.MethodGet, c.cfg.PreferencesPath, credential, nil, &wire)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	pref, err := wire.Theme()
	if err != nil {
		return nil, fmt.Errorf("decode remote preference: %w", err)
	}
	return &pref, nil
}

// Save replaces the stored preference.
func (c *Client) Save(ctx context.Context, credential string, pref theme.Preference) error {
	return c.doJSON(ctx, "save", http.MethodPut, c.cfg.PreferencesPath, credential, FromTheme(pref), nil)
}

// Premium asks the service whether the credential holds a premium
// entitlement. The endpoint may answer with a bare JSON boolean or with
// {"is_premium": bool}.
func (c *Client) Premium(ctx context.Context, credential string) (bool, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, "premium", http.MethodGet, c.cfg.EntitlementPath, credential, nil, &raw); err != nil {
		return false, err
	}
	return decodePremium(raw)
}

func decodePremium(raw json.RawMessage) (bool, error) {
	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil {
		return flag, nil
	}
	var obj struct {
		IsPremium *bool `json:"is_premium"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false, fmt.Errorf("decode entitlement: %w", err)
	}
	if obj.IsPremium == nil {
		return false, errors.New("decode entitlement: missing is_premium")
	}
	return *obj.IsPremium, nil
}

// doJSON performs a JSON request with a bearer credential and decodes the
// response into result when non-nil.
func (c *Client) doJSON(ctx context.Context, op, method, path, credential string, body, result any) (err error) {
	defer func() { observe(op, err) }()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Debug("profile API error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
