package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

// Notification is a message pushed on the watch stream.
type Notification struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NotificationPreferencesUpdated is sent after the stored preference changes.
const NotificationPreferencesUpdated = "preferences.updated"

// WatchURL returns the websocket URL for the watch stream. The credential
// travels as a query parameter because browsers cannot set headers on
// websocket upgrades.
func (c *Client) WatchURL(credential string) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL + c.cfg.WatchPath)
	if err != nil {
		return "", fmt.Errorf("parse watch url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("token", credential)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Watch streams notifications to fn until ctx is done or the connection
// drops. It returns nil when ctx is canceled.
func (c *Client) Watch(ctx context.Context, credential string, fn func(Notification)) error {
	wsURL, err := c.WatchURL(credential)
	if err != nil {
		return err
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return &StatusError{Method: "GET", Path: c.cfg.WatchPath, StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("dial watch stream: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	c.logger.Debug("watch stream connected", zap.String("path", c.cfg.WatchPath))

	for {
		var n Notification
		if err := wsjson.Read(ctx, conn, &n); err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("read watch stream: %w", err)
		}
		fn(n)
	}
}
