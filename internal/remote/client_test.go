package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/HerbHall/palette/internal/testutil"
	"github.com/HerbHall/palette/internal/theme"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL}, zap.NewNop())
}

func TestLoad_DecodesWirePreference(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/theme/preferences" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q, want Bearer tok", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("X-Request-ID not set")
		}
		_, _ = io.WriteString(w, `{"color_mode":"light","theme_type":"preset","preset_id":"brachypelma"}`)
	}))

	got, err := c.Load(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := testutil.NewPreference(testutil.WithColorMode(theme.Light), testutil.WithPreset("brachypelma"))
	if got == nil || !got.Equal(want) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestLoad_NotFoundIsAbsent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "none", http.StatusNotFound)
	}))

	got, err := c.Load(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Errorf("Load() = %+v, want nil", got)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: "no", wantStatus: http.StatusUnauthorized},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantStatus: http.StatusInternalServerError},
		{name: "bad color mode", status: http.StatusOK, body: `{"color_mode":"sepia","theme_type":"default"}`},
		{name: "partial custom colors", status: http.StatusOK, body: `{"color_mode":"dark","theme_type":"custom","custom_primary":"#fff"}`},
		{name: "invalid json", status: http.StatusOK, body: `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))

			got, err := c.Load(context.Background(), "tok")
			if err == nil {
				t.Fatalf("Load() = %+v, want error", got)
			}
			var se *StatusError
			if tt.wantStatus != 0 {
				if !errors.As(err, &se) || se.StatusCode != tt.wantStatus {
					t.Errorf("error = %v, want StatusError %d", err, tt.wantStatus)
				}
			} else if errors.As(err, &se) {
				t.Errorf("error = %v, want decode error", err)
			}
		})
	}
}

func TestSave_SendsWireShape(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	pref := testutil.NewPreference(testutil.WithCustom("#111111", "#222222", "#333333"))
	if err := c.Save(context.Background(), "tok", pref); err != nil {
		t.Fatalf("Save: %v", err)
	}

	want := map[string]any{
		"color_mode":       "dark",
		"theme_type":       "custom",
		"custom_primary":   "#111111",
		"custom_secondary": "#222222",
		"custom_accent":    "#333333",
	}
	if len(got) != len(want) {
		t.Errorf("body = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("body[%q] = %v, want %v", k, got[k], v)
		}
	}
	if _, ok := got["preset_id"]; ok {
		t.Error("preset_id present for custom palette")
	}
}

func TestSave_ErrorIsStatusError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "premium required", http.StatusForbidden)
	}))

	err := c.Save(context.Background(), "tok", testutil.NewPreference())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Save error = %v, want StatusError", err)
	}
	if se.StatusCode != http.StatusForbidden || se.Method != http.MethodPut {
		t.Errorf("StatusError = %+v", se)
	}
	if se.Temporary() {
		t.Error("403 reported as temporary")
	}
}

func TestPremium_Decoding(t *testing.T) {
	tests := []struct {
		body    string
		want    bool
		wantErr bool
	}{
		{body: `true`, want: true},
		{body: `false`, want: false},
		{body: `{"is_premium":true}`, want: true},
		{body: `{"is_premium":false}`, want: false},
		{body: `{"premium":true}`, wantErr: true},
		{body: `"yes"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v1/subscription/premium" {
					t.Errorf("path = %s", r.URL.Path)
				}
				_, _ = io.WriteString(w, tt.body)
			}))

			got, err := c.Premium(context.Background(), "tok")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Premium() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Premium() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWireRoundTrip(t *testing.T) {
	prefs := []theme.Preference{
		testutil.NewPreference(),
		testutil.NewPreference(testutil.WithColorMode(theme.Light), testutil.WithPreset("gbb")),
		testutil.NewPreference(testutil.WithPreset("gbb"), testutil.WithRetainedCustom("#111111", "#222222", "#333333")),
		testutil.NewPreference(testutil.WithCustom("#abc", "#def", "#012")),
	}
	for _, want := range prefs {
		got, err := FromTheme(want).Theme()
		if err != nil {
			t.Fatalf("Theme(%+v): %v", want, err)
		}
		if !got.Equal(want) {
			t.Errorf("round trip = %+v, want %+v", got, want)
		}
	}
}

func TestWatchURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{base: "http://example.com", want: "ws://example.com/api/v1/ws/theme?token=abc"},
		{base: "https://example.com/", want: "wss://example.com/api/v1/ws/theme?token=abc"},
	}
	for _, tt := range tests {
		c := NewClient(Config{BaseURL: tt.base}, nil)
		got, err := c.WatchURL("abc")
		if err != nil {
			t.Fatalf("WatchURL(%q): %v", tt.base, err)
		}
		if got != tt.want {
			t.Errorf("WatchURL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestWatch_DeliversNotifications(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "tok" {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		_ = wsjson.Write(r.Context(), conn, Notification{Type: NotificationPreferencesUpdated, UserID: "u1"})
		_ = wsjson.Write(r.Context(), conn, Notification{Type: NotificationPreferencesUpdated, UserID: "u1"})
		conn.Close(websocket.StatusNormalClosure, "done")
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []Notification
	if err := c.Watch(ctx, "tok", func(n Notification) { got = append(got, n) }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("received %d notifications, want 2", len(got))
	}
	if got[0].Type != NotificationPreferencesUpdated || got[0].UserID != "u1" {
		t.Errorf("notification = %+v", got[0])
	}
}

func TestWatch_Unauthorized(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))

	err := c.Watch(context.Background(), "nope", func(Notification) {})
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Errorf("Watch error = %v, want 401 StatusError", err)
	}
}
