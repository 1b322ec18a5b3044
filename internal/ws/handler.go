package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/HerbHall/palette/internal/auth"
	"github.com/HerbHall/palette/internal/event"
	"github.com/HerbHall/palette/internal/profile"
	"github.com/HerbHall/palette/internal/server"
)

// Handler serves the preference watch stream.
type Handler struct {
	hub         *Hub
	tokens      *auth.TokenService
	logger      *zap.Logger
	unsubscribe func()
}

var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a Handler and subscribes it to preference updates on bus.
func NewHandler(tokens *auth.TokenService, bus *event.Bus, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:    NewHub(logger),
		tokens: tokens,
		logger: logger,
	}
	if bus != nil {
		h.unsubscribe = bus.Subscribe(event.TopicPreferencesUpdated, h.onPreferencesUpdated)
	}
	return h
}

// RegisterRoutes registers the watch route on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/theme", h.handleThemeStream)
}

// Close detaches the handler from the bus.
func (h *Handler) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
}

// handleThemeStream upgrades to a websocket and streams update notices for
// the token's user. The token arrives as a query parameter because browser
// websocket APIs cannot set headers.
func (h *Handler) handleThemeStream(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		unauthorized(w, r, "missing token parameter")
		return
	}
	claims, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		unauthorized(w, r, "invalid or expired token")
		return
	}
	server.SetUser(r.Context(), claims.UserID)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin checks are replaced by the token check above.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		userID: claims.UserID,
		send:   make(chan Message, sendBuffer),
		logger: h.logger,
	}
	h.hub.Register(client)

	ctx, cancel := context.WithCancel(r.Context())
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		cancel()
		close(done)
	}()

	client.readPump(ctx)

	cancel()
	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

func unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	server.WriteProblem(w, server.Problem{
		Type:     server.ProblemTypeUnauthorized,
		Status:   http.StatusUnauthorized,
		Detail:   detail,
		Instance: r.URL.Path,
	})
}

func (h *Handler) onPreferencesUpdated(_ context.Context, e event.Event) {
	p, ok := e.Payload.(profile.UpdatedPayload)
	if !ok {
		return
	}
	h.hub.SendToUser(p.UserID, Message{
		Type:      MessagePreferencesUpdated,
		UserID:    p.UserID,
		Timestamp: e.Timestamp,
	})
}
