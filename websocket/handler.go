package websocket

import (
	"net/http"
	"strings"

	"github.com/CUknot/forum_backend/chat"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// TokenVerifier turns a bearer credential into a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Handler upgrades authenticated requests to chat connections.
type Handler struct {
	registry *chat.Registry
	tokens   TokenVerifier
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHandler builds the websocket endpoint. An empty allowedOrigins list accepts every origin.
func NewHandler(registry *chat.Registry, tokens TokenVerifier, allowedOrigins []string, log *zap.Logger) *Handler {
	return &Handler{
		registry: registry,
		tokens:   tokens,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// HandleConnection godoc
// @Summary Open a chat connection
// @Description Upgrades to a websocket carrying join-room, leave-room and send-message events.
// @Description The access token is read from the Authorization header or the token query parameter.
// @Tags chat
// @Param token query string false "Access token"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} map[string]string "Authentication error"
// @Router /ws [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	userID, err := h.tokens.Verify(bearerToken(c.Request))
	if err != nil {
		h.log.Debug("websocket handshake refused", zap.String("remote", c.ClientIP()), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication error"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	client := newClient(conn, h.registry.Open(userID), h.registry, h.log)

	h.log.Info("user connected",
		zap.String("user_id", userID),
		zap.String("session_id", client.session.ID),
		zap.String("remote", c.ClientIP()))

	go client.writePump()
	go client.readPump()
}

// bearerToken reads the credential from "Authorization: Bearer ..." or, for
// browsers that cannot set headers on websocket requests, the token query parameter.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}

	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			return func(r *http.Request) bool { return true }
		}
		if origin != "" {
			set[strings.ToLower(origin)] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients do not send an Origin header.
			return true
		}
		_, ok := set[strings.ToLower(strings.TrimRight(origin, "/"))]
		return ok
	}
}
