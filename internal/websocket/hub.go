package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rkany/pigeon/internal/crypto"
	"github.com/rkany/pigeon/pkg/logger"
	"github.com/rkany/pigeon/pkg/types"
)

// writeTimeout bounds a single live push so one dead peer cannot stall the
// sending request.
const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for self-hosting
	},
}

// endpoint is the write surface of a live connection the hub needs.
// *websocket.Conn satisfies it; tests substitute fakes.
type endpoint interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
}

// client is one live transport session.
type client struct {
	userID   string
	socketID string
	conn     endpoint

	// writeMu serializes writes; gorilla connections allow one writer at a
	// time.
	writeMu sync.Mutex
}

func (c *client) push(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub owns the live connections and the user->endpoint registry, and fans
// out new-message events to the recipient's endpoint.
type Hub struct {
	registry   *Registry
	jwtManager *crypto.JWTManager

	mu      sync.RWMutex
	clients map[string]*client // socketID -> client
}

// NewHub creates a hub with an empty registry. All users appear offline
// until they reconnect.
func NewHub(jwtManager *crypto.JWTManager) *Hub {
	return &Hub{
		registry:   NewRegistry(),
		jwtManager: jwtManager,
		clients:    make(map[string]*client),
	}
}

// Registry exposes the connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// HandleConnection upgrades an HTTP request to a live endpoint. The token is
// verified before the user is registered; the connection stays open until
// the peer goes away, then the registry entry is removed guarded against
// newer connects.
func (h *Hub) HandleConnection(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "missing token"})
		return
	}

	claims, err := h.jwtManager.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "invalid token"})
		return
	}
	userID := claims.UserID

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	socketID := uuid.NewString()
	h.attach(userID, socketID, conn)
	defer h.detach(userID, socketID)

	logger.Infof("Live endpoint connected: user=%s socket=%s", userID, socketID)

	// Read loop: the live endpoint is push-only, but reading drains control
	// frames and detects the close (graceful or abrupt).
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warnf("Live endpoint read error: user=%s: %v", userID, err)
			}
			break
		}
	}

	logger.Infof("Live endpoint disconnected: user=%s socket=%s", userID, socketID)
}

// Deliver pushes a decrypted message to the recipient's live endpoint, if
// any. An offline recipient or a failed push is logged and swallowed: the
// record is already durable and will be seen on the next history fetch.
func (h *Hub) Deliver(receiverID string, msg types.Message) {
	socketID, ok := h.registry.Lookup(receiverID)
	if !ok {
		logger.Debugf("Recipient %s offline, skipping live delivery", receiverID)
		return
	}

	h.mu.RLock()
	cl := h.clients[socketID]
	h.mu.RUnlock()
	if cl == nil {
		// Registry raced a disconnect; the persisted record is the
		// durability guarantee.
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		logger.Errorf("Failed to marshal message %s: %v", msg.ID, err)
		return
	}
	frame, err := json.Marshal(types.Event{Type: types.EventNewMessage, Data: data})
	if err != nil {
		logger.Errorf("Failed to marshal event for message %s: %v", msg.ID, err)
		return
	}

	if err := cl.push(frame); err != nil {
		logger.Warnf("Live delivery to user=%s socket=%s failed: %v", receiverID, socketID, err)
	}
}

func (h *Hub) attach(userID, socketID string, conn endpoint) {
	h.mu.Lock()
	h.clients[socketID] = &client{userID: userID, socketID: socketID, conn: conn}
	h.mu.Unlock()

	h.registry.Register(userID, socketID)
}

func (h *Hub) detach(userID, socketID string) {
	h.mu.Lock()
	delete(h.clients, socketID)
	h.mu.Unlock()

	h.registry.Unregister(userID, socketID)
}
