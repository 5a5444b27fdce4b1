package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"blackjack-lite/apps/server/internal/auth"
	"blackjack-lite/apps/server/internal/ledger"
	"blackjack-lite/apps/server/internal/lobby"
	"blackjack-lite/apps/server/internal/room"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: Restrict in production
	},
}

// ClientMessage is a single JSON action from the client.
type ClientMessage struct {
	Type    string `json:"type"`
	RoundID string `json:"round_id,omitempty"`
	Amount  int64  `json:"amount,omitempty"`
}

type ackMessage struct {
	Type    string `json:"type"`
	Action  string `json:"action"`
	RoundID string `json:"round_id,omitempty"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Action  string `json:"action,omitempty"`
	Message string `json:"message"`
}

type welcomeMessage struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type balanceMessage struct {
	Type    string `json:"type"`
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

// Connection represents a WebSocket client connection
type Connection struct {
	ID       string
	UserID   string
	Conn     *websocket.Conn
	Send     chan []byte
	Gateway  *Gateway
	LastPing time.Time

	// Current room association
	RoundID string
	Room    *room.Room
}

// Gateway manages WebSocket connections
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	userConns   map[string]*Connection // userID -> connection
	lobby       *lobby.Lobby
	auth        auth.Service
	ledger      ledger.Service

	defaultBalance int64
}

// New creates a new Gateway instance
func New(lby *lobby.Lobby, authService auth.Service, ledgerService ledger.Service, defaultBalance int64) *Gateway {
	return &Gateway{
		connections:    make(map[string]*Connection),
		userConns:      make(map[string]*Connection),
		lobby:          lby,
		auth:           authService,
		ledger:         ledgerService,
		defaultBalance: defaultBalance,
	}
}

// HandleWebSocket handles WebSocket upgrade and connection. The client
// identifies itself with a session token in the query string; without
// one it gets a guest account.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	username, err := g.resolveUser(r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade error: %v", err)
		return
	}

	c := &Connection{
		ID:       uuid.NewString(),
		UserID:   username,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Gateway:  g,
		LastPing: time.Now(),
	}

	g.mu.Lock()
	// One live connection per user; the newer one wins the map entry.
	g.connections[c.ID] = c
	g.userConns[username] = c
	total := len(g.connections)
	g.mu.Unlock()

	log.Printf("[Gateway] Client connected: %s (user=%s), total: %d", c.ID, username, total)

	go c.readPump()
	go c.writePump()

	c.sendJSON(welcomeMessage{Type: "welcome", UserID: username, Username: username})
}

func (g *Gateway) resolveUser(r *http.Request) (string, error) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token != "" {
		if _, username, ok := g.auth.ResolveSession(token); ok {
			return username, nil
		}
	}
	_, username, _, err := g.auth.Guest()
	return username, err
}

func (c *Connection) readPump() {
	defer func() {
		c.Gateway.removeConnection(c)
		c.Conn.Close()
		c.notifyRoomConnLost()
	}()

	c.Conn.SetReadLimit(65536)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		c.LastPing = time.Now()
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] Read error: %v", err)
			}
			break
		}

		if messageType == websocket.TextMessage {
			c.handleMessage(message)
		}
	}
}

func (c *Connection) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("[Gateway] Failed to decode message from %s: %v", c.UserID, err)
		c.sendError("", "invalid message format")
		return
	}

	log.Printf("[Gateway] Received from user %s: type=%s round=%s", c.UserID, msg.Type, msg.RoundID)

	switch msg.Type {
	case "create_game":
		c.handleCreateGame()
	case "join_game", "reconnect":
		c.handleJoinGame(msg.Type, msg.RoundID)
	case "leave_game":
		c.handleLeaveGame()
	case "start_round":
		c.submitRoomEvent(msg.Type, room.Event{Type: room.EventStartRound, UserID: c.UserID})
	case "place_bet":
		c.submitRoomEvent(msg.Type, room.Event{Type: room.EventPlaceBet, UserID: c.UserID, Amount: msg.Amount})
	case "hit":
		c.submitRoomEvent(msg.Type, room.Event{Type: room.EventHit, UserID: c.UserID})
	case "stand":
		c.submitRoomEvent(msg.Type, room.Event{Type: room.EventStand, UserID: c.UserID})
	case "double_down":
		c.submitRoomEvent(msg.Type, room.Event{Type: room.EventDoubleDown, UserID: c.UserID})
	case "split":
		c.submitRoomEvent(msg.Type, room.Event{Type: room.EventSplit, UserID: c.UserID})
	case "get_game":
		c.handleGetGame(msg.RoundID)
	case "get_balance":
		c.handleGetBalance()
	default:
		log.Printf("[Gateway] Unknown message type %q from %s", msg.Type, c.UserID)
		c.sendError(msg.Type, "unknown message type")
	}
}

func (c *Connection) handleCreateGame() {
	r, err := c.Gateway.lobby.CreateRoom(c.Gateway.broadcastToUser)
	if err != nil {
		c.sendError("create_game", err.Error())
		return
	}
	c.attachRoom(r)
	if err := r.SubmitEvent(room.Event{Type: room.EventJoin, UserID: c.UserID}); err != nil {
		c.sendError("create_game", err.Error())
		return
	}
	c.sendJSON(ackMessage{Type: "ack", Action: "create_game", RoundID: r.ID})
	log.Printf("[Gateway] User %s created room %s", c.UserID, r.ID)
}

func (c *Connection) handleJoinGame(action, roundID string) {
	roundID = strings.ToUpper(strings.TrimSpace(roundID))
	if roundID == "" {
		c.sendError(action, "missing round_id")
		return
	}
	r := c.Gateway.lobby.GetRoom(roundID, c.Gateway.broadcastToUser)
	if r == nil {
		c.sendError(action, "game not found")
		return
	}
	// A reconnect reclaims the user's seat if it is still held; the room
	// falls back to a fresh join when the seat is gone.
	eventType := room.EventJoin
	if action == "reconnect" {
		eventType = room.EventConnResume
	}
	if err := r.SubmitEvent(room.Event{Type: eventType, UserID: c.UserID}); err != nil {
		c.sendError(action, err.Error())
		return
	}
	c.attachRoom(r)
	c.sendJSON(ackMessage{Type: "ack", Action: action, RoundID: r.ID})
	log.Printf("[Gateway] User %s joined room %s", c.UserID, r.ID)
}

func (c *Connection) handleLeaveGame() {
	if c.Room == nil {
		return
	}
	if err := c.Room.SubmitEvent(room.Event{Type: room.EventLeave, UserID: c.UserID}); err != nil {
		c.sendError("leave_game", err.Error())
		return
	}
	roundID := c.RoundID
	c.Room = nil
	c.RoundID = ""
	c.sendJSON(ackMessage{Type: "ack", Action: "leave_game", RoundID: roundID})
}

func (c *Connection) handleGetGame(roundID string) {
	r := c.Room
	if roundID != "" {
		r = c.Gateway.lobby.GetRoom(strings.ToUpper(strings.TrimSpace(roundID)), c.Gateway.broadcastToUser)
	}
	if r == nil {
		c.sendError("get_game", "game not found")
		return
	}
	snap := r.Snapshot()
	c.sendJSON(struct {
		Type    string      `json:"type"`
		RoundID string      `json:"round_id"`
		Game    interface{} `json:"game"`
	}{Type: "game_state", RoundID: r.ID, Game: snap})
}

func (c *Connection) handleGetBalance() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	balance, err := c.Gateway.ledger.Balance(ctx, c.UserID, c.Gateway.defaultBalance)
	if err != nil {
		c.sendError("get_balance", err.Error())
		return
	}
	c.sendJSON(balanceMessage{Type: "balance", UserID: c.UserID, Balance: balance})
}

func (c *Connection) submitRoomEvent(action string, e room.Event) {
	if c.Room == nil {
		c.sendError(action, "not in a game")
		return
	}
	if err := c.Room.SubmitEvent(e); err != nil {
		c.sendError(action, err.Error())
		return
	}
	c.sendJSON(ackMessage{Type: "ack", Action: action, RoundID: c.RoundID})
}

func (c *Connection) attachRoom(r *room.Room) {
	c.Room = r
	c.RoundID = r.ID
}

func (c *Connection) notifyRoomConnLost() {
	if c.Room == nil {
		return
	}
	if err := c.Room.SubmitEvent(room.Event{Type: room.EventConnLost, UserID: c.UserID}); err != nil {
		log.Printf("[Gateway] conn lost notify failed for %s: %v", c.UserID, err)
	}
}

func (c *Connection) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[Gateway] encode failed: %v", err)
		return
	}
	select {
	case c.Send <- data:
	default:
		// Drop if buffer full
	}
}

func (c *Connection) sendError(action, msg string) {
	c.sendJSON(errorMessage{Type: "error", Action: action, Message: msg})
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.connections, c.ID)
	if g.userConns[c.UserID] == c {
		delete(g.userConns, c.UserID)
	}
	log.Printf("[Gateway] Client disconnected: %s, total: %d", c.ID, len(g.connections))
}

// broadcastToUser sends a message to a specific user
func (g *Gateway) broadcastToUser(userID string, data []byte) {
	g.mu.RLock()
	c := g.userConns[userID]
	g.mu.RUnlock()

	if c != nil {
		select {
		case c.Send <- data:
		default:
			// Drop if buffer full
		}
	}
}

// Broadcast sends a message to all connections
func (g *Gateway) Broadcast(message []byte) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.connections {
		select {
		case c.Send <- message:
		default:
			// Drop message if buffer full
		}
	}
}
