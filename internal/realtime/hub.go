// Package realtime pushes order updates to browsers over websockets. Clients join a room per
// order and receive every update published for it while connected; nothing is replayed.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"crackers-backend/internal/logger"
	"crackers-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	EventJoinOrder   = "join-order"
	EventLeaveOrder  = "leave-order"
	EventOrderUpdate = "orderStatusUpdate"

	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxFrame   = 1024
)

type inbound struct {
	Event   string `json:"event"`
	OrderID string `json:"orderId"`
}

type OrderUpdate struct {
	OrderID       string               `json:"orderId"`
	OrderNumber   string               `json:"orderNumber"`
	Status        models.OrderStatus   `json:"status"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	Note          string               `json:"note,omitempty"`
	Timestamp     time.Time            `json:"timestamp"`
}

type Frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type client struct {
	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]bool
}

type Hub struct {
	mu       sync.Mutex
	rooms    map[string]map[*client]struct{}
	upgrader websocket.Upgrader
}

// NewHub accepts connections from the given origins; "*" or an empty list allows any.
func NewHub(origins []string) *Hub {
	allowed := map[string]bool{}
	for _, o := range origins {
		allowed[o] = true
	}
	return &Hub{
		rooms: map[string]map[*client]struct{}{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || allowed["*"] || origin == "" || allowed[origin]
			},
		},
	}
}

func Room(orderID string) string { return "order-" + orderID }

// Serve upgrades the request and runs the connection until it closes.
func (h *Hub) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithRequest(c).WithError(err).Warn("websocket upgrade failed")
		return
	}
	cl := &client{conn: conn, send: make(chan []byte, sendBuffer), rooms: map[string]bool{}}
	go h.writePump(cl)
	h.readPump(cl)
}

func (h *Hub) readPump(cl *client) {
	defer h.drop(cl)
	cl.conn.SetReadLimit(maxFrame)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var msg inbound
		if err := cl.conn.ReadJSON(&msg); err != nil {
			return
		}
		if !primitive.IsValidObjectID(msg.OrderID) {
			continue
		}
		switch msg.Event {
		case EventJoinOrder:
			h.join(cl, Room(msg.OrderID))
		case EventLeaveOrder:
			h.leave(cl, Room(msg.OrderID))
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) join(cl *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cl.rooms == nil {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = map[*client]struct{}{}
		h.rooms[room] = members
	}
	members[cl] = struct{}{}
	cl.rooms[room] = true
}

func (h *Hub) leave(cl *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(cl, room)
}

func (h *Hub) leaveLocked(cl *client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, cl)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(cl.rooms, room)
}

func (h *Hub) drop(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(cl)
}

// dropLocked removes the client from every room and closes its send channel once.
func (h *Hub) dropLocked(cl *client) {
	if cl.rooms == nil {
		return
	}
	for room := range cl.rooms {
		h.leaveLocked(cl, room)
	}
	cl.rooms = nil
	close(cl.send)
}

// Broadcast sends frame to everyone in room. Clients that cannot keep up are disconnected.
func (h *Hub) Broadcast(room string, frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		logger.WithModule("realtime").WithError(err).Error("failed to encode frame")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.rooms[room] {
		select {
		case cl.send <- payload:
		default:
			h.dropLocked(cl)
		}
	}
}

// PublishOrder pushes the order's current state to its room.
func (h *Hub) PublishOrder(o *models.Order, note string) {
	h.Broadcast(Room(o.ID.Hex()), Frame{
		Event: EventOrderUpdate,
		Data: OrderUpdate{
			OrderID:       o.ID.Hex(),
			OrderNumber:   o.OrderNumber,
			Status:        o.Status,
			PaymentStatus: o.PaymentInfo.Status,
			Note:          note,
			Timestamp:     o.UpdatedAt,
		},
	})
}

func (h *Hub) RoomSize(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}
