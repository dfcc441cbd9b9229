package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Event types pushed to connected dashboards.
const (
	EventStockUpdate = "stock_update"
	EventOrderUpdate = "order_update"
)

// StockLevel is the balance of one stock row after a committed change.
type StockLevel struct {
	BranchID     uuid.UUID       `json:"branch_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	UnitID       uuid.UUID       `json:"unit_id"`
	QtySmallUnit decimal.Decimal `json:"qty_small_unit"`
}

// Event is one committed change. It is only published after the unit of
// work that caused it has committed.
type Event struct {
	Type        string       `json:"type"`
	Action      string       `json:"action"`
	OrderID     *uuid.UUID   `json:"order_id,omitempty"`
	ReferenceNo string       `json:"reference_no,omitempty"`
	Status      string       `json:"status,omitempty"`
	Stocks      []StockLevel `json:"stocks,omitempty"`
	UserID      string       `json:"user_id,omitempty"`
	At          time.Time    `json:"at"`
}

// Client is the part of a websocket connection the hub writes to.
type Client interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Hub struct {
	Clients    map[Client]bool
	Register   chan Client
	Unregister chan Client
	Broadcast  chan []byte

	mutex sync.Mutex
	quit  chan struct{}
	once  sync.Once
	log   *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		Clients:    make(map[Client]bool),
		Register:   make(chan Client),
		Unregister: make(chan Client),
		Broadcast:  make(chan []byte, 256),
		quit:       make(chan struct{}),
		log:        log,
	}
}

// Publish queues ev for every client. It never blocks: when the queue is
// full the event is dropped and logged.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal ws event", zap.Error(err))
		return
	}
	select {
	case h.Broadcast <- msg:
	default:
		h.log.Warn("ws broadcast queue full, dropping event", zap.String("type", ev.Type), zap.String("action", ev.Action))
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.Clients)
}

// Join registers c with the running hub. It returns false once the hub has
// stopped, in which case c is not tracked.
func (h *Hub) Join(c Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.quit:
		return false
	}
}

// Leave unregisters c. After Stop it returns at once.
func (h *Hub) Leave(c Client) {
	select {
	case h.Unregister <- c:
	case <-h.quit:
	}
}

func (h *Hub) Stop() {
	h.once.Do(func() { close(h.quit) })
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.mutex.Lock()
			for conn := range h.Clients {
				_ = conn.Close()
				delete(h.Clients, conn)
			}
			h.mutex.Unlock()
			return

		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			h.mutex.Unlock()
			h.log.Debug("ws client connected")

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				_ = conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					_ = conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}
