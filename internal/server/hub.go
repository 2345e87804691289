package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hazadus/go-broadcast/internal/notify"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBuffer     = 32
)

// MessageType тип сообщения потока событий
type MessageType string

const (
	MsgTypeToast  MessageType = "toast"
	MsgTypeStatus MessageType = "status"
)

// Message сообщение, отправляемое клиентам /api/events
type Message struct {
	Type      MessageType   `json:"type"`
	Toast     *notify.Toast `json:"toast,omitempty"`
	Status    *StatusView   `json:"status,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

// client подключенный WebSocket клиент
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub рассылает уведомления и статус плеера всем подключенным клиентам
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mutex   sync.RWMutex
	clients map[*client]bool
	last    []byte // последний статус для новых клиентов
	closed  bool
}

// NewHub создает пустой хаб
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*client]bool),
	}
}

// Notify отправляет уведомление всем клиентам
func (h *Hub) Notify(toast notify.Toast) {
	h.publish(Message{Type: MsgTypeToast, Toast: &toast}, false)
}

// PublishStatus отправляет статус плеера всем клиентам
func (h *Hub) PublishStatus(status StatusView) {
	h.publish(Message{Type: MsgTypeStatus, Status: &status}, true)
}

// Clients возвращает число подключенных клиентов
func (h *Hub) Clients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) publish(msg Message, remember bool) {
	msg.Timestamp = time.Now().UnixMilli()
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Ошибка сериализации сообщения", zap.Error(err))
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.closed {
		return
	}
	if remember {
		h.last = payload
	}
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			// Медленный клиент отключается
			h.removeLocked(c)
		}
	}
}

// ServeHTTP переводит запрос на WebSocket и регистрирует клиента
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Не удалось открыть WebSocket", zap.Error(err))
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}

	h.mutex.Lock()
	if h.closed {
		h.mutex.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = true
	if h.last != nil {
		c.send <- h.last
	}
	h.mutex.Unlock()

	h.logger.Debug("Клиент подключен", zap.String("remote", r.RemoteAddr))

	go c.writePump()
	c.readPump()
}

// Close отключает всех клиентов
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) unregister(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// readPump читает входящие сообщения только ради pong и закрытия
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("Неожиданное закрытие WebSocket", zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
