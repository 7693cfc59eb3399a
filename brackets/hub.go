package brackets

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Типы событий, которые хаб рассылает подключённым дашбордам.
const (
	EventBracketUpdated    = "BRACKET_UPDATED"
	EventTournamentStarted = "TOURNAMENT_STARTED"
	EventTournamentReset   = "TOURNAMENT_RESET"
	EventBroadcastProgress = "BROADCAST_PROGRESS"
)

type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	IsClosed bool
	Mu       sync.Mutex
}

// Hub keeps the set of live WebSocket clients and fans events out to them.
// There is a single tournament, so there are no per-room partitions.
type Hub struct {
	clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	events     chan []byte
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		events:     make(chan []byte, 64),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			log.Printf("ws client registered, total: %d", len(h.clients))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				client.Mu.Lock()
				if !client.IsClosed {
					close(client.Send)
					client.IsClosed = true
				}
				client.Mu.Unlock()
				delete(h.clients, client)
				log.Printf("ws client unregistered, total: %d", len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.events:
			h.mu.RLock()
			for client := range h.clients {
				client.Mu.Lock()
				if client.IsClosed {
					client.Mu.Unlock()
					continue
				}
				select {
				case client.Send <- message:
				default:
					// Клиент не успевает читать — событие для него пропускается.
				}
				client.Mu.Unlock()
			}
			h.mu.RUnlock()
		}
	}
}

// Publish serializes the event and queues it for every connected client.
// Publishing never blocks the caller; marshalling errors are only logged.
func (h *Hub) Publish(eventType string, payload interface{}) {
	message, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		log.Printf("ws event marshal error (%s): %v", eventType, err)
		return
	}
	select {
	case h.events <- message:
	default:
		log.Printf("ws event queue full, dropping %s", eventType)
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		// Входящие сообщения от дашборда игнорируются, канал только исходящий.
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws read error: %v", err)
			}
			break
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Добираем накопившиеся события в тот же фрейм.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
