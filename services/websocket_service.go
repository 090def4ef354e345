package services

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"taskboard-app/taskboard/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 256
)

// WebSocketServiceInterface defines the operations provided by the
// WebSocket service.
type WebSocketServiceInterface interface {
	HandleConnection(c *gin.Context)
	Stop()
}

// WebSocketService upgrades HTTP connections and adapts each of them to the
// broadcaster's Connection interface. It owns no subscription state of its
// own; subscribe/unsubscribe messages go straight to the broadcaster.
type WebSocketService struct {
	broadcaster *Broadcaster
	upgrader    websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*Client
}

func NewWebSocketService(broadcaster *Broadcaster) *WebSocketService {
	return &WebSocketService{
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // origin policy is handled by the embedding host
			},
		},
		clients: make(map[string]*Client),
	}
}

// HandleConnection upgrades the HTTP request and starts the read/write
// pumps. The connection is registered with the broadcaster immediately but
// receives no events until it subscribes.
func (ws *WebSocketService) HandleConnection(c *gin.Context) {
	conn, err := ws.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Error upgrading to WebSocket: %v", err)
		return
	}

	client := &Client{
		id:      uuid.New().String(),
		service: ws,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
	}

	ws.mu.Lock()
	ws.clients[client.id] = client
	ws.mu.Unlock()
	ws.broadcaster.Register(client)
	log.Printf("Client connected: %s", client.id)

	go client.writePump()
	go client.readPump()
}

// Stop closes every open client connection.
func (ws *WebSocketService) Stop() {
	ws.mu.Lock()
	clients := make([]*Client, 0, len(ws.clients))
	for _, client := range ws.clients {
		clients = append(clients, client)
	}
	ws.mu.Unlock()

	for _, client := range clients {
		client.close()
	}
	log.Println("WebSocket service stopped")
}

func (ws *WebSocketService) removeClient(client *Client) {
	ws.mu.Lock()
	delete(ws.clients, client.id)
	ws.mu.Unlock()
}

// Client represents one connected WebSocket peer. It implements Connection
// for the broadcaster.
type Client struct {
	id       string
	service  *WebSocketService
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	closeOne sync.Once
}

func (c *Client) ID() string {
	return c.id
}

// Send queues data for delivery without blocking. A closed connection or a
// full buffer fails the send instead of stalling the broadcaster; the
// backlog for other connections is unaffected.
func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return errors.New("connection closed")
	case c.send <- data:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

func (c *Client) close() {
	c.closeOne.Do(func() {
		close(c.done)
		c.conn.Close()
		c.service.removeClient(c)
	})
}

// readPump handles incoming messages until the connection drops, then
// unregisters the client from the broadcaster.
func (c *Client) readPump() {
	defer func() {
		c.service.broadcaster.Unregister(c)
		c.close()
		log.Printf("Client disconnected: %s", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Error reading from WebSocket: %v", err)
			}
			break
		}
		c.processMessage(message)
	}
}

// writePump drains the send buffer to the connection and keeps the
// connection alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) processMessage(msg []byte) {
	var clientMsg models.ClientMessage
	if err := json.Unmarshal(msg, &clientMsg); err != nil {
		log.Printf("Error parsing client message: %v", err)
		return
	}

	switch clientMsg.Type {
	case "subscribe":
		c.handleSubscribe(clientMsg)
	case "unsubscribe":
		c.handleUnsubscribe()
	case "ping":
		c.sendMessage(models.ServerMessage{Type: "pong"})
	default:
		log.Printf("Unknown message type: %s", clientMsg.Type)
	}
}

func (c *Client) handleSubscribe(msg models.ClientMessage) {
	var payload models.SubscribePayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			log.Printf("Error parsing subscribe payload: %v", err)
			return
		}
	}
	// Connections that don't identify a device are scoped by connection id.
	deviceID := payload.DeviceID
	if deviceID == "" {
		deviceID = c.id
	}

	c.service.broadcaster.Subscribe(c, deviceID)
	c.sendMessage(models.ServerMessage{
		Type:    "subscription",
		Event:   "confirmed",
		Payload: models.SubscriptionStatus{Subscribed: true, DeviceID: deviceID},
	})
}

func (c *Client) handleUnsubscribe() {
	c.service.broadcaster.Unsubscribe(c)
	c.sendMessage(models.ServerMessage{
		Type:    "subscription",
		Event:   "confirmed",
		Payload: models.SubscriptionStatus{Subscribed: false},
	})
}

func (c *Client) sendMessage(msg models.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error serializing server message: %v", err)
		return
	}
	if err := c.Send(data); err != nil {
		log.Printf("Error sending to client %s: %v", c.id, err)
	}
}

var WebSocketServiceInstance WebSocketServiceInterface
