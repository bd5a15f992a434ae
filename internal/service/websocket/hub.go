package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"slideshow/internal/dto"
	"slideshow/internal/logger"
	"slideshow/internal/service/notify"
)

// HubService pushes catalog change events to connected observers.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	notifier   *notify.Notifier
	logger     *logger.Logger
}

func NewHubService(notifier *notify.Notifier, logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		notifier:   notifier,
		logger:     logger,
	}
}

// Run serves registrations and forwards notifier events until ctx is done.
func (h *HubService) Run(ctx context.Context) {
	sub := h.notifier.Subscribe()
	defer sub.Close()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Observer connected. Total: %d", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Observer disconnected. Total: %d", count)

		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			message, err := json.Marshal(dto.NewEventMessage(ev))
			if err != nil {
				h.logger.Error("Error encoding event: %v", err)
				continue
			}
			h.send(message)

		case message := <-h.broadcast:
			h.send(message)
		}
	}
}

func (h *HubService) send(message []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Error("Error sending message: %v", err)
			delete(h.clients, client)
			client.Close()
		}
	}
}

func (h *HubService) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

// Register adds client. After Run has returned the client is closed instead.
func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues a raw message for every observer. It drops the message if the queue is full.
func (h *HubService) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warning("Broadcast queue full, dropping message")
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
