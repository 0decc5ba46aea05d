package websocket

import (
	"sync"

	"github.com/charmbracelet/log"
)

type HubInterface interface {
	BroadcastToPlayers(addrs []string, msg OutgoingMessage)
	ClientByAddress(addr string) (*Client, bool)
	SendToPlayer(addr string, msg OutgoingMessage)
	Close()
}

// Hub owns every live connection, keyed by player address. All map writes happen
// on the Run goroutine.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastReq
	sendOne    chan sendReq
	incoming   chan IncomingMessage
	quit       chan struct{}
	closeOnce  sync.Once
	mu         sync.RWMutex
	logger     *log.Logger

	// OnIncoming receives every client message on its own goroutine.
	OnIncoming func(IncomingMessage)
}

type broadcastReq struct {
	Addresses []string
	Message   OutgoingMessage
}

type sendReq struct {
	Address string
	Message OutgoingMessage
}

func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastReq),
		sendOne:    make(chan sendReq),
		incoming:   make(chan IncomingMessage),
		quit:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	h.logger.Info("hub started")

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[c.Address]; ok && old != c {
				close(old.Send)
			}
			h.clients[c.Address] = c
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client registered", "address", c.Address, "clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[c.Address]; ok && cur == c {
				delete(h.clients, c.Address)
				close(c.Send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "address", c.Address, "clients", n)

		case req := <-h.broadcast:
			for _, addr := range req.Addresses {
				h.deliver(addr, req.Message)
			}

		case req := <-h.sendOne:
			h.deliver(req.Address, req.Message)

		case msg := <-h.incoming:
			if h.OnIncoming != nil {
				go h.OnIncoming(msg)
			}

		case <-h.quit:
			h.mu.Lock()
			for addr, c := range h.clients {
				close(c.Send)
				delete(h.clients, addr)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return
		}
	}
}

// deliver never blocks the hub: a client whose buffer is full misses the message.
func (h *Hub) deliver(addr string, msg OutgoingMessage) {
	client, ok := h.clients[addr]
	if !ok {
		return
	}
	select {
	case client.Send <- msg:
	default:
		h.logger.Warn("client buffer full, dropping message", "address", addr, "event", msg.Event)
	}
}

func (h *Hub) BroadcastToPlayers(addrs []string, msg OutgoingMessage) {
	select {
	case h.broadcast <- broadcastReq{Addresses: addrs, Message: msg}:
	case <-h.quit:
	}
}

func (h *Hub) SendToPlayer(addr string, msg OutgoingMessage) {
	select {
	case h.sendOne <- sendReq{Address: addr, Message: msg}:
	case <-h.quit:
	}
}

func (h *Hub) ClientByAddress(addr string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[addr]
	return c, ok
}

func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.quit) })
}
