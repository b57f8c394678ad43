package websocket

import (
	"github.com/isdelr/annotation-hub-be/internal/services"
	"github.com/rs/zerolog/log"
)

type subscription struct {
	client  *Client
	channel string
}

type notification struct {
	channel string
	client  *Client
	message []byte
}

// Hub maintains the set of active clients and the channels they are subscribed to.
// All state is owned by the Run goroutine.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// A map of channel names to the set of clients subscribed to it.
	subscriptions map[string]map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	unsubscribe chan subscription
	notify      chan notification
	direct      chan notification

	done    chan struct{}
	stopped chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		subscribe:     make(chan subscription),
		unsubscribe:   make(chan subscription),
		notify:        make(chan notification, 256),
		direct:        make(chan notification, 64),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	defer close(h.stopped)
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.addSubscription(client, services.UserChannel(client.UserID))
			log.Info().Str("user_id", client.UserID).Int("total_clients", len(h.clients)).Msg("Client connected")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Str("user_id", client.UserID).Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case sub := <-h.subscribe:
			if h.clients[sub.client] {
				h.addSubscription(sub.client, sub.channel)
			}
		case sub := <-h.unsubscribe:
			h.removeSubscription(sub.client, sub.channel)
		case n := <-h.notify:
			for client := range h.subscriptions[n.channel] {
				h.deliver(client, n.message)
			}
		case n := <-h.direct:
			if h.clients[n.client] {
				h.deliver(n.client, n.message)
			}
		}
	}
}

// Stop ends Run and closes every client's send channel.
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
	<-h.stopped
}

// Register adds a client and subscribes it to its user channel.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client from the hub and all its channels.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribe adds a registered client to a channel.
func (h *Hub) Subscribe(client *Client, channel string) {
	select {
	case h.subscribe <- subscription{client: client, channel: channel}:
	case <-h.done:
	}
}

// Unsubscribe removes a client from a channel.
func (h *Hub) Unsubscribe(client *Client, channel string) {
	select {
	case h.unsubscribe <- subscription{client: client, channel: channel}:
	case <-h.done:
	}
}

// Notify sends a message to every client subscribed to channel.
func (h *Hub) Notify(channel string, message []byte) {
	select {
	case h.notify <- notification{channel: channel, message: message}:
	case <-h.done:
	}
}

func (h *Hub) sendTo(client *Client, message []byte) {
	select {
	case h.direct <- notification{client: client, message: message}:
	case <-h.done:
	}
}

func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		log.Warn().Str("user_id", client.UserID).Msg("Dropping slow websocket client")
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	for channel, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, channel)
			}
		}
	}
}

func (h *Hub) addSubscription(client *Client, channel string) {
	if h.subscriptions[channel] == nil {
		h.subscriptions[channel] = make(map[*Client]bool)
	}
	h.subscriptions[channel][client] = true
}

func (h *Hub) removeSubscription(client *Client, channel string) {
	if subs, ok := h.subscriptions[channel]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subscriptions, channel)
		}
	}
}
