// Package websocket implements a WebSocket Hub for broadcasting live tee-sheet
// changes. WebSockets are persistent two-way connections between the server and
// clients — unlike regular HTTP where the client always initiates the request,
// WebSockets let the server push data to clients instantly. This is used so an
// admin with the tee sheet open sees roster and assignment changes the moment
// another operator makes them, without polling the API repeatedly.
package websocket

import "sync" // sync provides synchronization primitives like mutexes for safe concurrent access

// Client represents a single connected WebSocket client.
// Each operator watching an event has one Client instance on the server.
type Client struct {
	EventID string      // Which event this client is watching — used to route messages to the right audience
	Send    chan []byte // Buffered channel of outgoing messages; the Hub sends data here, the WebSocket writes it to the client
}

// Message is a unit of data to broadcast to all clients watching a specific event.
// By attaching the EventID, the Hub knows which group of clients should receive it.
type Message struct {
	EventID string // The event this message belongs to
	Data    []byte // The raw bytes to send (JSON-encoded change notices)
}

// Hub manages all active WebSocket connections, grouped by event ID.
// It runs in its own goroutine and processes registration, unregistration, and
// broadcast events through channels — this keeps all map access on a single goroutine,
// which avoids data races (concurrent map reads/writes cause panics in Go).
type Hub struct {
	// clients is a nested map: eventID -> set of Client pointers -> bool (true = connected).
	// Using a map[*Client]bool as a "set" is a common Go idiom because Go has no built-in set type.
	clients map[string]map[*Client]bool

	broadcast  chan *Message // Incoming messages to be sent to all clients watching a given event
	register   chan *Client  // Signals that a new client has connected and should be tracked
	unregister chan *Client  // Signals that a client has disconnected and should be removed

	// mu (mutex) protects the clients map when it's accessed from broadcast (RLock/RUnlock)
	// while the main loop modifies it (Lock/Unlock). A RWMutex allows multiple concurrent
	// readers OR one exclusive writer — suitable since broadcasts just read the client list.
	mu sync.RWMutex
}

// NewHub creates and initializes a Hub with empty channels and maps.
// The broadcast channel has a buffer of 256 so writers don't block immediately
// if the Hub goroutine is briefly busy. register and unregister are unbuffered
// because those operations need to complete synchronously.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run is the Hub's main event loop. It must be called in a goroutine ("go hub.Run()").
// It blocks forever, processing one event at a time via a select statement.
func (h *Hub) Run() {
	for {
		select {

		// A new client has connected — add it to the clients map under its EventID
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.EventID] == nil {
				h.clients[client.EventID] = make(map[*Client]bool)
			}
			h.clients[client.EventID][client] = true
			h.mu.Unlock()

		// A client has disconnected — remove it from the map and close its Send channel
		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.EventID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send) // Closing the channel signals the WebSocket writer goroutine to stop
					// Clean up the event's map entry if no clients are left — avoids memory leaks
					if len(clients) == 0 {
						delete(h.clients, client.EventID)
					}
				}
			}
			h.mu.Unlock()

		// A message arrived to broadcast to all clients watching a specific event
		case msg := <-h.broadcast:
			h.mu.RLock()
			clients := h.clients[msg.EventID]
			h.mu.RUnlock()

			for client := range clients {
				select {
				case client.Send <- msg.Data:
				// If the channel buffer is full, the client is too slow — drop and disconnect it.
				// The default case makes this non-blocking: if Send is full we unregister
				// rather than blocking the broadcast loop for all other clients.
				default:
					h.unregister <- client
				}
			}
		}
	}
}

// BroadcastToEvent sends data to all clients currently watching the given event.
// Handlers call this after a roster or assignment mutation.
func (h *Hub) BroadcastToEvent(eventID string, data []byte) {
	h.broadcast <- &Message{EventID: eventID, Data: data}
}

// Register adds a client to the Hub so it starts receiving broadcasts for its event.
// Called when a WebSocket connection is opened.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the Hub when its WebSocket connection closes.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
