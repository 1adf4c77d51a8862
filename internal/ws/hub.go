package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"fleetctl/internal/apperr"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Frame is the wire envelope for every message a console subscriber
// receives, distinguishing the logs backlog, live log lines, and state
// transitions so a single socket can carry both of C7's topics.
type Frame struct {
	Topic string   `json:"topic"`
	Lines []string `json:"lines,omitempty"`
	Text  string   `json:"text,omitempty"`
	State string   `json:"state,omitempty"`
}

const (
	TopicLogsBacklog = "logs"
	TopicLog         = "log"
	TopicState       = "state"
)

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	Commands   chan []byte
	register   chan *Client
	unregister chan *Client
	stop       chan bool

	history        [][]byte
	maxHistory     int
	clearHistory   chan struct{}
	setHistorySize chan int

	snapshotRequests chan *Client
	stateBroadcast   chan string
	lastState        string

	mu sync.RWMutex
}

func NewHubWithHistorySize(maxHistory int) *Hub {
	if maxHistory < 0 {
		maxHistory = 0
	}
	h := &Hub{
		broadcast:        make(chan []byte, 4096),
		Commands:         make(chan []byte),
		register:         make(chan *Client),
		unregister:       make(chan *Client),
		clients:          make(map[*Client]bool),
		stop:             make(chan bool),
		maxHistory:       maxHistory,
		clearHistory:     make(chan struct{}, 1),
		setHistorySize:   make(chan int, 1),
		snapshotRequests: make(chan *Client, 8),
		stateBroadcast:   make(chan string, 8),
	}
	if maxHistory > 0 {
		h.history = make([][]byte, 0, maxHistory)
	} else {
		h.history = nil
	}
	return h
}

func (h *Hub) GetHistorySnapshot() [][]byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.history == nil || len(h.history) == 0 {
		return nil
	}
	copyHist := make([][]byte, len(h.history))
	copy(copyHist, h.history)
	return copyHist
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case client := <-h.snapshotRequests:
			h.mu.RLock()
			lines := make([]string, len(h.history))
			for i, msg := range h.history {
				lines[i] = string(msg)
			}
			h.mu.RUnlock()

			if backlog, err := json.Marshal(Frame{Topic: TopicLogsBacklog, Lines: lines}); err == nil {
				client.replay <- backlog
			}
			if h.lastState != "" {
				if stateFrame, err := json.Marshal(Frame{Topic: TopicState, State: h.lastState}); err == nil {
					client.replay <- stateFrame
				}
			}
			close(client.replay)

			h.clients[client] = true

		case message := <-h.broadcast:
			msgCopy := append([]byte(nil), message...)
			if h.maxHistory > 0 {
				h.mu.Lock()
				h.history = append(h.history, msgCopy)
				if len(h.history) > h.maxHistory {
					h.history = h.history[1:]
				}
				h.mu.Unlock()
			}

			frame, err := json.Marshal(Frame{Topic: TopicLog, Text: string(msgCopy)})
			if err != nil {
				continue
			}
			h.fanOut(frame)

		case state := <-h.stateBroadcast:
			h.lastState = state
			frame, err := json.Marshal(Frame{Topic: TopicState, State: state})
			if err != nil {
				continue
			}
			h.fanOut(frame)

		case newSize := <-h.setHistorySize:
			if newSize <= 0 {
				h.maxHistory = 0
				h.mu.Lock()
				h.history = nil
				h.mu.Unlock()
			} else {
				h.mu.Lock()
				if h.history == nil {
					h.history = make([][]byte, 0, newSize)
				} else {
					if len(h.history) > newSize {
						h.history = h.history[len(h.history)-newSize:]
					}
					if cap(h.history) < newSize {
						newHist := make([][]byte, len(h.history), newSize)
						copy(newHist, h.history)
						h.history = newHist
					}
				}
				h.maxHistory = newSize
				h.mu.Unlock()
			}

		case <-h.clearHistory:
			h.mu.Lock()
			h.history = nil
			h.mu.Unlock()

		case <-h.stop:
			for client := range h.clients {
				close(client.send)
			}
			h.mu.Lock()
			h.history = nil
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.stop)
}

func (h *Hub) ClearLogs() {
	select {
	case h.clearHistory <- struct{}{}:
	default:
	}
}

func (h *Hub) SetHistorySize(size int) {
	if size < 0 {
		size = 0
	}
	select {
	case h.setHistorySize <- size:
	default:
		go func() { h.setHistorySize <- size }()
	}
}

func (h *Hub) Broadcast(message []byte) {
	h.broadcast <- message
}

// BroadcastState publishes a server lifecycle state transition on the
// state topic, kept alongside but independent of the log ring: late
// subscribers get the last state delivered once on connect rather than
// replayed as history.
func (h *Hub) BroadcastState(state string) {
	h.stateBroadcast <- state
}

// fanOut delivers an already-encoded frame to every connected client,
// disconnecting any subscriber whose send buffer is full instead of
// blocking the rest.
func (h *Hub) fanOut(frame []byte) {
	for client := range h.clients {
		select {
		case client.send <- frame:
		default:
			// send buffer is full: the client can't keep up with the
			// log volume. Close with a reason instead of silently
			// dropping the connection.
			closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, string(apperr.SlowConsumer))
			_ = client.conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	// replay exists before writePump starts, so writePump always waits for
	// Run to fill and close it before sending any live frame.
	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256), replay: make(chan []byte, 2)}

	go client.writePump()
	go client.readPump()

	select {
	case h.snapshotRequests <- client:
	default:
		go func() { h.snapshotRequests <- client }()
	}
}
