package bridge

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

type LogHubConfig struct {
	// Lines replayed to a client when it connects.
	Backlog int
	Logger  *log.Logger
}

type logMessage struct {
	Type string `json:"type"`
	Line string `json:"line"`
	Time int64  `json:"time"`
}

// LogHub fans log lines out to websocket clients. It can be used as the
// renderer's sink and as the writer of a log.Logger.
type LogHub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	backlog  [][]byte
	limit    int
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func NewLogHub(cfg LogHubConfig) *LogHub {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &LogHub{
		clients: make(map[*websocket.Conn]struct{}),
		limit:   cfg.Backlog,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Publish sends line to every connected client.
func (h *LogHub) Publish(line string) {
	data, err := json.Marshal(logMessage{Type: "log", Line: line, Time: time.Now().UnixMilli()})
	if err != nil {
		h.logger.Printf("loghub: failed to encode line: %v", err)
		return
	}

	var failed []error
	h.mu.Lock()
	if h.limit > 0 {
		h.backlog = append(h.backlog, data)
		if len(h.backlog) > h.limit {
			h.backlog = h.backlog[len(h.backlog)-h.limit:]
		}
	}
	for conn := range h.clients {
		if err := write(conn, data); err != nil {
			failed = append(failed, err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
	h.mu.Unlock()

	for _, err := range failed {
		h.logger.Printf("loghub: dropped client: %v", err)
	}
}

// Write publishes every line of p.
func (h *LogHub) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		h.Publish(line)
	}
	return len(p), nil
}

func (h *LogHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *LogHub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("loghub: upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	for _, data := range h.backlog {
		if err := write(conn, data); err != nil {
			h.mu.Unlock()
			conn.Close()
			return
		}
	}
	h.clients[conn] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Printf("loghub: client %s connected, %d listening", r.RemoteAddr, count)

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

func write(conn *websocket.Conn, data []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
