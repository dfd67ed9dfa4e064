package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"langclass/monitoring"
	"langclass/registry"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxFrameBytes  = 64 * 1024
	sendBufferSize = 64
)

type streamClient struct {
	conn  *websocket.Conn
	send  chan []byte
	model string
	once  sync.Once
}

func (c *streamClient) close() {
	c.once.Do(func() { close(c.send) })
}

// streamHub serves /api/ws/classify: every text frame is a sentence and every
// reply is the classification result, or {"error": ...}.
type streamHub struct {
	mu       sync.Mutex
	clients  map[*streamClient]struct{}
	closed   bool
	upgrader websocket.Upgrader
	registry *registry.Registry
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

func newStreamHub(reg *registry.Registry, metrics *monitoring.Metrics, logger *zap.Logger) *streamHub {
	return &streamHub{
		clients: make(map[*streamClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		registry: reg,
		metrics:  metrics,
		logger:   logger,
	}
}

func (h *streamHub) add(c *streamClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.metrics.SetStreamClients(len(h.clients))
	return true
}

func (h *streamHub) remove(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.metrics.SetStreamClients(len(h.clients))
}

// Close ends every open stream and refuses new ones.
func (h *streamHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
	h.metrics.SetStreamClients(0)
}

// HandleClassify upgrades the connection. The optional "model" query
// parameter pins the stream to one registered model.
func (h *streamHub) HandleClassify(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &streamClient{
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		model: r.URL.Query().Get("model"),
	}
	if !h.add(c) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}
	h.logger.Debug("stream opened", zap.String("request_id", GetRequestID(r.Context())), zap.String("model", c.model))

	go h.writePump(c)
	h.readPump(c)
}

func (h *streamHub) readPump(c *streamClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("stream read failed", zap.Error(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		var reply any
		res, err := h.registry.Classify(c.model, string(data))
		if err != nil {
			h.metrics.RecordRequestError()
			reply = map[string]string{"error": err.Error()}
		} else {
			reply = res
		}
		payload, err := json.Marshal(reply)
		if err != nil {
			h.logger.Error("encode stream reply", zap.Error(err))
			continue
		}

		h.mu.Lock()
		_, open := h.clients[c]
		if open {
			select {
			case c.send <- payload:
			default:
				h.logger.Warn("stream client too slow, dropping reply")
			}
		}
		h.mu.Unlock()
		if !open {
			return
		}
	}
}

func (h *streamHub) writePump(c *streamClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Warn("stream write failed", zap.Error(err))
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
