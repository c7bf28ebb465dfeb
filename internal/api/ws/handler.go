package ws

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/BigJoe84g/Krill-Browser/internal/policy/engine"
)

const (
	maxMessageBytes = 16 * 1024
	writeTimeout    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The daemon listens on loopback for the local shell
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is a client request
type Message struct {
	Type     string `json:"type"`
	ID       string `json:"id,omitempty"`
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Reply is sent for every client message
type Reply struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Handler manages WebSocket connections
type Handler struct {
	engine *engine.Engine
	logger *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(eng *engine.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine: eng,
		logger: logger,
	}
}

// HandleConnection upgrades the request and answers messages until the
// client disconnects. Replies are written from this goroutine only.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	if err := h.send(conn, Reply{Type: "system", Message: "Connected to Krill policy daemon"}); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			if h.sendError(conn, "", "malformed message") != nil {
				return
			}
			continue
		}
		if err := h.send(conn, h.dispatch(msg)); err != nil {
			h.logger.Debug("WebSocket write error", zap.Error(err))
			return
		}
	}
}

func (h *Handler) dispatch(msg Message) Reply {
	reply := Reply{ID: msg.ID}

	switch msg.Type {
	case "ping":
		reply.Type = "pong"
	case "evaluate":
		if msg.URL == "" {
			return errorReply(msg.ID, "url is required")
		}
		reply.Type = "decision"
		reply.Data = h.engine.Evaluate(msg.URL)
	case "security_level":
		if msg.URL == "" {
			return errorReply(msg.ID, "url is required")
		}
		reply.Type = "security_level"
		reply.Data = gin.H{"url": msg.URL, "level": h.engine.SecurityLevel(msg.URL)}
	case "check_phishing":
		if msg.URL == "" {
			return errorReply(msg.ID, "url is required")
		}
		reply.Type = "phishing"
		reply.Data = h.engine.CheckPhishing(msg.URL)
	case "classify_download":
		if msg.Filename == "" {
			return errorReply(msg.ID, "filename is required")
		}
		reply.Type = "download"
		reply.Data = h.engine.ClassifyDownload(msg.Filename)
	case "browser_settings":
		reply.Type = "browser_settings"
		reply.Data = gin.H{
			"referrer_policy":    h.engine.ReferrerPolicy(),
			"javascript_enabled": h.engine.JavaScriptAllowed(),
			"do_not_track":       h.engine.DoNotTrack(),
		}
	default:
		return errorReply(msg.ID, "unknown message type")
	}
	return reply
}

func errorReply(id, msg string) Reply {
	return Reply{Type: "error", ID: id, Message: msg}
}

func (h *Handler) send(conn *websocket.Conn, reply Reply) error {
	reply.Timestamp = time.Now().Unix()
	data, err := sonic.Marshal(reply)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Handler) sendError(conn *websocket.Conn, id, msg string) error {
	return h.send(conn, errorReply(id, msg))
}
