package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/posturelab/internal/posture"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Publisher provides live analysis results.
type Publisher interface {
	Subscribe() (<-chan *posture.Report, func())
}

// LiveMessage is sent to WebSocket clients for every live frame analysis.
type LiveMessage struct {
	Detected  bool              `json:"detected"`
	Analysis  *posture.Analysis `json:"analysis,omitempty"`
	Note      string            `json:"note,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// LiveFeed pushes live reports to WebSocket clients.
type LiveFeed struct {
	source Publisher
	logger *slog.Logger
}

// NewLiveFeed creates a LiveFeed over the given publisher.
func NewLiveFeed(source Publisher, logger *slog.Logger) *LiveFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveFeed{source: source, logger: logger}
}

// ServeHTTP upgrades the connection and streams reports until the client
// disconnects.
func (h *LiveFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.source.Subscribe()
	defer unsubscribe()

	// Reading detects the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case report, ok := <-updates:
			if !ok {
				return
			}

			msg := LiveMessage{Timestamp: time.Now().UnixMilli()}
			if report != nil {
				msg.Detected = true
				msg.Analysis = report.Analysis
				msg.Note = report.Note
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}
