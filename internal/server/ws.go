package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/bhava/internal/inference"
	"github.com/ayusman/bhava/internal/logging"
	"github.com/ayusman/bhava/internal/server/api"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is open on the HTTP endpoints as well
	},
}

const wsWriteTimeout = 10 * time.Second

// wsReply is written for every received frame.
type wsReply struct {
	Results []inference.FaceResult `json:"results,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// StreamHandler analyzes images sent over a WebSocket. Each binary message
// is one encoded image and gets one JSON reply. Frames are independent.
type StreamHandler struct {
	analyzer api.Analyzer
	maxBytes int64
	log      logrus.FieldLogger
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(a api.Analyzer, maxBytes int64, log logrus.FieldLogger) *StreamHandler {
	return &StreamHandler{analyzer: a, maxBytes: maxBytes, log: log}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.log.WithField(logging.RequestIDKey, r.Header.Get(api.RequestIDHeader))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// The hijacked connection may still carry the server's read deadline.
	conn.SetReadDeadline(time.Time{})
	if h.maxBytes > 0 {
		conn.SetReadLimit(h.maxBytes)
	}

	frames := 0
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("websocket closed")
			}
			break
		}

		var reply wsReply
		if msgType != websocket.BinaryMessage {
			reply.Error = api.MsgNoImage
		} else {
			result, err := h.analyzer.AnalyzeBytes(data)
			if err != nil {
				_, reply.Error = api.ErrorStatus(err)
			} else {
				reply.Results = result.Faces
			}
		}
		frames++

		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(reply); err != nil {
			log.WithError(err).Warn("websocket write failed")
			break
		}
	}

	log.WithField("frames", frames).Debug("websocket session ended")
}
