package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dev101/coa/internal/annotate"
	"github.com/dev101/coa/internal/model"
	"github.com/dev101/coa/internal/progress"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024 * 64,
	WriteBufferSize: 1024 * 64,
	CheckOrigin: func(r *http.Request) bool {
		return true // local tool; the server binds to loopback by default
	},
}

// WebSocket message types from client.
const (
	wsMsgAnnotate = "annotate"
	wsMsgSelect   = "select"
	wsMsgState    = "state"
)

// WebSocket message types to client.
const (
	wsMsgHello     = "hello"
	wsMsgProgress  = "progress"
	wsMsgSegments  = "segments"
	wsMsgSelection = "selection"
	wsMsgError     = "error"
)

// wsOutboxSize bounds queued messages per connection. Progress updates beyond
// it are dropped; the next one carries the full state anyway.
const wsOutboxSize = 32

// wsMessage is the envelope for WebSocket messages in both directions.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type wsHello struct {
	Session string         `json:"session"`
	State   progress.State `json:"state"`
}

// wsSelectMsg is the payload for "select" messages.
type wsSelectMsg struct {
	Index int `json:"index"`
}

// wsSelectionResponse reports the selection after a toggle.
type wsSelectionResponse struct {
	Index    int                  `json:"index"`
	Selected bool                 `json:"selected"`
	Comment  *model.CommitComment `json:"comment,omitempty"`
}

// wsSession holds the state of one WebSocket connection.
type wsSession struct {
	id        string
	conn      *websocket.Conn
	server    *Server
	outbox    chan wsMessage
	done      chan struct{}
	closeOnce sync.Once

	segments  []annotate.Segment[model.CommitComment]
	selection annotate.Selection[model.CommitComment]
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", "error", err)
		return
	}

	sess := &wsSession{
		id:     uuid.NewString(),
		conn:   conn,
		server: s,
		outbox: make(chan wsMessage, wsOutboxSize),
		done:   make(chan struct{}),
	}
	logger := s.logger.With("session", sess.id)
	logger.Debug("websocket connected", "remote", r.RemoteAddr)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		sess.writeLoop()
	}()

	sess.send(wsMsgHello, wsHello{Session: sess.id, State: s.tracker.State()})
	unsubscribe := s.tracker.Subscribe(func(st progress.State) {
		sess.trySend(wsMsgProgress, st)
	})

	sess.readLoop()

	unsubscribe()
	sess.close()
	<-writerDone
	conn.Close()
	logger.Debug("websocket closed")
}

func (sess *wsSession) readLoop() {
	for {
		_, raw, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sess.server.logger.Warn("websocket read", "session", sess.id, "error", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			sess.sendError("invalid message format")
			continue
		}

		switch msg.Type {
		case wsMsgAnnotate:
			sess.handleAnnotate(msg.Data)
		case wsMsgSelect:
			sess.handleSelect(msg.Data)
		case wsMsgState:
			sess.send(wsMsgProgress, sess.server.tracker.State())
		default:
			sess.sendError("unknown message type: " + msg.Type)
		}
	}
}

func (sess *wsSession) writeLoop() {
	for {
		select {
		case <-sess.done:
			return
		case msg := <-sess.outbox:
			if err := sess.conn.WriteJSON(msg); err != nil {
				sess.server.logger.Warn("ws write", "session", sess.id, "error", err)
				sess.close()
				return
			}
		}
	}
}

func (sess *wsSession) handleAnnotate(data json.RawMessage) {
	var req annotateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		sess.sendError("invalid annotate data")
		return
	}
	segs, err := segmentText(req)
	if err != nil {
		sess.sendError(err.Error())
		return
	}
	sess.segments = segs
	sess.selection.Clear()
	sess.send(wsMsgSegments, annotateResponse{Segments: toSegmentsJSON(segs)})
}

func (sess *wsSession) handleSelect(data json.RawMessage) {
	if sess.segments == nil {
		sess.sendError("no text annotated")
		return
	}
	var req wsSelectMsg
	if err := json.Unmarshal(data, &req); err != nil {
		sess.sendError("invalid select data")
		return
	}
	if req.Index < 0 || req.Index >= len(sess.segments) {
		sess.sendError("index out of range")
		return
	}
	seg := sess.segments[req.Index]
	if !seg.Annotated {
		sess.sendError("segment is not annotated")
		return
	}

	sess.selection.Toggle(seg.Annotation)
	resp := wsSelectionResponse{Index: req.Index}
	if a := sess.selection.Selected(); a != nil {
		c := a.Payload
		resp.Selected = true
		resp.Comment = &c
	}
	sess.send(wsMsgSelection, resp)
}

func encodeWS(msgType string, data any) (wsMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return wsMessage{}, err
	}
	return wsMessage{Type: msgType, Data: raw}, nil
}

// send queues a reply, blocking while the outbox is full.
func (sess *wsSession) send(msgType string, data any) {
	msg, err := encodeWS(msgType, data)
	if err != nil {
		sess.server.logger.Warn("ws marshal", "session", sess.id, "error", err)
		return
	}
	select {
	case sess.outbox <- msg:
	case <-sess.done:
	}
}

// trySend queues a message without blocking the caller.
func (sess *wsSession) trySend(msgType string, data any) {
	msg, err := encodeWS(msgType, data)
	if err != nil {
		return
	}
	select {
	case sess.outbox <- msg:
	case <-sess.done:
	default:
		sess.server.logger.Debug("ws outbox full, dropping message", "session", sess.id, "type", msgType)
	}
}

func (sess *wsSession) sendError(errMsg string) {
	sess.send(wsMsgError, map[string]string{"message": errMsg})
}

func (sess *wsSession) close() {
	sess.closeOnce.Do(func() { close(sess.done) })
}
