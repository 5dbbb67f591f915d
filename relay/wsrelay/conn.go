package wsrelay

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	frameSubscribe  = "subscribe"
	frameSubscribed = "subscribed"
	frameMessage    = "message"
	frameError      = "error"
)

// frame is the unit exchanged between relay clients and the hub server.
type frame struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

var errConnClosed = errors.New("wsrelay: connection closed")

func isControl(frameType int) bool {
	return frameType == websocket.CloseMessage || frameType == websocket.PingMessage || frameType == websocket.PongMessage
}

type wsMessage struct {
	mt      int
	data    []byte
	timeout time.Duration
}

func (m *wsMessage) controlTimeout() time.Duration {
	if m.timeout == 0 {
		return 1 * time.Second
	}
	return m.timeout
}

// wsConn owns all writes to a websocket connection.
type wsConn struct {
	conn      *websocket.Conn
	msgOut    chan wsMessage
	done      chan struct{} // closed when the read side stops
	closeOnce sync.Once
	stop      chan struct{}
	logger    *slog.Logger
}

func newWSConn(conn *websocket.Conn, logger *slog.Logger) *wsConn {
	conn.SetPingHandler(func(message string) error {
		logger.Debug("received ping")
		err := conn.WriteControl(websocket.PongMessage, []byte(message), time.Now().Add(1*time.Second))
		if err == websocket.ErrCloseSent {
			return nil
		} else if e, ok := err.(net.Error); ok && e.Timeout() {
			return nil
		}
		return err
	})

	return &wsConn{
		conn:   conn,
		msgOut: make(chan wsMessage, 16),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
		logger: logger,
	}
}

func (w *wsConn) writeFrame(f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	select {
	case w.msgOut <- wsMessage{mt: websocket.TextMessage, data: data}:
		return nil
	case <-w.done:
		return errConnClosed
	case <-w.stop:
		return errConnClosed
	}
}

// readLoop hands every text frame to fn until the connection fails.
func (w *wsConn) readLoop(fn func(f frame)) {
	defer close(w.done)
	for {
		mt, data, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.logger.Debug("connection was closed by other peer")
			} else {
				w.logger.Debug("read failed", slog.Any("err", err))
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			w.logger.Warn("dropping malformed frame", slog.Any("err", err))
			continue
		}
		fn(f)
	}
}

// writeLoop sends queued messages and pings until the connection is done or
// closed.
func (w *wsConn) writeLoop(pingInterval time.Duration) {
	defer func() {
		if err := w.conn.Close(); err != nil {
			w.logger.Debug("connection close failed", slog.Any("err", err))
		}
	}()

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-w.done:
			return

		case <-w.stop:
			_ = w.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closed"),
				time.Now().Add(time.Second),
			)
			return

		case <-pingTicker.C:
			if err := w.write(wsMessage{mt: websocket.PingMessage, data: []byte{}}); err != nil {
				return
			}

		case msg := <-w.msgOut:
			if err := w.write(msg); err != nil {
				return
			}
		}
	}
}

func (w *wsConn) write(msg wsMessage) error {
	var err error
	if isControl(msg.mt) {
		err = w.conn.WriteControl(msg.mt, msg.data, time.Now().Add(msg.controlTimeout()))
	} else {
		err = w.conn.WriteMessage(msg.mt, msg.data)
	}
	if err != nil {
		w.logger.Error("write failed", slog.Int("mt", msg.mt), slog.Any("err", err))
	}
	return err
}

func (w *wsConn) close() {
	w.closeOnce.Do(func() {
		close(w.stop)
	})
}
