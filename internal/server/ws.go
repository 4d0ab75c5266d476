package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"quantpaper/internal/hub"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsConn serializes writes: the broadcast pump and the control replies from
// the read loop share one connection.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

func (s *Server) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sess := s.hub.Register()
	s.log.Info().Uint64("session", sess.ID()).Str("remote", conn.RemoteAddr().String()).Msg("websocket connected")

	wc := &wsConn{conn: conn}
	go s.writePump(wc, sess)
	s.readPump(wc, sess)
}

// writePump drains the session queue onto the wire. When the hub closes the
// queue (shutdown or keepalive reap) the client gets a service-restart close
// frame so it knows to reconnect.
func (s *Server) writePump(wc *wsConn, sess *hub.Session) {
	defer wc.conn.Close()

	for msg := range sess.Out() {
		if err := wc.write(websocket.TextMessage, msg); err != nil {
			s.hub.Unregister(sess)
			return
		}
	}

	frame := websocket.FormatCloseMessage(websocket.CloseServiceRestart, "server closing")
	_ = wc.write(websocket.CloseMessage, frame)
}

// readPump consumes client frames for keepalive only. Any frame refreshes
// the deadline; "ping" and "hello" get small JSON acknowledgements.
func (s *Server) readPump(wc *wsConn, sess *hub.Session) {
	defer func() {
		s.hub.Unregister(sess)
		wc.conn.Close()
		s.log.Info().Uint64("session", sess.ID()).Msg("websocket disconnected")
	}()

	wc.conn.SetReadLimit(1 << 16)
	wc.conn.SetReadDeadline(time.Now().Add(s.keepalive))
	wc.conn.SetPongHandler(func(string) error {
		sess.Touch()
		wc.conn.SetReadDeadline(time.Now().Add(s.keepalive))
		return nil
	})

	for {
		_, message, err := wc.conn.ReadMessage()
		if err != nil {
			return
		}
		sess.Touch()
		wc.conn.SetReadDeadline(time.Now().Add(s.keepalive))

		switch strings.TrimSpace(string(message)) {
		case "ping":
			s.reply(wc, "pong")
		case "hello":
			s.reply(wc, "ack")
		}
	}
}

func (s *Server) reply(wc *wsConn, kind string) {
	msg, _ := json.Marshal(map[string]any{"type": kind, "ts": time.Now().UTC()})
	if err := wc.write(websocket.TextMessage, msg); err != nil {
		s.log.Debug().Err(err).Msg("websocket control reply failed")
	}
}
