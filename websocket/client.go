package websocket

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/CUknot/forum_backend/chat"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// Client binds one websocket connection to its chat session.
type Client struct {
	conn     *websocket.Conn
	session  *chat.Session
	registry *chat.Registry
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func newClient(conn *websocket.Conn, session *chat.Session, registry *chat.Registry, log *zap.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		conn:     conn,
		session:  session,
		registry: registry,
		log:      log.With(zap.String("session_id", session.ID), zap.String("user_id", session.UserID)),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// readPump pumps events from the websocket connection into the registry.
// Returning from it tears the session down.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.registry.Disconnect(c.session)
		c.conn.Close()
		c.log.Info("user disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) && !isExpectedCloseError(err) {
				c.log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		HandleIncomingMessage(c, message)
	}
}

// writePump pumps queued frames from the session to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.session.Outbound():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				if !isExpectedCloseError(err) {
					c.log.Debug("websocket write failed", zap.Error(err))
				}
				c.session.Close()
				return
			}
		case <-c.session.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.session.Close()
				return
			}
		}
	}
}

// isExpectedCloseError reports errors that only mean the peer is already gone.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, websocket.ErrCloseSent)
}
