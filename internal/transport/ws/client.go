package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"crewmate/internal/app"
	"crewmate/internal/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait).
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Size of the send channel buffer.
	sendBufferSize = 256
)

// Client is one WebSocket connection. It joins the session roster on
// the first join message and leaves it when the socket closes.
type Client struct {
	conn    *websocket.Conn
	session *app.Session
	send    chan []byte
	done    chan struct{}
	logger  *slog.Logger

	mu       sync.Mutex
	playerID string
	closed   bool
}

// NewClient creates a client for an upgraded connection.
func NewClient(conn *websocket.Conn, session *app.Session, logger *slog.Logger) *Client {
	return &Client{
		conn:    conn,
		session: session,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// PlayerID returns the roster id, or empty before the join message.
func (c *Client) PlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

func (c *Client) setPlayerID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = id
}

// Send implements app.ClientConnection. Events are wrapped in the
// server envelope; a full buffer drops the message rather than
// blocking the session.
func (c *Client) Send(event *domain.Event) error {
	return c.write(NewServerMessage(MessageType(event.Type), event.Payload))
}

func (c *Client) write(msg *ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("send buffer full, message dropped", "player", c.playerID)
		return nil
	}
}

// Close implements app.ClientConnection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the client's read and write pumps.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection. When the
// socket drops, the player leaves the roster.
func (c *Client) readPump() {
	defer func() {
		if id := c.PlayerID(); id != "" {
			c.session.UnregisterClient(id)
			c.session.Leave(id)
		}
		c.Close()
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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

// handleMessage routes an inbound intent to the session.
func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid message format")
		return
	}

	if msg.Type == MsgJoin {
		c.handleJoin(msg)
		return
	}
	if msg.Type == MsgPing {
		c.write(NewServerMessage(MsgPong, nil))
		return
	}

	playerID := c.PlayerID()
	if playerID == "" {
		c.sendError(ErrCodeNotJoined, "Join before sending intents")
		return
	}

	switch msg.Type {
	case MsgInput:
		if msg.Dir == nil {
			c.sendError(ErrCodeInvalidMessage, "Direction is required")
			return
		}
		c.session.Move(playerID, *msg.Dir)
	case MsgKill:
		c.handleResult(c.session.Kill(playerID, msg.Target))
	case MsgReport:
		c.handleResult(c.session.Report(playerID))
	case MsgEmergency:
		c.handleResult(c.session.Emergency(playerID))
	case MsgVote:
		if msg.Target == "" {
			c.sendError(ErrCodeInvalidMessage, "Vote target is required")
			return
		}
		c.handleResult(c.session.Vote(playerID, msg.Target))
	case MsgTaskComplete:
		c.handleResult(c.session.CompleteTask(playerID, domain.TaskID(msg.Task)))
	case MsgSabotage:
		c.handleResult(c.session.ActivateSabotage(playerID, domain.SabotageID(msg.Sabotage)))
	case MsgStartGame:
		c.handleResult(c.session.StartGame(playerID))
	default:
		c.sendError(ErrCodeInvalidMessage, "Unknown message type")
	}
}

// handleJoin adds the connection to the roster.
func (c *Client) handleJoin(msg ClientMessage) {
	if c.PlayerID() != "" {
		c.sendError(ErrCodeInvalidMessage, "Already joined")
		return
	}
	if msg.Name == "" {
		c.sendError(ErrCodeInvalidMessage, "Name is required")
		return
	}
	color := msg.Color
	if color == "" {
		color = "Red"
	}

	player, err := c.session.Join(msg.Name, color)
	if err != nil {
		if errors.Is(err, domain.ErrSessionFull) {
			c.sendError(ErrCodeSessionFull, "Session is full")
		} else {
			c.sendError(ErrCodeInternalError, err.Error())
		}
		return
	}

	c.setPlayerID(player.ID)
	c.session.RegisterClient(player.ID, c)

	c.write(NewServerMessage(MsgConnected, &ConnectedPayload{
		PlayerID: player.ID,
		RoomCode: c.session.ID(),
		State:    c.session.Snapshot(),
	}))
}

// handleResult maps a session error onto the wire. Policy rejections
// are dropped silently; validation failures get an error message.
func (c *Client) handleResult(err error) {
	if err == nil || app.IsPolicyRejection(err) {
		return
	}

	switch {
	case errors.Is(err, domain.ErrUnknownTask):
		c.sendError(ErrCodeUnknownTask, "Unknown task id")
	case errors.Is(err, domain.ErrUnknownSabotage):
		c.sendError(ErrCodeUnknownSabotage, "Unknown sabotage id")
	case errors.Is(err, domain.ErrUnknownPlayer), errors.Is(err, domain.ErrInvalidVoteTarget):
		c.sendError(ErrCodeUnknownPlayer, "Unknown player id")
	case errors.Is(err, domain.ErrNotHost):
		c.sendError(ErrCodeNotHost, "Only the host can start the game")
	case errors.Is(err, domain.ErrNotEnoughPlayers), errors.Is(err, domain.ErrAlreadyStarted):
		c.sendError(ErrCodeCannotStart, err.Error())
	default:
		c.sendError(ErrCodeInternalError, err.Error())
	}
}

// sendError sends an error message to the client.
func (c *Client) sendError(code, message string) {
	c.write(NewServerMessage(MsgError, &ErrorPayload{Code: code, Message: message}))
}
