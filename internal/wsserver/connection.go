package wsserver

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/riverline/holdem-table/internal/betting"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 256
)

// Connection wraps one client's websocket, dispatching inbound events
// into the registry and draining outbound events onto the socket.
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	registry  *Registry
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu       sync.RWMutex
	playerID string
	tableID  string
}

// NewConnection wraps an upgraded websocket connection.
func NewConnection(conn *websocket.Conn, registry *Registry, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:     conn,
		send:     make(chan *Message, sendBufferSize),
		registry: registry,
		logger:   logger.WithPrefix("conn"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the connection's read and write pumps.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close tears down the connection and, if it was seated at a table,
// leaves that table with the same semantics as an explicit leave_table.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if room, ok := c.registry.Lookup(c.getTable()); ok {
			_ = room.Leave(c)
		}
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage enqueues msg for delivery, closing the connection if its
// outbound buffer is full rather than blocking the caller indefinitely.
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("send on closed connection", "recovered", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("send buffer full, closing connection", "player", c.getPlayer())
		_ = c.Close()
		return websocket.ErrCloseSent
	}
}

func (c *Connection) setPlayer(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = id
}

func (c *Connection) getPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

func (c *Connection) setTable(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = id
}

func (c *Connection) getTable() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("read error", "error", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Error("write error", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Connection) handleMessage(msg *Message) {
	switch msg.Type {
	case MessageJoinTable:
		var data JoinTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.reply(msg.Type, false, "invalid join_table payload")
			return
		}
		c.handleJoinTable(data)

	case MessageLeaveTable:
		c.handleLeaveTable()

	case MessageActionFold:
		c.handleAction(msg.Type, betting.Fold, 0)
	case MessageActionCheck:
		c.handleAction(msg.Type, betting.Check, 0)
	case MessageActionCall:
		c.handleAction(msg.Type, betting.Call, 0)

	case MessageActionBet:
		var data ActionBetData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.reply(msg.Type, false, "invalid action_bet payload")
			return
		}
		if err := validateWagerAmount(data.Amount); err != nil {
			c.reply(msg.Type, false, err.Error())
			return
		}
		c.handleAction(msg.Type, betting.Bet, data.Amount)

	case MessageActionRaise:
		var data ActionRaiseData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.reply(msg.Type, false, "invalid action_raise payload")
			return
		}
		if err := validateWagerAmount(data.Amount); err != nil {
			c.reply(msg.Type, false, err.Error())
			return
		}
		c.handleAction(msg.Type, betting.Raise, data.Amount)

	case MessageChatSend:
		var data ChatSendData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.reply(msg.Type, false, "invalid chat_send payload")
			return
		}
		c.handleChat(data)

	case MessageListTables:
		c.handleListTables()

	default:
		c.reply(msg.Type, false, "unknown message type: "+msg.Type.String())
	}
}

func (c *Connection) handleJoinTable(data JoinTableData) {
	if err := validateName(data.Name); err != nil {
		c.reply(MessageJoinTable, false, err.Error())
		return
	}

	room, ok := c.registry.Lookup(data.TableID)
	if !ok {
		c.reply(MessageJoinTable, false, "table not found")
		return
	}

	playerID, _, err := room.Join(c, data.Name, data.Spectate)
	if err != nil {
		c.reply(MessageJoinTable, false, err.Error())
		return
	}

	c.sendJSON(MessageJoinTable, Reply{Success: true, PlayerID: playerID})
}

func (c *Connection) handleLeaveTable() {
	room, ok := c.registry.Lookup(c.getTable())
	if !ok {
		c.reply(MessageLeaveTable, false, "not at a table")
		return
	}
	if err := room.Leave(c); err != nil {
		c.reply(MessageLeaveTable, false, err.Error())
		return
	}
	c.setTable("")
	c.reply(MessageLeaveTable, true, "")
}

func (c *Connection) handleAction(t MessageType, action betting.Action, amount int) {
	room, ok := c.registry.Lookup(c.getTable())
	if !ok {
		c.reply(t, false, "not at a table")
		return
	}
	if err := room.Act(c.getPlayer(), action, amount); err != nil {
		c.reply(t, false, err.Error())
		return
	}
	c.reply(t, true, "")
}

func (c *Connection) handleChat(data ChatSendData) {
	room, ok := c.registry.Lookup(c.getTable())
	if !ok {
		c.reply(MessageChatSend, false, "not at a table")
		return
	}
	trimmed, err := validateChatMessage(data.Message)
	if err != nil {
		c.reply(MessageChatSend, false, err.Error())
		return
	}
	room.Chat(c.getPlayer(), trimmed)
	c.reply(MessageChatSend, true, "")
}

func (c *Connection) handleListTables() {
	c.sendJSON(MessageTableList, TableListData{Tables: c.registry.List()})
}

// reply sends the {success, error?} envelope every inbound request/reply
// event carries back to its originating caller, tagged with the
// request's own message type so the client can correlate it.
func (c *Connection) reply(t MessageType, success bool, errMsg string) {
	c.sendJSON(t, Reply{Success: success, Error: errMsg})
}

func (c *Connection) sendJSON(t MessageType, data interface{}) {
	msg, err := NewMessage(t, data)
	if err != nil {
		c.logger.Error("failed to encode reply", "error", err)
		return
	}
	_ = c.SendMessage(msg)
}
