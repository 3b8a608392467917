package realtime

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"grumblr/internal/config"
)

type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	}
	return "closed"
}

// Gateway upgrades HTTP requests to WebSocket connections and joins them to the global stream.
type Gateway struct {
	hub      *Hub
	cfg      config.StreamConfig
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewGateway(hub *Hub, cfg config.StreamConfig, log zerolog.Logger) *Gateway {
	return &Gateway{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// stream 是公开只读的，不校验 Origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "gateway").Logger(),
	}
}

// HandleStream is the gin handler for the stream endpoint.
func (g *Gateway) HandleStream(c *gin.Context) {
	client := newClient(g.cfg.SendBuffer)

	ws, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写回了错误响应
		g.log.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	client.ws = ws
	client.state.Store(int32(StateOpen))

	if !g.hub.Join(GlobalStream, client) {
		client.Close()
		_ = ws.Close()
		return
	}
	g.log.Debug().Str("conn", client.id).Int("members", g.hub.Members(GlobalStream)).Msg("Stream connected")

	go g.writePump(client)
	go g.readPump(client)
}

// readPump discards inbound frames; reading is what processes pongs and close frames.
func (g *Gateway) readPump(c *client) {
	defer func() {
		g.hub.Leave(GlobalStream, c)
		c.Close()
		g.log.Debug().Str("conn", c.id).Msg("Stream disconnected")
	}()

	c.ws.SetReadLimit(g.cfg.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(g.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(g.cfg.PongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only goroutine writing to the socket, so frames leave in enqueue order.
func (g *Gateway) writePump(c *client) {
	ticker := time.NewTicker(g.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(g.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				g.log.Debug().Err(err).Str("conn", c.id).Msg("Stream write failed")
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(g.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}

// client is one WebSocket listener.
type client struct {
	id    string
	ws    *websocket.Conn
	send  chan []byte
	done  chan struct{}
	once  sync.Once
	state atomic.Int32
}

func newClient(buffer int) *client {
	return &client{
		id:   uuid.NewString(),
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (c *client) ID() string { return c.id }

func (c *client) State() State { return State(c.state.Load()) }

// Send enqueues payload without blocking.
func (c *client) Send(payload []byte) error {
	if c.State() == StateClosed {
		return ErrConnClosed
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSlowConsumer
	}
}

// Close moves the client to StateClosed exactly once and stops the write pump.
func (c *client) Close() {
	c.once.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.done)
	})
}
