// Package websocket carries hub events over WebSocket connections.
// Each connection gets a channel id, a buffered Send queue, and a pair of
// read/write pumps. Inbound frames are decoded and handed to the dispatch
// reactor; outbound events arrive through Gateway.Emit.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/domain/dispatch"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// Outbound delivery results reported to the Observer.
const (
	OutboundQueued  = "queued"
	OutboundDropped = "dropped"
	OutboundClosed  = "closed"
)

// Observer is notified about connection lifecycle and outbound delivery.
type Observer interface {
	ObserveOutbound(result string)
	ConnectionOpened()
	ConnectionClosed()
}

type nopObserver struct{}

func (nopObserver) ObserveOutbound(string) {}
func (nopObserver) ConnectionOpened()      {}
func (nopObserver) ConnectionClosed()      {}

// Submitter accepts decoded inbound events. *dispatch.Reactor satisfies it.
type Submitter interface {
	Submit(ctx context.Context, ch dispatch.ChannelID, ev dispatch.Inbound) error
}

// Client represents a single WebSocket connection.
type Client struct {
	ID   dispatch.ChannelID
	Send chan []byte
}

// Gateway tracks live connections by channel id and implements
// dispatch.Emitter. All operations are thread-safe via sync.RWMutex.
type Gateway struct {
	mu         sync.RWMutex
	clients    map[dispatch.ChannelID]*Client
	sendBuffer int
	logger     zerolog.Logger
	obs        Observer
}

// NewGateway creates a Gateway whose clients buffer up to sendBuffer frames.
// obs may be nil.
func NewGateway(sendBuffer int, logger zerolog.Logger, obs Observer) *Gateway {
	if sendBuffer <= 0 {
		sendBuffer = 1
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &Gateway{
		clients:    make(map[dispatch.ChannelID]*Client),
		sendBuffer: sendBuffer,
		logger:     logger.With().Str("component", "ws-gateway").Logger(),
		obs:        obs,
	}
}

// NewClient allocates a client with a fresh channel id. It is not
// registered yet.
func (g *Gateway) NewClient() *Client {
	return &Client{
		ID:   dispatch.ChannelID(uuid.New().String()),
		Send: make(chan []byte, g.sendBuffer),
	}
}

// Register adds a client. Registering an id twice replaces nothing and
// returns false.
func (g *Gateway) Register(client *Client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.clients[client.ID]; ok {
		return false
	}
	g.clients[client.ID] = client
	g.obs.ConnectionOpened()
	return true
}

// Unregister removes the client and closes its Send channel. Unknown ids
// are ignored.
func (g *Gateway) Unregister(id dispatch.ChannelID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	client, ok := g.clients[id]
	if !ok {
		return
	}
	delete(g.clients, id)
	close(client.Send)
	g.obs.ConnectionClosed()
}

// CloseAll unregisters every client. Write pumps answer with a close frame
// and tear the connection down.
func (g *Gateway) CloseAll() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id, client := range g.clients {
		delete(g.clients, id)
		close(client.Send)
		g.obs.ConnectionClosed()
	}
}

// Emit encodes ev and queues it for ch without blocking. A full buffer
// drops the frame; a channel that already left is skipped.
func (g *Gateway) Emit(ch dispatch.ChannelID, ev dispatch.Outbound) {
	data, err := dispatch.Encode(ev)
	if err != nil {
		g.logger.Error().Err(err).Str("event", ev.EventName()).Msg("failed to encode event")
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	client, ok := g.clients[ch]
	if !ok {
		g.obs.ObserveOutbound(OutboundClosed)
		return
	}
	select {
	case client.Send <- data:
		g.obs.ObserveOutbound(OutboundQueued)
	default:
		g.obs.ObserveOutbound(OutboundDropped)
		g.logger.Warn().Str("channel", string(ch)).Str("event", ev.EventName()).Msg("send buffer full, frame dropped")
	}
}

// ClientCount returns the number of connected clients.
func (g *Gateway) ClientCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients)
}

// ---------------------------------------------------------------------------
// Handler: Echo HTTP handler for WebSocket connections
// ---------------------------------------------------------------------------

// Handler upgrades HTTP requests and runs the pumps for each connection.
type Handler struct {
	gateway  *Gateway
	sub      Submitter
	upgrader gorillawebsocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler binds the gateway to the reactor. checkOrigin may be nil,
// in which case every origin is accepted.
func NewHandler(gateway *Gateway, sub Submitter, logger zerolog.Logger, checkOrigin func(*http.Request) bool) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		gateway: gateway,
		sub:     sub,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger.With().Str("component", "ws").Logger(),
	}
}

// RegisterRoutes registers the WebSocket endpoint on the provided Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", h.HandleConnect)
}

// HandleConnect upgrades the connection, registers a client, and serves it
// until the peer goes away. The write pump runs on its own goroutine.
func (h *Handler) HandleConnect(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := h.gateway.NewClient()
	h.gateway.Register(client)
	log := h.logger.With().Str("channel", string(client.ID)).Str("remote_ip", c.RealIP()).Logger()
	log.Info().Msg("connection opened")

	go h.writePump(client, ws, log)
	h.readPump(c.Request().Context(), client, ws, log)
	return nil
}

// readPump decodes frames and submits them in arrival order. When the
// connection ends it submits a disconnect for the channel.
func (h *Handler) readPump(ctx context.Context, client *Client, ws *gorillawebsocket.Conn, log zerolog.Logger) {
	defer func() {
		// ctx may already be done here; the disconnect must still reach the hub.
		dctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		if err := h.sub.Submit(dctx, client.ID, dispatch.Disconnect{}); err != nil {
			log.Warn().Err(err).Msg("disconnect not delivered")
		}
		h.gateway.Unregister(client.ID)
		ws.Close()
		log.Info().Msg("connection closed")
	}()

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if gorillawebsocket.IsUnexpectedCloseError(err, gorillawebsocket.CloseGoingAway, gorillawebsocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("read failed")
			}
			return
		}

		var env dispatch.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			log.Warn().Err(err).Msg("malformed frame dropped")
			continue
		}
		ev, err := dispatch.DecodeInbound(env)
		if err != nil {
			log.Warn().Err(err).Str("event", env.Event).Msg("frame dropped")
			continue
		}
		if err := h.sub.Submit(ctx, client.ID, ev); err != nil {
			if errors.Is(err, dispatch.ErrReactorStopped) {
				return
			}
			log.Warn().Err(err).Str("event", env.Event).Msg("submit failed")
		}
	}
}

// writePump writes frames from the Send channel and keeps the peer alive
// with pings. A closed Send channel ends the connection with a close frame.
func (h *Handler) writePump(client *Client, ws *gorillawebsocket.Conn, log zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(gorillawebsocket.CloseMessage, gorillawebsocket.FormatCloseMessage(gorillawebsocket.CloseNormalClosure, ""))
				return
			}
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Msg("write failed")
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
