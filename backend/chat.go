package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gitea.kood.tech/petrkubec/linkvibez/internal/chatfeed"
	"gitea.kood.tech/petrkubec/linkvibez/internal/store"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsReadLimit  = 1 << 20
)

// ClientFrame is what the browser sends over the chat socket.
type ClientFrame struct {
	Type string `json:"type"` // "message" | "refresh"
	Body string `json:"body,omitempty"`
}

// ServerEvent represents a server-sent event
type ServerEvent struct {
	Type string `json:"type"` // "history" | "message" | "tone" | "info" | "error"
	Data any    `json:"data,omitempty"`
}

// ToneNote is the wingman's read on a message the client just sent.
type ToneNote struct {
	MessageID int64  `json:"message_id"`
	Tone      string `json:"tone"`
	Fallback  bool   `json:"fallback"`
}

// Client represents a WebSocket client connection
type Client struct {
	userID int
	conn   *websocket.Conn
	send   chan ServerEvent
	feed   *chatfeed.Feed
	log    *zap.Logger
}

// Hub tracks open chat sockets so they can be closed on shutdown.
type Hub struct {
	clientsByUser map[int]map[*Client]bool
	mu            sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		clientsByUser: make(map[int]map[*Client]bool),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clientsByUser[c.userID] == nil {
		h.clientsByUser[c.userID] = make(map[*Client]bool)
	}
	h.clientsByUser[c.userID][c] = true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if peers, ok := h.clientsByUser[c.userID]; ok {
		delete(peers, c)
		if len(peers) == 0 {
			delete(h.clientsByUser, c.userID)
		}
	}
}

// connections returns the number of open sockets of a user.
func (h *Hub) connections(userID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clientsByUser[userID])
}

// closeAll tells every client the server is going away and closes its socket.
func (h *Hub) closeAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	deadline := time.Now().Add(time.Second)
	for _, peers := range h.clientsByUser {
		for c := range peers {
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
			_ = c.conn.Close()
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by token auth, not by the handshake
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatPartner resolves {id} to an existing profile other than the viewer.
func chatPartner(a *app, w http.ResponseWriter, r *http.Request, me int) (int, bool) {
	partnerID, ok := pathID(r, "id")
	if !ok || partnerID == me {
		writeError(w, http.StatusBadRequest, "invalid_user_id")
		return 0, false
	}
	if _, err := a.profiles.Get(r.Context(), partnerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return 0, false
		}
		a.log.Error("load chat partner", zap.Int("partner_id", partnerID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "db_error")
		return 0, false
	}
	return partnerID, true
}

// GET /chats/{id}/messages
func chatHistoryHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, _ := userIDFromContext(r.Context())
		partnerID, ok := chatPartner(a, w, r, me)
		if !ok {
			return
		}

		feed, err := chatfeed.Open(r.Context(), a.feedDeps(), me, partnerID)
		if err != nil {
			a.log.Error("open chat", zap.Int("user_id", me), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed_to_fetch_messages")
			return
		}
		defer feed.Close()

		writeJSON(w, http.StatusOK, feed.Transcript())
	}
}

type sendRequest struct {
	Content string `json:"content"`
}

// POST /chats/{id}/messages  {"content": "..."}
func sendMessageHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, _ := userIDFromContext(r.Context())
		partnerID, ok := chatPartner(a, w, r, me)
		if !ok {
			return
		}

		var req sendRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}

		feed, err := chatfeed.Open(r.Context(), a.feedDeps(), me, partnerID)
		if err != nil {
			a.log.Error("open chat", zap.Int("user_id", me), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		defer feed.Close()

		res, err := feed.Send(r.Context(), req.Content)
		if err != nil {
			writeSendError(a, w, me, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func writeSendError(a *app, w http.ResponseWriter, me int, err error) {
	switch {
	case errors.Is(err, chatfeed.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "empty_message")
	case errors.Is(err, chatfeed.ErrNoSession):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		a.log.Error("send message", zap.Int("user_id", me), zap.Error(err))
		writeError(w, http.StatusBadGateway, "send_failed")
	}
}

// GET /ws/chat/{id}?token=...
// Streams the conversation with {id}: the transcript first, then every new
// message once. Clients send {"type":"message","body":"..."} frames and get a
// "tone" event back for each accepted message.
func wsChatHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, ok := a.tokens.userIDFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		partnerID, ok := chatPartner(a, w, r, me)
		if !ok {
			return
		}

		// The feed outlives the upgrade request
		feed, err := chatfeed.Open(context.WithoutCancel(r.Context()), a.feedDeps(), me, partnerID)
		if err != nil {
			a.log.Error("open chat", zap.Int("user_id", me), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		if err := feed.Subscribe(); err != nil {
			feed.Close()
			writeError(w, http.StatusInternalServerError, "subscribe_failed")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			a.log.Warn("websocket upgrade failed", zap.Int("user_id", me), zap.Error(err))
			feed.Close()
			return
		}

		client := &Client{
			userID: me,
			conn:   conn,
			send:   make(chan ServerEvent, 16),
			feed:   feed,
			log:    a.log.With(zap.Int("user_id", me), zap.Int("partner_id", partnerID)),
		}
		a.hub.register(client)
		client.log.Info("chat connected", zap.Int("sockets", a.hub.connections(me)))

		client.send <- ServerEvent{Type: "history", Data: feed.Transcript()}

		go clientWriter(client)
		clientReader(a, client)
	}
}

func (c *Client) push(evt ServerEvent) {
	select {
	case c.send <- evt:
	default:
		// Drop if the client's buffer is full
		c.log.Warn("dropping chat event", zap.String("type", evt.Type))
	}
}

func clientReader(a *app, c *Client) {
	defer func() {
		a.hub.unregister(c)
		c.log.Info("chat disconnected", zap.Int("sockets", a.hub.connections(c.userID)))
		c.feed.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.push(ServerEvent{Type: "error", Data: "invalid_message_format"})
			continue
		}

		switch frame.Type {
		case "message":
			ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Wingman.Timeout+wsWriteWait)
			res, err := c.feed.Send(ctx, frame.Body)
			cancel()
			switch {
			case errors.Is(err, chatfeed.ErrEmptyMessage):
				c.push(ServerEvent{Type: "error", Data: "empty_message"})
			case err != nil:
				c.log.Error("send message", zap.Error(err))
				c.push(ServerEvent{Type: "error", Data: "send_failed"})
			default:
				c.push(ServerEvent{Type: "tone", Data: ToneNote{
					MessageID: res.Message.ID,
					Tone:      res.Tone,
					Fallback:  res.ToneFallback,
				}})
			}

		case "refresh":
			ctx, cancel := context.WithTimeout(context.Background(), wsWriteWait)
			err := c.feed.Refresh(ctx)
			cancel()
			if err != nil {
				c.push(ServerEvent{Type: "error", Data: "refresh_failed"})
				continue
			}
			c.push(ServerEvent{Type: "history", Data: c.feed.Transcript()})

		default:
			c.push(ServerEvent{Type: "error", Data: "unknown_message_type"})
		}
	}
}

func clientWriter(c *Client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	updates := c.feed.Updates()
	for {
		var evt ServerEvent
		select {
		case msg, ok := <-updates:
			if !ok {
				return
			}
			evt = ServerEvent{Type: "message", Data: msg}
		case evt = <-c.send:
		case <-ticker.C:
			// ping to keep the connection alive
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}

		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteJSON(evt); err != nil {
			return
		}
	}
}
