package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/dto/request"
	"clinic_chat_server/internal/dto/respond"
	"clinic_chat_server/internal/infrastructure/metrics"
	"clinic_chat_server/internal/service/access"
	"clinic_chat_server/pkg/constants"
	"clinic_chat_server/pkg/util/jwt"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// websocket close codes
const (
	CloseUnauthorized = 4401
	CloseForbidden    = 4403
)

// ReadMarker is the read tracker as seen by live sessions.
type ReadMarker interface {
	MarkRead(ctx context.Context, roomID, userID, lastMessageID uint) (*respond.MarkReadRespond, error)
	Advance(ctx context.Context, roomID, userID, lastMessageID uint) (*respond.MarkReadRespond, error)
}

// Gateway accepts websocket connections for one room each.
type Gateway struct {
	repos    *repository.Repositories
	guard    *access.Guard
	hub      *Hub
	broker   MessageBroker
	reads    ReadMarker
	upgrader websocket.Upgrader
}

// NewGateway wires the gateway; reads receives seen-on-delivery cursor moves.
func NewGateway(repos *repository.Repositories, hub *Hub, broker MessageBroker, reads ReadMarker) *Gateway {
	return &Gateway{
		repos:  repos,
		guard:  access.NewGuard(repos),
		hub:    hub,
		broker: broker,
		reads:  reads,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  2048,
			WriteBufferSize: 2048,
			// browsers connect from the web app origin; auth is the token
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades the request and runs a session for roomID.
// Steps:
//  1. upgrade, so rejections can carry a close code
//  2. verify the access token, else close 4401
//  3. run the access guard, else close 4403
//  4. register the session and start its pumps
func (g *Gateway) Serve(w http.ResponseWriter, r *http.Request, roomID uint, token string) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	claims, err := jwt.ParseToken(token)
	if err != nil || claims.Subject != "access_token" {
		closeWith(conn, CloseUnauthorized, "unauthorized")
		return
	}
	user, err := g.repos.User.FindByID(claims.UserID)
	if err != nil || !user.Usable() {
		closeWith(conn, CloseUnauthorized, "unauthorized")
		return
	}
	if ok, err := g.guard.CanAccess(roomID, user.ID); err != nil || !ok {
		closeWith(conn, CloseForbidden, "forbidden")
		return
	}

	s := newSession(conn, user.ID, roomID, g)
	if ev, err := connectedEvent(roomID); err == nil {
		s.send <- ev
	}
	g.hub.Register(s)
	metrics.RecordWebSocketConnection()
	zap.L().Info("websocket connected", zap.Uint("room_id", roomID), zap.Uint("user_id", user.ID))

	go s.writePump()
	go s.readPump()
}

func closeWith(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(constants.WS_WRITE_WAIT)
	if err := conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline); err != nil {
		zap.L().Debug("write close frame failed", zap.Error(err))
	}
	_ = conn.Close()
}

// Session is one websocket connection subscribed to one room.
type Session struct {
	conn   *websocket.Conn
	userID uint
	roomID uint
	send   chan Event
	gw     *Gateway
}

func newSession(conn *websocket.Conn, userID, roomID uint, gw *Gateway) *Session {
	return &Session{
		conn:   conn,
		userID: userID,
		roomID: roomID,
		send:   make(chan Event, constants.CHANNEL_SIZE),
		gw:     gw,
	}
}

// readPump handles client events until the connection fails, then tears
// the session down.
func (s *Session) readPump() {
	defer func() {
		s.gw.hub.Unregister(s)
		_ = s.conn.Close()
		metrics.RecordWebSocketDisconnection()
		zap.L().Info("websocket disconnected", zap.Uint("room_id", s.roomID), zap.Uint("user_id", s.userID))
	}()

	s.conn.SetReadLimit(constants.MAX_MESSAGE_SIZE)
	_ = s.conn.SetReadDeadline(time.Now().Add(constants.WS_PONG_WAIT))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(constants.WS_PONG_WAIT))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Warn("websocket read failed", zap.Uint("user_id", s.userID), zap.Error(err))
			}
			return
		}
		var in request.ClientEvent
		if err := json.Unmarshal(data, &in); err != nil {
			zap.L().Debug("ignoring malformed client event", zap.Uint("user_id", s.userID), zap.Error(err))
			continue
		}
		if !s.handle(in) {
			return
		}
	}
}

// stillAllowed re-runs the access guard. Membership and mute changes
// commit without touching live sessions, so every frame in either
// direction is checked again. A failed lookup counts as revoked;
// the client reconnects through the full guard.
func (s *Session) stillAllowed() bool {
	ok, err := s.gw.guard.CanAccess(s.roomID, s.userID)
	if err != nil {
		zap.L().Warn("websocket access recheck failed", zap.Uint("room_id", s.roomID), zap.Uint("user_id", s.userID), zap.Error(err))
		return false
	}
	return ok
}

func (s *Session) revoke() {
	zap.L().Info("websocket access revoked", zap.Uint("room_id", s.roomID), zap.Uint("user_id", s.userID))
	closeWith(s.conn, CloseForbidden, "forbidden")
}

// handle reports false once the session lost access and was closed.
func (s *Session) handle(in request.ClientEvent) bool {
	if in.Type != EventTyping && in.Type != EventRead {
		return true
	}
	if !s.stillAllowed() {
		s.revoke()
		return false
	}
	ctx := context.Background()
	switch in.Type {
	case EventTyping:
		ev, err := TypingEvent(s.roomID, s.userID)
		if err == nil {
			err = s.gw.broker.Publish(ctx, ev)
		}
		metrics.RecordEventPublished(EventTyping, err)
		if err != nil {
			zap.L().Debug("publish typing failed", zap.Uint("room_id", s.roomID), zap.Error(err))
		}
	case EventRead:
		if _, err := s.gw.reads.MarkRead(ctx, s.roomID, s.userID, in.LastMessageID); err != nil {
			zap.L().Warn("mark read from websocket failed", zap.Uint("room_id", s.roomID), zap.Uint("user_id", s.userID), zap.Error(err))
		}
	}
	return true
}

// writePump writes queued frames and pings. A delivered message from
// someone else moves the reader's cursor to it.
// Steps per room event:
//  1. re-run the access guard, else close 4403 before anything is written
//  2. write the frame
//  3. for a foreign message, advance the cursor (seen on delivery)
func (s *Session) writePump() {
	ticker := time.NewTicker(constants.WS_PING_PERIOD)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(constants.WS_WRITE_WAIT))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if ev.Type != EventConnected && !s.stillAllowed() {
				s.revoke()
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, ev.Frame); err != nil {
				zap.L().Debug("websocket write failed", zap.Uint("user_id", s.userID), zap.Error(err))
				return
			}
			if ev.Type == EventMessage && ev.UserID != s.userID {
				if _, err := s.gw.reads.Advance(context.Background(), s.roomID, s.userID, ev.MessageID); err != nil {
					zap.L().Warn("seen on delivery failed", zap.Uint("room_id", s.roomID), zap.Uint("user_id", s.userID), zap.Error(err))
				}
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(constants.WS_WRITE_WAIT))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
