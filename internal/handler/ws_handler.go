package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/AJ-AI23/verjson-sub008/internal/service"
	"github.com/AJ-AI23/verjson-sub008/internal/session"
	"github.com/AJ-AI23/verjson-sub008/internal/websocket"
)

type WebSocketHandler struct {
	manager  *websocket.Manager
	upgrader ws.Upgrader
	log      zerolog.Logger
}

func NewWebSocketHandler(manager *websocket.Manager, readBufferSize, writeBufferSize int, log zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		upgrader: ws.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log,
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	clientID := uuid.New().String()
	client := websocket.NewClient(clientID, conn, h.manager)

	h.manager.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// WebSocketMessageHandler routes inbound client messages: document
// subscriptions, collaborative buffer ops and keepalives.
type WebSocketMessageHandler struct {
	manager  *websocket.Manager
	sessions *service.SessionService
	log      zerolog.Logger
}

func NewWebSocketMessageHandler(manager *websocket.Manager, sessions *service.SessionService, log zerolog.Logger) *WebSocketMessageHandler {
	return &WebSocketMessageHandler{
		manager:  manager,
		sessions: sessions,
		log:      log,
	}
}

func (h *WebSocketMessageHandler) HandleWebSocketMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypeSubscribe:
		return h.handleSubscribe(client, msg)

	case websocket.TypeUnsubscribe:
		return h.handleUnsubscribe(client, msg)

	case websocket.TypeBufferOp:
		return h.handleBufferOp(client, msg)

	case websocket.TypePing:
		return h.handlePing(client)

	default:
		h.log.Warn().Str("type", string(msg.Type)).Msg("unknown message type")
	}

	return nil
}

func (h *WebSocketMessageHandler) handleSubscribe(client *websocket.Client, msg *websocket.Message) error {
	var payload websocket.SubscribePayload
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return err
	}

	ok := h.manager.Subscribe(client, payload.DocumentID)

	ack, err := websocket.NewMessage(websocket.TypeAck, &websocket.AckPayload{
		DocumentID: payload.DocumentID,
		Success:    ok,
	})
	if err != nil {
		return err
	}

	// Delivery goes through the manager so a client that was just
	// unregistered (closed send channel) or has a full buffer cannot
	// panic or stall the message loop.
	return h.manager.SendToClient(client.ID, ack)
}

func (h *WebSocketMessageHandler) handleUnsubscribe(client *websocket.Client, msg *websocket.Message) error {
	var payload websocket.SubscribePayload
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return err
	}

	h.manager.Unsubscribe(client, payload.DocumentID)
	return nil
}

// handleBufferOp folds a collaborator's edit into the server-side session
// and relays it to the document's other subscribers.
func (h *WebSocketMessageHandler) handleBufferOp(client *websocket.Client, msg *websocket.Message) error {
	var payload websocket.BufferOpPayload
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return err
	}

	var op session.Op
	if err := json.Unmarshal(payload.Op, &op); err != nil {
		return err
	}

	h.sessions.Integrate(payload.DocumentID, op)

	relay, err := websocket.NewMessage(websocket.TypeBufferOp, &payload)
	if err != nil {
		return err
	}

	return h.manager.BroadcastToDocument(payload.DocumentID, relay, client.ID)
}

func (h *WebSocketMessageHandler) handlePing(client *websocket.Client) error {
	pongMsg, err := websocket.NewMessage(websocket.TypePong, nil)
	if err != nil {
		return err
	}

	return h.manager.SendToClient(client.ID, pongMsg)
}
