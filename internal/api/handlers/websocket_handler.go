package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/isdelr/annotation-hub-be/internal/auth"
	"github.com/isdelr/annotation-hub-be/internal/services"
	ws "github.com/isdelr/annotation-hub-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles upgrading HTTP connections to WebSocket connections.
type WebSocketHandler struct {
	hub      *ws.Hub
	projects services.ProjectServiceProvider
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler accepting upgrades from the given origins.
func NewWebSocketHandler(hub *ws.Hub, projects services.ProjectServiceProvider, allowedOrigins []string) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return &WebSocketHandler{
		hub:      hub,
		projects: projects,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Serve handles the WebSocket connection request.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, claims.UserID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(func(c *ws.Client, message []byte) {
		h.handleIncomingWSMessage(claims, c, message)
	})
}

// handleIncomingWSMessage processes messages received from a websocket client.
func (h *WebSocketHandler) handleIncomingWSMessage(claims *auth.Claims, client *ws.Client, message []byte) {
	var msg ws.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Warn().Err(err).Str("user_id", client.UserID).Msg("Error decoding websocket message")
		client.Reply(ws.NewErrorMessage("Invalid message"))
		return
	}

	switch msg.Action {
	case ws.ActionSubscribeProject, ws.ActionUnsubscribeProject:
		var payload ws.ProjectPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.ProjectID == "" {
			client.Reply(ws.NewErrorMessage("payload.projectId is required"))
			return
		}
		channel := services.ProjectChannel(payload.ProjectID)
		if msg.Action == ws.ActionUnsubscribeProject {
			h.hub.Unsubscribe(client, channel)
			client.Reply(ws.NewMessage(ws.ActionUnsubscribed, payload))
			return
		}
		if !h.canSubscribe(claims, payload.ProjectID) {
			client.Reply(ws.NewErrorMessage("Not a member of project " + payload.ProjectID))
			return
		}
		h.hub.Subscribe(client, channel)
		client.Reply(ws.NewMessage(ws.ActionSubscribed, payload))

	default:
		log.Warn().Str("action", msg.Action).Msg("Unknown websocket action received")
		client.Reply(ws.NewErrorMessage("Unknown action: " + msg.Action))
	}
}

func (h *WebSocketHandler) canSubscribe(claims *auth.Claims, projectID string) bool {
	if claims.IsOwner() {
		return true
	}
	member, err := h.projects.IsMember(projectID, claims.UserID)
	if err != nil {
		log.Error().Err(err).Str("project_id", projectID).Msg("Failed to check project membership")
		return false
	}
	return member
}
