package realtime

import (
	"encoding/json"
	"strings"
)

// Client to server events.
const (
	EventAuthenticate       = "authenticate"
	EventJoinRoom           = "join_room"
	EventLeaveRoom          = "leave_room"
	EventSendMessage        = "send_message"
	EventTyping             = "typing"
	EventStopTyping         = "stop_typing"
	EventReactionAdded      = "reaction_added"
	EventReactionRemoved    = "reaction_removed"
	EventMessageEdited      = "message_edited"
	EventMessageDeleted     = "message_deleted"
	EventSendPrivateMessage = "send_private_message"
	EventPing               = "ping"
)

// Server to client events.
const (
	EventAuthenticated      = "authenticated"
	EventConnectError       = "connect_error"
	EventOnlineUsers        = "online_users"
	EventUserJoined         = "user_joined"
	EventUserLeft           = "user_left"
	EventNewMessage         = "new_message"
	EventUserTyping         = "user_typing"
	EventUserStopTyping     = "user_stop_typing"
	EventMessageReaction    = "message_reaction"
	EventMessageUpdated     = "message_updated"
	EventNewPrivateMessage  = "new_private_message"
	EventPrivateMessageSent = "private_message_sent"
	EventError              = "error"
	EventPong               = "pong"
)

// roomRelays maps room-scoped client events whose payload is forwarded
// unchanged to the name they are emitted under.
var roomRelays = map[string]string{
	EventSendMessage:     EventNewMessage,
	EventReactionAdded:   EventMessageReaction,
	EventReactionRemoved: EventMessageReaction,
	EventMessageEdited:   EventMessageUpdated,
	EventMessageDeleted:  EventMessageDeleted,
}

// Envelope is the wire format of every frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Identity is an authenticated user as seen by other sockets.
type Identity struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// RoomActivity is the payload of user_joined, user_left and the typing events.
type RoomActivity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
}

// ErrorPayload is sent with the error and connect_error events.
type ErrorPayload struct {
	Message string `json:"message"`
}

type authenticatePayload struct {
	Token string `json:"token"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type privatePayload struct {
	ReceiverID string `json:"receiverId"`
}

// encode builds a frame. Marshal failures are impossible for the payload
// types used here, so they degrade to an empty data field.
func encode(event string, data interface{}) []byte {
	env := struct {
		Event string      `json:"event"`
		Data  interface{} `json:"data,omitempty"`
	}{Event: event, Data: data}
	b, err := json.Marshal(env)
	if err != nil {
		b, _ = json.Marshal(Envelope{Event: event})
	}
	return b
}

// roomIDFrom accepts either a bare JSON string or an object with roomId.
func roomIDFrom(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		return strings.TrimSpace(id)
	}
	var p roomPayload
	if err := json.Unmarshal(data, &p); err == nil {
		return strings.TrimSpace(p.RoomID)
	}
	return ""
}

func receiverIDFrom(data json.RawMessage) string {
	var p privatePayload
	if len(data) == 0 || json.Unmarshal(data, &p) != nil {
		return ""
	}
	return strings.TrimSpace(p.ReceiverID)
}
