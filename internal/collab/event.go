package collab

import (
	"encoding/json"
	"fmt"
)

// Inbound event names accepted over the collaboration socket.
const (
	EventAuthenticate  = "authenticate"
	EventJoinRoom      = "join-room"
	EventLeaveRoom     = "leave-room"
	EventRoomMessage   = "room-message"
	EventSyncData      = "sync-data"
	EventGetRoomStatus = "get-room-status"
	EventPing          = "ping"
)

// Outbound event names emitted to clients.
const (
	EventAuthenticated = "authenticated"
	EventRoomJoined    = "room-joined"
	EventUserJoined    = "user-joined"
	EventRoomLeft      = "room-left"
	EventUserLeft      = "user-left"
	EventRoomStatus    = "room-status"
	EventPong          = "pong"
	EventError         = "error"
)

// Frame is the wire format for both directions: an event name plus a
// JSON payload.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event is a validated inbound event ready for the coordinator loop.
// Payloads are decoded and typed at the transport boundary so the
// coordinator never sees raw JSON.
type Event interface {
	Session() string
}

type ConnectEvent struct {
	SessionID string
}

type DisconnectEvent struct {
	SessionID string
}

type AuthenticateEvent struct {
	SessionID string
	UserID    string
}

type JoinRoomEvent struct {
	SessionID string
	RoomID    string
}

type LeaveRoomEvent struct {
	SessionID string
}

type RoomMessageEvent struct {
	SessionID string
	Content   string
	Type      string
}

type SyncDataEvent struct {
	SessionID string
	Action    string
	Target    string
	Data      json.RawMessage
}

type RoomStatusEvent struct {
	SessionID string
}

func (e ConnectEvent) Session() string      { return e.SessionID }
func (e DisconnectEvent) Session() string   { return e.SessionID }
func (e AuthenticateEvent) Session() string { return e.SessionID }
func (e JoinRoomEvent) Session() string     { return e.SessionID }
func (e LeaveRoomEvent) Session() string    { return e.SessionID }
func (e RoomMessageEvent) Session() string  { return e.SessionID }
func (e SyncDataEvent) Session() string     { return e.SessionID }
func (e RoomStatusEvent) Session() string   { return e.SessionID }

// Inbound payload shapes.

type authenticatePayload struct {
	UserID string `json:"userId"`
}

type joinRoomPayload struct {
	RoomID string `json:"roomId"`
}

type roomMessagePayload struct {
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

type syncDataPayload struct {
	Action string          `json:"action"`
	Target string          `json:"target"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// ParseFrame decodes a raw frame into a typed event bound to the given
// session. Unknown event names and malformed payloads are rejected here,
// before anything reaches the coordinator.
func ParseFrame(sessionID string, raw []byte) (Event, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch frame.Event {
	case EventAuthenticate:
		var p authenticatePayload
		if err := decodePayload(frame.Data, &p); err != nil {
			return nil, err
		}
		return AuthenticateEvent{SessionID: sessionID, UserID: p.UserID}, nil

	case EventJoinRoom:
		var p joinRoomPayload
		if err := decodePayload(frame.Data, &p); err != nil {
			return nil, err
		}
		return JoinRoomEvent{SessionID: sessionID, RoomID: p.RoomID}, nil

	case EventLeaveRoom:
		return LeaveRoomEvent{SessionID: sessionID}, nil

	case EventRoomMessage:
		var p roomMessagePayload
		if err := decodePayload(frame.Data, &p); err != nil {
			return nil, err
		}
		return RoomMessageEvent{SessionID: sessionID, Content: p.Content, Type: p.Type}, nil

	case EventSyncData:
		var p syncDataPayload
		if err := decodePayload(frame.Data, &p); err != nil {
			return nil, err
		}
		return SyncDataEvent{SessionID: sessionID, Action: p.Action, Target: p.Target, Data: p.Data}, nil

	case EventGetRoomStatus:
		return RoomStatusEvent{SessionID: sessionID}, nil

	default:
		return nil, fmt.Errorf("unknown event: %q", frame.Event)
	}
}

func decodePayload(raw json.RawMessage, dest interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	return nil
}
