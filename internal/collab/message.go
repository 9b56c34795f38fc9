package collab

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Outbound is a server-to-client event ready for serialization.
type Outbound struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type AuthenticatedPayload struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId,omitempty"`
	Error   string `json:"error,omitempty"`
}

type RoomJoinedPayload struct {
	RoomID    string   `json:"roomId"`
	RoomUsers []string `json:"roomUsers"`
	Message   string   `json:"message"`
}

type UserJoinedPayload struct {
	UserID    string   `json:"userId"`
	RoomUsers []string `json:"roomUsers"`
}

type RoomLeftPayload struct {
	RoomID string `json:"roomId"`
}

type UserLeftPayload struct {
	UserID    string   `json:"userId"`
	RoomUsers []string `json:"roomUsers"`
}

// RoomMessagePayloadOut is the relay envelope for chat messages.
type RoomMessagePayloadOut struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// SyncDataPayloadOut is the relay envelope for itinerary sync events.
type SyncDataPayloadOut struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Action    string          `json:"action"`
	Target    string          `json:"target"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

type RoomStatusPayload struct {
	RoomID    string   `json:"roomId"`
	UserCount int      `json:"userCount,omitempty"`
	Users     []string `json:"users,omitempty"`
}

type PongPayload struct {
	Timestamp int64 `json:"timestamp"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func newAuthenticated(userID string) *Outbound {
	return &Outbound{Event: EventAuthenticated, Data: AuthenticatedPayload{Success: true, UserID: userID}}
}

func newAuthenticationFailed(reason string) *Outbound {
	return &Outbound{Event: EventAuthenticated, Data: AuthenticatedPayload{Success: false, Error: reason}}
}

func newRoomJoined(roomID string, users []string) *Outbound {
	return &Outbound{Event: EventRoomJoined, Data: RoomJoinedPayload{
		RoomID:    roomID,
		RoomUsers: users,
		Message:   "joined room " + roomID,
	}}
}

func newUserJoined(userID string, users []string) *Outbound {
	return &Outbound{Event: EventUserJoined, Data: UserJoinedPayload{UserID: userID, RoomUsers: users}}
}

func newRoomLeft(roomID string) *Outbound {
	return &Outbound{Event: EventRoomLeft, Data: RoomLeftPayload{RoomID: roomID}}
}

func newUserLeft(userID string, users []string) *Outbound {
	return &Outbound{Event: EventUserLeft, Data: UserLeftPayload{UserID: userID, RoomUsers: users}}
}

func newRoomMessage(userID, content, msgType string) *Outbound {
	if msgType == "" {
		msgType = "text"
	}
	return &Outbound{Event: EventRoomMessage, Data: RoomMessagePayloadOut{
		ID:        uuid.New().String(),
		UserID:    userID,
		Content:   content,
		Type:      msgType,
		Timestamp: time.Now().Unix(),
	}}
}

func newSyncData(userID, action, target string, data json.RawMessage) *Outbound {
	return &Outbound{Event: EventSyncData, Data: SyncDataPayloadOut{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Target:    target,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}}
}

func newError(message string) *Outbound {
	return &Outbound{Event: EventError, Data: ErrorPayload{Message: message}}
}

// NewPong answers a liveness probe with the server clock.
func NewPong() *Outbound {
	return &Outbound{Event: EventPong, Data: PongPayload{Timestamp: time.Now().Unix()}}
}
