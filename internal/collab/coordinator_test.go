package collab

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSender captures outbound events per session so tests can
// assert on fan-out without a live transport.
type recordingSender struct {
	events map[string][]*Outbound
}

func newRecordingSender() *recordingSender {
	return &recordingSender{events: make(map[string][]*Outbound)}
}

func (r *recordingSender) Send(sessionID string, evt *Outbound) {
	r.events[sessionID] = append(r.events[sessionID], evt)
}

func (r *recordingSender) reset() {
	r.events = make(map[string][]*Outbound)
}

func (r *recordingSender) byName(sessionID, event string) []*Outbound {
	var out []*Outbound
	for _, evt := range r.events[sessionID] {
		if evt.Event == event {
			out = append(out, evt)
		}
	}
	return out
}

func (r *recordingSender) last(sessionID string) *Outbound {
	evts := r.events[sessionID]
	if len(evts) == 0 {
		return nil
	}
	return evts[len(evts)-1]
}

func newTestCoordinator() (*Coordinator, *recordingSender) {
	sender := newRecordingSender()
	c := NewCoordinator(sender)
	return c, sender
}

// connect opens a session and optionally authenticates it.
func connect(c *Coordinator, sessionID, userID string) {
	c.handle(ConnectEvent{SessionID: sessionID})
	if userID != "" {
		c.handle(AuthenticateEvent{SessionID: sessionID, UserID: userID})
	}
}

func TestAuthenticate(t *testing.T) {
	t.Run("binds identity and confirms", func(t *testing.T) {
		c, sender := newTestCoordinator()
		connect(c, "s1", "")

		c.handle(AuthenticateEvent{SessionID: "s1", UserID: "u1"})

		last := sender.last("s1")
		require.NotNil(t, last)
		assert.Equal(t, EventAuthenticated, last.Event)
		payload := last.Data.(AuthenticatedPayload)
		assert.True(t, payload.Success)
		assert.Equal(t, "u1", payload.UserID)
		assert.Equal(t, "u1", c.sessions["s1"].UserID)
	})

	t.Run("rejects empty userId", func(t *testing.T) {
		c, sender := newTestCoordinator()
		connect(c, "s1", "")

		c.handle(AuthenticateEvent{SessionID: "s1", UserID: ""})

		payload := sender.last("s1").Data.(AuthenticatedPayload)
		assert.False(t, payload.Success)
		assert.NotEmpty(t, payload.Error)
		assert.Empty(t, c.sessions["s1"].UserID)
	})

	t.Run("re-authentication rebinds silently", func(t *testing.T) {
		c, _ := newTestCoordinator()
		connect(c, "s1", "u1")

		c.handle(AuthenticateEvent{SessionID: "s1", UserID: "u2"})

		assert.Equal(t, "u2", c.sessions["s1"].UserID)
		assert.Contains(t, c.userSessions["u2"], "s1")
		assert.NotContains(t, c.userSessions, "u1")
	})
}

func TestJoinRoom(t *testing.T) {
	t.Run("first join creates the room", func(t *testing.T) {
		c, sender := newTestCoordinator()
		connect(c, "s1", "u1")

		c.handle(JoinRoomEvent{SessionID: "s1", RoomID: "trip-42"})

		joined := sender.byName("s1", EventRoomJoined)
		require.Len(t, joined, 1)
		payload := joined[0].Data.(RoomJoinedPayload)
		assert.Equal(t, "trip-42", payload.RoomID)
		assert.ElementsMatch(t, []string{"u1"}, payload.RoomUsers)
	})

	t.Run("second member notifies existing members", func(t *testing.T) {
		c, sender := newTestCoordinator()
		connect(c, "s1", "u1")
		connect(c, "s2", "u2")
		c.handle(JoinRoomEvent{SessionID: "s1", RoomID: "trip-42"})
		sender.reset()

		c.handle(JoinRoomEvent{SessionID: "s2", RoomID: "trip-42"})

		joined := sender.byName("s2", EventRoomJoined)
		require.Len(t, joined, 1)
		assert.ElementsMatch(t, []string{"u1", "u2"},
			joined[0].Data.(RoomJoinedPayload).RoomUsers)

		notified := sender.byName("s1", EventUserJoined)
		require.Len(t, notified, 1)
		payload := notified[0].Data.(UserJoinedPayload)
		assert.Equal(t, "u2", payload.UserID)
		assert.ElementsMatch(t, []string{"u1", "u2"}, payload.RoomUsers)

		// The joiner must not receive its own join notification.
		assert.Empty(t, sender.byName("s2", EventUserJoined))
	})

	t.Run("unauthenticated join is rejected and creates nothing", func(t *testing.T) {
		c, sender := newTestCoordinator()
		connect(c, "s1", "")

		c.handle(JoinRoomEvent{SessionID: "s1", RoomID: "trip-42"})

		last := sender.last("s1")
		require.NotNil(t, last)
		assert.Equal(t, EventError, last.Event)
		assert.Equal(t, ErrNotAuthenticated.Error(), last.Data.(ErrorPayload).Message)
		assert.Empty(t, c.rooms)
	})

	t.Run("empty room id is rejected", func(t *testing.T) {
		c, sender := newTestCoordinator()
		connect(c, "s1", "u1")

		c.handle(JoinRoomEvent{SessionID: "s1", RoomID: ""})

		last := sender.last("s1")
		assert.Equal(t, EventError, last.Event)
		assert.Equal(t, ErrInvalidRoom.Error(), last.Data.(ErrorPayload).Message)
		assert.Empty(t, c.rooms)
	})

	t.Run("switching rooms leaves the old one first", func(t *testing.T) {
		c, _ := newTestCoordinator()
		connect(c, "s1", "u1")
		c.handle(JoinRoomEvent{SessionID: "s1", RoomID: "trip-42"})

		c.handle(JoinRoomEvent{SessionID: "s1", RoomID: "trip-99"})

		assert.Equal(t, "trip-99", c.membership["u1"])
		assert.Contains(t, c.rooms["trip-99"], "u1")
		assert.NotContains(t, c.rooms, "trip-42", "vacated room must be deleted")
	})

	t.Run("switching rooms notifies the old room", func(t *testing.T) {
		c, sender := newTestCoordinator()
		connect(c, "s1", "u1")
		connect(c, "s2", "u2")
		c.handle(JoinRoomEvent{SessionID: "s1", RoomID: "trip-42"})
		c.handle(JoinRoomEvent{SessionID: "s2", RoomID: "trip-42"})
		sender.reset()

		c.handle(JoinRoomEvent{SessionID: "s2", RoomID: "trip-99"})

		left := sender.byName("s1", EventUserLeft)
		require.Len(t, left, 1)
		payload := left[0].Data.(UserLeftPayload)
		assert.Equal(t, "u2", payload.UserID)
		assert.ElementsMatch(t, []string{"u1"}, payload.RoomUsers)
	})
}

func TestLeaveRoom(t *testing.T) {
	t.Run("leaving notifies remaining members", func(t *testing.T) {
		c, sender := newTestCoordinator()
		connect(c, "s1", "u1")
		connect(c, "s2", "u2")
		c.handle(JoinRoomEvent{SessionID: "s1", RoomID: "trip-42"})
		c.handle(JoinRoomEvent{SessionID: "s2", RoomID: "trip-42"})
		sender.reset()

		c.handle(LeaveRoomEvent{SessionID: "s2"})

		left := sender.byName("s2", EventRoomLeft)
		require.Len(t, left, 1)
		assert.Equal(t, "trip-42", left[0].Data.(RoomLeftPayload).RoomID)

		notified := sender.byName("s1", EventUserLeft)
		require.Len(t, notified, 1)
		assert.ElementsMatch(t, []string{"u1"}, notified[0].Data.(UserLeftPayload).RoomUsers)

		assert.NotContains(t, c.membership, "u2")
		assert.Contains(t, c.rooms["trip-42"], "u1")
	})

	t.Run("last member leaving deletes the room", func(t *testing.T) {
		c, _ := newTestCoordinator()
		connect(c, "s1", "u1")
		c.handle(JoinRoomEvent{SessionID: "s1", RoomID: "trip-42"})

		c.handle(LeaveRoomEvent{SessionID: "s1"})

		assert.Empty(t, c.rooms)
		assert.Empty(t, c.membership)
	})

	t.Run("leaving while not in a room is a no-op", func(t *testing.T) {
		c, sender := newTestCoordinator()
		connect(c, "s1", "u1")

		c.handle(LeaveRoomEvent{SessionID: "s1"})

		left := sender.byName("s1", EventRoomLeft)
		require.Len(t, left, 1, "no-op leave still confirms")
		assert.Empty(t, sender.byName("s1", EventError))
	})
}

func TestRelayMessage(t *testing.T) {
	t.Run("chat echoes to all members including sender", func(t *testing.T) {
		c, sender := newTestCoordinator()
		connect(c, "s1", "u1")
		connect(c, "s2", "u2")
		c.handle(JoinRoomEvent{SessionID: "s1", RoomID: "trip-42"})
		c.handle(JoinRoomEvent{SessionID: "s2", RoomID: "trip-42"})
		sender.reset()

		c.handle(RoomMessageEvent{SessionID: "s1", Content: "hello"})

		got1 := sender.byName("s1", EventRoomMessage)
		got2 := sender.byName("s2", EventRoomMessage)
		require.Len(t, got1, 1)
		require.Len(t, got2, 1)

		p1 := got1[0].Data.(RoomMessagePayloadOut)
		p2 := got2[0].Data.(RoomMessagePayloadOut)
		assert.Equal(t, "hello", p1.Content)
		assert.Equal(t, "u1", p1.UserID)
		assert.Equal(t, "text", p1.Type)
		assert.Equal(t, p1.ID, p2.ID, "every member sees the same envelope")
		assert.NotEmpty(t, p1.ID)
		assert.NotZero(t, p1.Timestamp)
	})

	t.Run("relay outside a room fails", func(t *testing.T) {
		c, sender := newTestCoordinator()
		connect(c, "s1", "u1")

		c.handle(RoomMessageEvent{SessionID: "s1", Content: "hello"})

		last := sender.last("s1")
		assert.Equal(t, EventError, last.Event)
		assert.Equal(t, ErrNotInRoom.Error(), last.Data.(ErrorPayload).Message)
	})

	t.Run("relay before authentication fails", func(t *testing.T) {
		c, sender := newTestCoordinator()
		connect(c, "s1", "")

		c.handle(RoomMessageEvent{SessionID: "s1", Content: "hello"})

		last := sender.last("s1")
		assert.Equal(t, EventError, last.Event)
		assert.Equal(t, ErrNotAuthenticated.Error(), last.Data.(ErrorPayload).Message)
	})
}

func TestRelaySync(t *testing.T) {
	t.Run("sync skips the originating session", func(t *testing.T) {
		c, sender := newTestCoordinator()
		connect(c, "s1", "u1")
		connect(c, "s2", "u2")
		c.handle(JoinRoomEvent{SessionID: "s1", RoomID: "trip-42"})
		c.handle(JoinRoomEvent{SessionID: "s2", RoomID: "trip-42"})
		sender.reset()

		data := json.RawMessage(`{"day":2,"order":[3,1,2]}`)
		c.handle(SyncDataEvent{SessionID: "s1", Action: "reorder", Target: "activities", Data: data})

		assert.Empty(t, sender.byName("s1", EventSyncData))
		got := sender.byName("s2", EventSyncData)
		require.Len(t, got, 1)
		payload := got[0].Data.(SyncDataPayloadOut)
		assert.Equal(t, "u1", payload.UserID)
		assert.Equal(t, "reorder", payload.Action)
		assert.Equal(t, "activities", payload.Target)
		assert.JSONEq(t, string(data), string(payload.Data))
	})

	t.Run("sender's other devices still receive sync", func(t *testing.T) {
		c, sender := newTestCoordinator()
		connect(c, "s1", "u1")
		connect(c, "s1b", "u1")
		c.handle(JoinRoomEvent{SessionID: "s1", RoomID: "trip-42"})
		sender.reset()

		c.handle(SyncDataEvent{SessionID: "s1", Action: "update", Target: "title"})

		assert.Empty(t, sender.byName("s1", EventSyncData))
		assert.Len(t, sender.byName("s1b", EventSyncData), 1)
	})
}

func TestDisconnect(t *testing.T) {
	t.Run("abrupt disconnect behaves like leave", func(t *testing.T) {
		c, sender := newTestCoordinator()
		connect(c, "s1", "u1")
		connect(c, "s2", "u2")
		c.handle(JoinRoomEvent{SessionID: "s1", RoomID: "trip-42"})
		c.handle(JoinRoomEvent{SessionID: "s2", RoomID: "trip-42"})
		sender.reset()

		c.handle(DisconnectEvent{SessionID: "s2"})

		notified := sender.byName("s1", EventUserLeft)
		require.Len(t, notified, 1)
		payload := notified[0].Data.(UserLeftPayload)
		assert.Equal(t, "u2", payload.UserID)
		assert.ElementsMatch(t, []string{"u1"}, payload.RoomUsers)

		assert.NotContains(t, c.sessions, "s2")
		assert.NotContains(t, c.membership, "u2")
	})

	t.Run("disconnect cleanup runs at most once", func(t *testing.T) {
		c, sender := newTestCoordinator()
		connect(c, "s1", "u1")
		connect(c, "s2", "u2")
		c.handle(JoinRoomEvent{SessionID: "s1", RoomID: "trip-42"})
		c.handle(JoinRoomEvent{SessionID: "s2", RoomID: "trip-42"})
		sender.reset()

		c.handle(DisconnectEvent{SessionID: "s2"})
		c.handle(DisconnectEvent{SessionID: "s2"})

		assert.Len(t, sender.byName("s1", EventUserLeft), 1)
	})

	t.Run("membership survives while another session remains", func(t *testing.T) {
		c, _ := newTestCoordinator()
		connect(c, "s1", "u1")
		connect(c, "s1b", "u1")
		c.handle(JoinRoomEvent{SessionID: "s1", RoomID: "trip-42"})

		c.handle(DisconnectEvent{SessionID: "s1"})

		assert.Equal(t, "trip-42", c.membership["u1"])
		assert.Contains(t, c.rooms["trip-42"], "u1")

		c.handle(DisconnectEvent{SessionID: "s1b"})

		assert.Empty(t, c.membership)
		assert.Empty(t, c.rooms)
	})

	t.Run("unauthenticated disconnect is clean", func(t *testing.T) {
		c, _ := newTestCoordinator()
		connect(c, "s1", "")

		c.handle(DisconnectEvent{SessionID: "s1"})

		assert.Empty(t, c.sessions)
	})
}

func TestRoomStatus(t *testing.T) {
	t.Run("reports room and members", func(t *testing.T) {
		c, sender := newTestCoordinator()
		connect(c, "s1", "u1")
		connect(c, "s2", "u2")
		c.handle(JoinRoomEvent{SessionID: "s1", RoomID: "trip-42"})
		c.handle(JoinRoomEvent{SessionID: "s2", RoomID: "trip-42"})
		sender.reset()

		c.handle(RoomStatusEvent{SessionID: "s1"})

		got := sender.byName("s1", EventRoomStatus)
		require.Len(t, got, 1)
		payload := got[0].Data.(RoomStatusPayload)
		assert.Equal(t, "trip-42", payload.RoomID)
		assert.Equal(t, 2, payload.UserCount)
		assert.ElementsMatch(t, []string{"u1", "u2"}, payload.Users)
	})

	t.Run("reports no room when outside one", func(t *testing.T) {
		c, sender := newTestCoordinator()
		connect(c, "s1", "u1")

		c.handle(RoomStatusEvent{SessionID: "s1"})

		payload := sender.last("s1").Data.(RoomStatusPayload)
		assert.Empty(t, payload.RoomID)
		assert.Zero(t, payload.UserCount)
	})
}

// Membership index and room member sets must agree after any sequence
// of operations: no user in two rooms, no orphaned entries either way.
func TestMembershipInvariants(t *testing.T) {
	c, _ := newTestCoordinator()
	connect(c, "s1", "u1")
	connect(c, "s2", "u2")
	connect(c, "s3", "u3")

	c.handle(JoinRoomEvent{SessionID: "s1", RoomID: "trip-1"})
	c.handle(JoinRoomEvent{SessionID: "s2", RoomID: "trip-1"})
	c.handle(JoinRoomEvent{SessionID: "s3", RoomID: "trip-2"})
	c.handle(JoinRoomEvent{SessionID: "s2", RoomID: "trip-2"})
	c.handle(LeaveRoomEvent{SessionID: "s3"})
	c.handle(DisconnectEvent{SessionID: "s1"})

	checkInvariants(t, c)

	assert.Equal(t, map[string]string{"u2": "trip-2"}, c.membership)
	assert.Len(t, c.rooms, 1)
}

func checkInvariants(t *testing.T, c *Coordinator) {
	t.Helper()

	// Every membership entry is backed by the room's member set.
	for userID, roomID := range c.membership {
		members, ok := c.rooms[roomID]
		require.True(t, ok, "membership points at missing room %q", roomID)
		require.Contains(t, members, userID)
	}

	// Every room member appears in the index, and rooms are never empty.
	for roomID, members := range c.rooms {
		require.NotEmpty(t, members, "room %q exists but is empty", roomID)
		for userID := range members {
			require.Equal(t, roomID, c.membership[userID])
		}
	}
}
