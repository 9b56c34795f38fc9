package collab

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/lo"
)

// Precondition failures reported back to the offending session. All of
// them are caller-correctable; none of them stop the event loop.
var (
	ErrAuthenticationFailed = errors.New("authentication failed: userId is required")
	ErrNotAuthenticated     = errors.New("authentication required")
	ErrInvalidRoom          = errors.New("room id is required")
	ErrNotInRoom            = errors.New("not in a room")
)

const statsInterval = 30 * time.Second

// Sender delivers outbound events to a live connection. Implemented by
// the websocket gateway; tests substitute a recorder.
type Sender interface {
	Send(sessionID string, evt *Outbound)
}

// Presence mirrors authenticated-user liveness into a shared store so
// the rest of the app can answer "who is online". Optional.
type Presence interface {
	SetUserOnline(ctx context.Context, userID string) error
	SetUserOffline(ctx context.Context, userID string) error
}

// ActivitySink receives room join/leave notifications for the audit
// trail. Optional.
type ActivitySink interface {
	RoomJoined(userID, roomID string)
	RoomLeft(userID, roomID string)
}

// Session is the coordinator-owned record of one live connection.
// UserID is empty until the session authenticates.
type Session struct {
	ID     string
	UserID string
}

// Coordinator tracks which user sits in which collaboration room and
// fans out chat and sync events to room members. All state is owned by
// the single Run goroutine; nothing here takes a lock because nothing
// else mutates these maps.
type Coordinator struct {
	sessions     map[string]*Session            // sessionID -> session
	userSessions map[string]map[string]struct{} // userID -> live sessionIDs
	rooms        map[string]map[string]struct{} // roomID -> member userIDs
	membership   map[string]string              // userID -> roomID, at most one

	events   chan Event
	sender   Sender
	presence Presence
	activity ActivitySink

	ctx    context.Context
	cancel context.CancelFunc
}

func NewCoordinator(sender Sender) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		sessions:     make(map[string]*Session),
		userSessions: make(map[string]map[string]struct{}),
		rooms:        make(map[string]map[string]struct{}),
		membership:   make(map[string]string),
		events:       make(chan Event, 256),
		sender:       sender,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// SetPresence attaches an online-status mirror. Must be called before
// Run.
func (c *Coordinator) SetPresence(p Presence) {
	c.presence = p
}

// SetActivitySink attaches a room audit sink. Must be called before
// Run.
func (c *Coordinator) SetActivitySink(s ActivitySink) {
	c.activity = s
}

// Dispatch queues an event for the coordinator loop. Safe to call from
// any goroutine.
func (c *Coordinator) Dispatch(e Event) {
	select {
	case c.events <- e:
	case <-c.ctx.Done():
	}
}

// Run processes events one at a time until Stop is called. Each event
// is handled to completion before the next one is picked up, which is
// what keeps the room table and membership index consistent without
// locks.
func (c *Coordinator) Run() {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case e := <-c.events:
			c.handle(e)

		case <-ticker.C:
			c.logStats()

		case <-c.ctx.Done():
			slog.Info("collab coordinator shutting down")
			return
		}
	}
}

func (c *Coordinator) Stop() {
	c.cancel()
}

func (c *Coordinator) handle(e Event) {
	switch e := e.(type) {
	case ConnectEvent:
		c.handleConnect(e)
	case AuthenticateEvent:
		c.handleAuthenticate(e)
	case JoinRoomEvent:
		c.handleJoinRoom(e)
	case LeaveRoomEvent:
		c.handleLeaveRoom(e)
	case RoomMessageEvent:
		c.handleRoomMessage(e)
	case SyncDataEvent:
		c.handleSyncData(e)
	case RoomStatusEvent:
		c.handleRoomStatus(e)
	case DisconnectEvent:
		c.handleDisconnect(e)
	}
}

func (c *Coordinator) handleConnect(e ConnectEvent) {
	c.sessions[e.SessionID] = &Session{ID: e.SessionID}
	slog.Debug("session connected", "sessionID", e.SessionID)
}

func (c *Coordinator) handleAuthenticate(e AuthenticateEvent) {
	sess, ok := c.sessions[e.SessionID]
	if !ok {
		return
	}

	if e.UserID == "" {
		c.sender.Send(e.SessionID, newAuthenticationFailed(ErrAuthenticationFailed.Error()))
		return
	}

	// Re-authentication rebinds silently; the previous identity simply
	// loses this session.
	if prev := sess.UserID; prev != "" && prev != e.UserID {
		c.detachSessionFromUser(prev, e.SessionID)
	}

	sess.UserID = e.UserID
	if c.userSessions[e.UserID] == nil {
		c.userSessions[e.UserID] = make(map[string]struct{})
	}
	c.userSessions[e.UserID][e.SessionID] = struct{}{}

	slog.Info("session authenticated", "sessionID", e.SessionID, "userID", e.UserID)
	c.markOnline(e.UserID)
	c.sender.Send(e.SessionID, newAuthenticated(e.UserID))
}

func (c *Coordinator) handleJoinRoom(e JoinRoomEvent) {
	sess, ok := c.sessions[e.SessionID]
	if !ok {
		return
	}
	if sess.UserID == "" {
		c.sender.Send(e.SessionID, newError(ErrNotAuthenticated.Error()))
		return
	}
	if e.RoomID == "" {
		c.sender.Send(e.SessionID, newError(ErrInvalidRoom.Error()))
		return
	}

	userID := sess.UserID

	// One room per user: joining while elsewhere leaves the old room
	// first, with the same cleanup and notifications as an explicit
	// leave.
	if current, in := c.membership[userID]; in && current != e.RoomID {
		c.removeFromRoom(userID, current)
	}

	if c.rooms[e.RoomID] == nil {
		c.rooms[e.RoomID] = make(map[string]struct{})
	}
	_, already := c.rooms[e.RoomID][userID]
	c.rooms[e.RoomID][userID] = struct{}{}
	c.membership[userID] = e.RoomID

	users := c.memberList(e.RoomID)
	slog.Info("user joined room", "userID", userID, "roomID", e.RoomID, "members", len(users))

	c.sender.Send(e.SessionID, newRoomJoined(e.RoomID, users))
	if !already {
		c.broadcastExceptUser(e.RoomID, userID, newUserJoined(userID, users))
		if c.activity != nil {
			go c.activity.RoomJoined(userID, e.RoomID)
		}
	}
}

func (c *Coordinator) handleLeaveRoom(e LeaveRoomEvent) {
	sess, ok := c.sessions[e.SessionID]
	if !ok {
		return
	}
	if sess.UserID == "" {
		c.sender.Send(e.SessionID, newError(ErrNotAuthenticated.Error()))
		return
	}

	// Leaving while not in a room is a no-op, not an error.
	roomID := c.membership[sess.UserID]
	if roomID != "" {
		c.removeFromRoom(sess.UserID, roomID)
	}
	c.sender.Send(e.SessionID, newRoomLeft(roomID))
}

func (c *Coordinator) handleRoomMessage(e RoomMessageEvent) {
	sess, roomID, ok := c.relayPreconditions(e.SessionID)
	if !ok {
		return
	}

	// Chat echoes to every member, sender included, so the sender's own
	// timeline shows the message exactly as everyone else received it.
	c.broadcast(roomID, "", newRoomMessage(sess.UserID, e.Content, e.Type))
}

func (c *Coordinator) handleSyncData(e SyncDataEvent) {
	sess, roomID, ok := c.relayPreconditions(e.SessionID)
	if !ok {
		return
	}

	// Sync skips the originating session: that client already applied
	// the change locally. The same user's other devices still get it.
	c.broadcast(roomID, e.SessionID, newSyncData(sess.UserID, e.Action, e.Target, e.Data))
}

func (c *Coordinator) handleRoomStatus(e RoomStatusEvent) {
	sess, ok := c.sessions[e.SessionID]
	if !ok {
		return
	}
	if sess.UserID == "" {
		c.sender.Send(e.SessionID, newError(ErrNotAuthenticated.Error()))
		return
	}

	roomID := c.membership[sess.UserID]
	status := RoomStatusPayload{RoomID: roomID}
	if roomID != "" {
		users := c.memberList(roomID)
		status.Users = users
		status.UserCount = len(users)
	}
	c.sender.Send(e.SessionID, &Outbound{Event: EventRoomStatus, Data: status})
}

func (c *Coordinator) handleDisconnect(e DisconnectEvent) {
	sess, ok := c.sessions[e.SessionID]
	if !ok {
		// Already cleaned up; disconnect runs at most once per session.
		return
	}
	delete(c.sessions, e.SessionID)

	if sess.UserID != "" {
		c.detachSessionFromUser(sess.UserID, e.SessionID)
	}
	slog.Debug("session disconnected", "sessionID", e.SessionID, "userID", sess.UserID)
}

// relayPreconditions resolves the session and its current room for the
// relay operations, emitting the appropriate error event when either
// check fails.
func (c *Coordinator) relayPreconditions(sessionID string) (*Session, string, bool) {
	sess, ok := c.sessions[sessionID]
	if !ok {
		return nil, "", false
	}
	if sess.UserID == "" {
		c.sender.Send(sessionID, newError(ErrNotAuthenticated.Error()))
		return nil, "", false
	}
	roomID, in := c.membership[sess.UserID]
	if !in {
		c.sender.Send(sessionID, newError(ErrNotInRoom.Error()))
		return nil, "", false
	}
	return sess, roomID, true
}

// detachSessionFromUser drops one session from a user's set. When the
// last session goes, the user's room membership goes with it.
func (c *Coordinator) detachSessionFromUser(userID, sessionID string) {
	set := c.userSessions[userID]
	if set == nil {
		return
	}
	delete(set, sessionID)
	if len(set) > 0 {
		return
	}
	delete(c.userSessions, userID)
	c.markOffline(userID)

	if roomID, in := c.membership[userID]; in {
		c.removeFromRoom(userID, roomID)
	}
}

// removeFromRoom takes a user out of a room, deletes the room the
// moment it empties, and tells the remaining members who left.
func (c *Coordinator) removeFromRoom(userID, roomID string) {
	members, ok := c.rooms[roomID]
	if !ok {
		delete(c.membership, userID)
		return
	}

	delete(members, userID)
	delete(c.membership, userID)
	if c.activity != nil {
		go c.activity.RoomLeft(userID, roomID)
	}

	if len(members) == 0 {
		delete(c.rooms, roomID)
		slog.Info("room closed", "roomID", roomID)
		return
	}

	c.broadcast(roomID, "", newUserLeft(userID, c.memberList(roomID)))
}

// broadcast fans an event out to every live session of every member of
// the room. excludeSession suppresses delivery to one session (used by
// sync relay); pass "" to reach everyone.
func (c *Coordinator) broadcast(roomID, excludeSession string, evt *Outbound) {
	for userID := range c.rooms[roomID] {
		for sessionID := range c.userSessions[userID] {
			if sessionID == excludeSession {
				continue
			}
			c.sender.Send(sessionID, evt)
		}
	}
}

// broadcastExceptUser reaches every member except the named user.
func (c *Coordinator) broadcastExceptUser(roomID, excludeUser string, evt *Outbound) {
	for userID := range c.rooms[roomID] {
		if userID == excludeUser {
			continue
		}
		for sessionID := range c.userSessions[userID] {
			c.sender.Send(sessionID, evt)
		}
	}
}

// memberList snapshots a room's member set for transmission. Order is
// not significant.
func (c *Coordinator) memberList(roomID string) []string {
	return lo.Keys(c.rooms[roomID])
}

// Presence writes run off the loop goroutine; a slow redis must not
// stall event handling.

func (c *Coordinator) markOnline(userID string) {
	if c.presence == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.presence.SetUserOnline(ctx, userID); err != nil {
			slog.Debug("failed to mark user online", "userID", userID, "error", err)
		}
	}()
}

func (c *Coordinator) markOffline(userID string) {
	if c.presence == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.presence.SetUserOffline(ctx, userID); err != nil {
			slog.Debug("failed to mark user offline", "userID", userID, "error", err)
		}
	}()
}

func (c *Coordinator) logStats() {
	slog.Info("collab stats",
		"sessions", len(c.sessions),
		"authenticatedUsers", len(c.userSessions),
		"rooms", len(c.rooms),
		"roomMembers", len(c.membership),
	)
}
