package collab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	t.Run("authenticate", func(t *testing.T) {
		evt, err := ParseFrame("s1", []byte(`{"event":"authenticate","data":{"userId":"u1"}}`))
		require.NoError(t, err)
		auth, ok := evt.(AuthenticateEvent)
		require.True(t, ok)
		assert.Equal(t, "s1", auth.SessionID)
		assert.Equal(t, "u1", auth.UserID)
	})

	t.Run("join-room", func(t *testing.T) {
		evt, err := ParseFrame("s1", []byte(`{"event":"join-room","data":{"roomId":"trip-42"}}`))
		require.NoError(t, err)
		join, ok := evt.(JoinRoomEvent)
		require.True(t, ok)
		assert.Equal(t, "trip-42", join.RoomID)
	})

	t.Run("leave-room tolerates missing payload", func(t *testing.T) {
		evt, err := ParseFrame("s1", []byte(`{"event":"leave-room"}`))
		require.NoError(t, err)
		_, ok := evt.(LeaveRoomEvent)
		assert.True(t, ok)
	})

	t.Run("sync-data keeps raw payload", func(t *testing.T) {
		evt, err := ParseFrame("s1", []byte(`{"event":"sync-data","data":{"action":"update","target":"day","data":{"index":1}}}`))
		require.NoError(t, err)
		sync, ok := evt.(SyncDataEvent)
		require.True(t, ok)
		assert.Equal(t, "update", sync.Action)
		assert.Equal(t, "day", sync.Target)
		assert.JSONEq(t, `{"index":1}`, string(sync.Data))
	})

	t.Run("unknown event rejected", func(t *testing.T) {
		_, err := ParseFrame("s1", []byte(`{"event":"shutdown"}`))
		assert.Error(t, err)
	})

	t.Run("malformed json rejected", func(t *testing.T) {
		_, err := ParseFrame("s1", []byte(`{"event":`))
		assert.Error(t, err)
	})

	t.Run("malformed payload rejected", func(t *testing.T) {
		_, err := ParseFrame("s1", []byte(`{"event":"join-room","data":[1,2]}`))
		assert.Error(t, err)
	})
}
