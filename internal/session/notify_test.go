package session

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/relaychat/server/internal/chatcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateSessionFrame(t *testing.T) {
	frame := updateSessionFrame("main", "alice")
	require.True(t, strings.HasPrefix(frame, updateSessionPrefix))

	var payload updateSessionPayload
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame, updateSessionPrefix)), &payload))
	assert.Equal(t, "main", payload.Room)
	assert.Equal(t, "alice", payload.Name)
}

func TestListFrame(t *testing.T) {
	rooms := chatcore.UpdateRooms{"main": {"a": "alice"}}
	frame := listFrame(rooms)
	require.True(t, strings.HasPrefix(frame, listPrefix))

	var decoded chatcore.UpdateRooms
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame, listPrefix)), &decoded))
	assert.Equal(t, rooms, decoded)
}

func TestJoinAndQuitRoomFrames(t *testing.T) {
	for _, tc := range []struct {
		build  func(string, string, string) string
		prefix string
	}{
		{joinRoomFrame, joinRoomPrefix},
		{quitRoomFrame, quitRoomPrefix},
	} {
		frame := tc.build("a", "alice", "main")
		require.True(t, strings.HasPrefix(frame, tc.prefix))

		var payload roomChangePayload
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame, tc.prefix)), &payload))
		assert.Equal(t, "a", payload.SessionID)
		assert.Equal(t, "alice", payload.Name)
		assert.Equal(t, "main", payload.Room)
	}
}

func TestUpdateNameFrame(t *testing.T) {
	frame := updateNameFrame("a", "alice", "anon")
	require.True(t, strings.HasPrefix(frame, updateNamePrefix))

	var payload updateNamePayload
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame, updateNamePrefix)), &payload))
	assert.Equal(t, "a", payload.SessionID)
	assert.Equal(t, "alice", payload.Name)
	assert.Equal(t, "anon", payload.OldName)
}

func TestMessageFrame(t *testing.T) {
	frame := messageFrame("main", "a", "alice", "hello")
	require.True(t, strings.HasPrefix(frame, messagePrefix))
	assert.Contains(t, frame, `"content":"hello"`)
	assert.Contains(t, frame, `"from_id":"a"`)
	assert.Contains(t, frame, `"room":"main"`)
}
