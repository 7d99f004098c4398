package hub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/relaychat/server/internal/chatcore"
	"github.com/relaychat/server/internal/redisbroker"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, <-chan chatcore.Envelope) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	broker := redisbroker.New(client, zerolog.Nop())
	scripts, err := broker.LoadScripts(context.Background())
	require.NoError(t, err)

	h, inbound := New(broker, scripts, zerolog.Nop())
	return h, inbound
}

func TestChangeRoomsAddThenRetrieve(t *testing.T) {
	h, _ := newTestHub(t)
	ctx := context.Background()

	name := "alice"
	err := h.ChangeRooms(ctx, chatcore.ChangeRoomReq{ID: "a", Name: &name, Room: "main", Type: chatcore.RoomChangeAdd})
	require.NoError(t, err)

	rooms, err := h.RetrieveRooms(ctx, chatcore.RetrieveRoomsReq{Type: chatcore.RetrieveByRoomID, ID: "main"})
	require.NoError(t, err)
	require.Equal(t, "alice", rooms["main"]["a"])

	rooms, err = h.RetrieveRooms(ctx, chatcore.RetrieveRoomsReq{Type: chatcore.RetrieveBySessionID, ID: "a"})
	require.NoError(t, err)
	require.Equal(t, "alice", rooms["main"]["a"])
}

func TestChangeRoomsDelOfAbsentSessionIsBusinessError(t *testing.T) {
	h, _ := newTestHub(t)
	ctx := context.Background()

	err := h.ChangeRooms(ctx, chatcore.ChangeRoomReq{ID: "ghost", Room: "main", Type: chatcore.RoomChangeDel})
	require.Error(t, err)

	var be *chatcore.BusinessError
	require.ErrorAs(t, err, &be)
	require.Equal(t, 2, be.Status)
}

func TestChangeRoomsNameChangeOnUnknownSessionIsBusinessError(t *testing.T) {
	h, _ := newTestHub(t)
	ctx := context.Background()

	name := "bob"
	err := h.ChangeRooms(ctx, chatcore.ChangeRoomReq{ID: "ghost", Name: &name, Type: chatcore.RoomChangeNameChange})
	require.Error(t, err)

	var be *chatcore.BusinessError
	require.ErrorAs(t, err, &be)
	require.Equal(t, 3, be.Status)
}

func TestNameChangePropagatesAcrossRooms(t *testing.T) {
	h, _ := newTestHub(t)
	ctx := context.Background()

	name := "alice"
	require.NoError(t, h.ChangeRooms(ctx, chatcore.ChangeRoomReq{ID: "a", Name: &name, Room: "main", Type: chatcore.RoomChangeAdd}))
	require.NoError(t, h.ChangeRooms(ctx, chatcore.ChangeRoomReq{ID: "a", Name: &name, Room: "r1", Type: chatcore.RoomChangeAdd}))

	newName := "alice2"
	require.NoError(t, h.ChangeRooms(ctx, chatcore.ChangeRoomReq{ID: "a", Name: &newName, Type: chatcore.RoomChangeNameChange}))

	rooms, err := h.RetrieveRooms(ctx, chatcore.RetrieveRoomsReq{Type: chatcore.RetrieveBySessionID, ID: "a"})
	require.NoError(t, err)
	require.Equal(t, "alice2", rooms["main"]["a"])
	require.Equal(t, "alice2", rooms["r1"]["a"])
}

func TestSubscribePublishDeliversEnvelope(t *testing.T) {
	h, inbound := newTestHub(t)
	ctx := context.Background()

	require.NoError(t, h.SubscribeRoom(ctx, "main"))
	// idempotent: a second subscribe must not create a second subscription
	require.NoError(t, h.SubscribeRoom(ctx, "main"))

	require.NoError(t, h.Publish(ctx, chatcore.Envelope{Room: "main", ID: "a", Content: "hello"}))

	select {
	case env := <-inbound:
		require.Equal(t, "main", env.Room)
		require.Equal(t, "a", env.ID)
		require.Equal(t, "hello", env.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("envelope was not delivered")
	}

	require.NoError(t, h.UnsubscribeRoom(ctx, "main"))
}

func TestUnsubscribeRoomIsIdempotent(t *testing.T) {
	h, _ := newTestHub(t)
	ctx := context.Background()
	require.NoError(t, h.UnsubscribeRoom(ctx, "never-subscribed"))
}

func TestCleanIssuesDelForEverySession(t *testing.T) {
	h, _ := newTestHub(t)
	ctx := context.Background()

	name := "alice"
	require.NoError(t, h.ChangeRooms(ctx, chatcore.ChangeRoomReq{ID: "a", Name: &name, Room: "main", Type: chatcore.RoomChangeAdd}))

	require.NoError(t, h.Clean(ctx, map[string]map[string]struct{}{
		"main": {"a": struct{}{}},
	}))

	rooms, err := h.RetrieveRooms(ctx, chatcore.RetrieveRoomsReq{Type: chatcore.RetrieveByRoomID, ID: "main"})
	require.NoError(t, err)
	require.Empty(t, rooms["main"])
}
