package chatserver

import (
	"context"
	"sync"

	"github.com/relaychat/server/internal/chatcore"
	"github.com/rs/zerolog"
)

// HubClient is the subset of internal/hub.Hub the actor depends on,
// mirroring the original's generic bound over a Hub trait.
type HubClient interface {
	SubscribeRoom(ctx context.Context, room string) error
	UnsubscribeRoom(ctx context.Context, room string) error
	Publish(ctx context.Context, env chatcore.Envelope) error
	ChangeRooms(ctx context.Context, req chatcore.ChangeRoomReq) error
	RetrieveRooms(ctx context.Context, req chatcore.RetrieveRoomsReq) (chatcore.UpdateRooms, error)
	Clean(ctx context.Context, snapshot map[string]map[string]struct{}) error
}

// ChatServer owns sessions and rooms local to this process and serializes
// every mutation through its command channel.
type ChatServer struct {
	hub         HubClient
	log         zerolog.Logger
	defaultRoom RoomID

	// sessions is exclusively read/written from the run loop goroutine.
	sessions map[SessionID]chan<- Msg

	// rooms is additionally guarded by a mutex even though only the run
	// loop mutates it, matching the ownership split the original design
	// calls for (a read snapshot is taken during Close).
	roomsMu sync.Mutex
	rooms   map[RoomID]map[SessionID]struct{}

	cmdCh chan command

	// stopped is set by the Close command's handler and checked by Run
	// right after executing a command; both only ever run on the run loop's
	// own goroutine, so no synchronization is needed.
	stopped bool
}

// New constructs the actor and a Handle for dispatching commands to it.
// Call Run in its own goroutine to start processing.
func New(hub HubClient, defaultRoom string, log zerolog.Logger) (*ChatServer, *Handle) {
	s := &ChatServer{
		hub:         hub,
		log:         log,
		defaultRoom: defaultRoom,
		sessions:    make(map[SessionID]chan<- Msg),
		rooms:       make(map[RoomID]map[SessionID]struct{}),
		cmdCh:       make(chan command, 64),
	}
	return s, &Handle{cmdCh: s.cmdCh}
}

// Run selects between submitted commands and hub-delivered envelopes until
// a Close command is handled, ctx is cancelled, or the hub inbound channel
// closes.
func (s *ChatServer) Run(ctx context.Context, hubInbound <-chan chatcore.Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-s.cmdCh:
			if !ok {
				return
			}
			cmd.execute(s)
			if s.stopped {
				return
			}
		case env, ok := <-hubInbound:
			if !ok {
				s.log.Warn().Msg("hub inbound channel closed")
				return
			}
			s.deliver(env)
		}
	}
}

// deliver forwards a broker-received envelope to every local member of its
// room except the sender (I6: no self-echo).
func (s *ChatServer) deliver(env chatcore.Envelope) {
	s.roomsMu.Lock()
	members := s.rooms[env.Room]
	recipients := make([]SessionID, 0, len(members))
	for member := range members {
		if member != env.ID {
			recipients = append(recipients, member)
		}
	}
	s.roomsMu.Unlock()

	for _, member := range recipients {
		if mailbox, ok := s.sessions[member]; ok {
			select {
			case mailbox <- env.Content:
			default:
				s.log.Warn().Str("session_id", member).Msg("outbound mailbox full, dropping delivery")
			}
		}
		// a missing mailbox is a race with disconnect, not an error.
	}
}

func (s *ChatServer) connect(outbound chan<- Msg, id SessionID, name string) (SessionID, error) {
	ctx := context.Background()

	if err := s.hub.SubscribeRoom(ctx, s.defaultRoom); err != nil {
		return "", err
	}

	// ChangeRooms is fallible; run it before touching sessions/rooms so a
	// transport error leaves no phantom local entry for a connection that
	// never actually registered.
	name_ := name
	if err := s.hub.ChangeRooms(ctx, chatcore.ChangeRoomReq{
		ID:   id,
		Name: &name_,
		Room: s.defaultRoom,
		Type: chatcore.RoomChangeAdd,
	}); err != nil {
		return "", err
	}

	s.sessions[id] = outbound

	s.roomsMu.Lock()
	if s.rooms[s.defaultRoom] == nil {
		s.rooms[s.defaultRoom] = make(map[SessionID]struct{})
	}
	s.rooms[s.defaultRoom][id] = struct{}{}
	s.roomsMu.Unlock()

	return id, nil
}

func (s *ChatServer) disconnect(sessionID SessionID) ([]RoomID, error) {
	if _, ok := s.sessions[sessionID]; !ok {
		return nil, nil
	}
	delete(s.sessions, sessionID)

	var left []RoomID
	s.roomsMu.Lock()
	for room, members := range s.rooms {
		if _, ok := members[sessionID]; ok {
			delete(members, sessionID)
			left = append(left, room)
		}
	}
	var emptied []RoomID
	for _, room := range left {
		if len(s.rooms[room]) == 0 {
			delete(s.rooms, room)
			emptied = append(emptied, room)
		}
	}
	s.roomsMu.Unlock()

	ctx := context.Background()
	for _, room := range left {
		if err := s.hub.ChangeRooms(ctx, chatcore.ChangeRoomReq{
			ID:   sessionID,
			Room: room,
			Type: chatcore.RoomChangeDel,
		}); err != nil {
			return left, err
		}
	}
	for _, room := range emptied {
		if err := s.hub.UnsubscribeRoom(ctx, room); err != nil {
			return left, err
		}
	}

	return left, nil
}

func (s *ChatServer) getRoomsBySessionID(sessionID SessionID) (chatcore.UpdateRooms, error) {
	return s.hub.RetrieveRooms(context.Background(), chatcore.RetrieveRoomsReq{
		Type: chatcore.RetrieveBySessionID,
		ID:   sessionID,
	})
}

func (s *ChatServer) getRoomsByRoomID(roomID string) (chatcore.UpdateRooms, error) {
	return s.hub.RetrieveRooms(context.Background(), chatcore.RetrieveRoomsReq{
		Type: chatcore.RetrieveByRoomID,
		ID:   roomID,
	})
}

func (s *ChatServer) joinRoom(sessionID SessionID, room RoomID) error {
	ctx := context.Background()
	if err := s.hub.SubscribeRoom(ctx, room); err != nil {
		return err
	}

	// As in connect, run the fallible ChangeRooms call before mutating the
	// local room set, so a transport error doesn't leave a phantom member.
	if err := s.hub.ChangeRooms(ctx, chatcore.ChangeRoomReq{
		ID:   sessionID,
		Room: room,
		Type: chatcore.RoomChangeAdd,
	}); err != nil {
		return err
	}

	s.roomsMu.Lock()
	if s.rooms[room] == nil {
		s.rooms[room] = make(map[SessionID]struct{})
	}
	s.rooms[room][sessionID] = struct{}{}
	s.roomsMu.Unlock()

	return nil
}

func (s *ChatServer) quitRoom(sessionID SessionID, room RoomID) error {
	ctx := context.Background()

	s.roomsMu.Lock()
	empty := false
	if members, ok := s.rooms[room]; ok {
		if _, present := members[sessionID]; present {
			delete(members, sessionID)
			empty = len(members) == 0
			if empty {
				delete(s.rooms, room)
			}
		}
	}
	s.roomsMu.Unlock()

	if empty {
		if err := s.hub.UnsubscribeRoom(ctx, room); err != nil {
			return err
		}
	}

	return s.hub.ChangeRooms(ctx, chatcore.ChangeRoomReq{
		ID:   sessionID,
		Room: room,
		Type: chatcore.RoomChangeDel,
	})
}

func (s *ChatServer) changeName(sessionID SessionID, name string) error {
	name_ := name
	return s.hub.ChangeRooms(context.Background(), chatcore.ChangeRoomReq{
		ID:   sessionID,
		Name: &name_,
		Room: "",
		Type: chatcore.RoomChangeNameChange,
	})
}

func (s *ChatServer) publishMessage(room RoomID, fromID SessionID, msg Msg) error {
	return s.hub.Publish(context.Background(), chatcore.Envelope{
		Room:    room,
		ID:      fromID,
		Content: msg,
	})
}

func (s *ChatServer) closeAll() {
	s.roomsMu.Lock()
	snapshot := make(map[string]map[string]struct{}, len(s.rooms))
	for room, members := range s.rooms {
		copied := make(map[string]struct{}, len(members))
		for member := range members {
			copied[member] = struct{}{}
		}
		snapshot[room] = copied
	}
	s.roomsMu.Unlock()

	if err := s.hub.Clean(context.Background(), snapshot); err != nil {
		s.log.Error().Err(err).Msg("clean failed during close")
	}
	s.stopped = true
}
