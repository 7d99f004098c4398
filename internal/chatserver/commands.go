package chatserver

import "github.com/relaychat/server/internal/chatcore"

// command is executed on the actor's own goroutine; each variant carries a
// reply channel standing in for a one-shot future.
type command interface {
	execute(s *ChatServer)
}

// ConnectResult carries the reply for a connect command: the spec requires
// hub transport errors during Connect to propagate to the caller rather
// than being swallowed (§4.3, §7).
type ConnectResult struct {
	ID  SessionID
	Err error
}

type connectCmd struct {
	outbound chan<- Msg
	id       SessionID
	name     string
	reply    chan ConnectResult
}

func (c *connectCmd) execute(s *ChatServer) {
	id, err := s.connect(c.outbound, c.id, c.name)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", c.id).Msg("connect failed")
	}
	c.reply <- ConnectResult{ID: id, Err: err}
}

// DisconnectResult carries the reply for a disconnect command: the rooms
// the session had been in, plus any hub transport error encountered while
// tearing the membership down (§4.3, §7).
type DisconnectResult struct {
	Rooms []RoomID
	Err   error
}

type disconnectCmd struct {
	sessionID SessionID
	reply     chan DisconnectResult
}

func (c *disconnectCmd) execute(s *ChatServer) {
	rooms, err := s.disconnect(c.sessionID)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", c.sessionID).Msg("disconnect failed")
	}
	c.reply <- DisconnectResult{Rooms: rooms, Err: err}
}

type joinCmd struct {
	sessionID SessionID
	room      RoomID
	reply     chan struct{}
}

func (c *joinCmd) execute(s *ChatServer) {
	if err := s.joinRoom(c.sessionID, c.room); err != nil {
		s.log.Error().Err(err).Str("session_id", c.sessionID).Str("room", c.room).Msg("join failed")
	}
	c.reply <- struct{}{}
}

type quitCmd struct {
	sessionID SessionID
	room      RoomID
	reply     chan struct{}
}

func (c *quitCmd) execute(s *ChatServer) {
	if err := s.quitRoom(c.sessionID, c.room); err != nil {
		s.log.Error().Err(err).Str("session_id", c.sessionID).Str("room", c.room).Msg("quit failed")
	}
	c.reply <- struct{}{}
}

type nameCmd struct {
	sessionID SessionID
	name      string
	reply     chan struct{}
}

func (c *nameCmd) execute(s *ChatServer) {
	if err := s.changeName(c.sessionID, c.name); err != nil {
		s.log.Error().Err(err).Str("session_id", c.sessionID).Msg("name change failed")
	}
	c.reply <- struct{}{}
}

type getRoomsBySessionIDCmd struct {
	sessionID SessionID
	reply     chan chatcore.UpdateRooms
}

func (c *getRoomsBySessionIDCmd) execute(s *ChatServer) {
	rooms, err := s.getRoomsBySessionID(c.sessionID)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", c.sessionID).Msg("get_rooms_by_session_id failed")
	}
	c.reply <- rooms
}

type getRoomsByRoomIDCmd struct {
	roomID string
	reply  chan chatcore.UpdateRooms
}

func (c *getRoomsByRoomIDCmd) execute(s *ChatServer) {
	rooms, err := s.getRoomsByRoomID(c.roomID)
	if err != nil {
		s.log.Error().Err(err).Str("room", c.roomID).Msg("get_rooms_by_room_id failed")
	}
	c.reply <- rooms
}

type messageCmd struct {
	room   RoomID
	fromID SessionID
	msg    Msg
	reply  chan struct{}
}

func (c *messageCmd) execute(s *ChatServer) {
	if err := s.publishMessage(c.room, c.fromID, c.msg); err != nil {
		s.log.Error().Err(err).Str("room", c.room).Str("from_id", c.fromID).Msg("publish failed")
	}
	c.reply <- struct{}{}
}

type closeCmd struct {
	reply chan struct{}
}

func (c *closeCmd) execute(s *ChatServer) {
	s.closeAll()
	c.reply <- struct{}{}
}
