package chatserver

import "github.com/relaychat/server/internal/chatcore"

// Handle is a cloneable dispatcher to the actor, reducing the boilerplate
// of setting up a reply channel per call. Safe for concurrent use by
// multiple session loops.
type Handle struct {
	cmdCh chan command
}

// Connect registers a new session. A non-nil error is a hub transport
// failure that the caller must surface as a connection failure (§7): the
// session loop must not proceed to serve the connection.
func (h *Handle) Connect(outbound chan<- Msg, id SessionID, name string) (SessionID, error) {
	reply := make(chan ConnectResult, 1)
	h.cmdCh <- &connectCmd{outbound: outbound, id: id, name: name, reply: reply}
	res := <-reply
	return res.ID, res.Err
}

// Disconnect tears a session down and returns the rooms it had been in.
// The returned error, if any, is a hub transport failure encountered
// mid-teardown; the caller still uses the returned room list (a best-effort
// partial result) to emit quit notifications for rooms already removed.
func (h *Handle) Disconnect(sessionID SessionID) ([]RoomID, error) {
	reply := make(chan DisconnectResult, 1)
	h.cmdCh <- &disconnectCmd{sessionID: sessionID, reply: reply}
	res := <-reply
	return res.Rooms, res.Err
}

func (h *Handle) Join(sessionID SessionID, room RoomID) {
	reply := make(chan struct{}, 1)
	h.cmdCh <- &joinCmd{sessionID: sessionID, room: room, reply: reply}
	<-reply
}

func (h *Handle) Quit(sessionID SessionID, room RoomID) {
	reply := make(chan struct{}, 1)
	h.cmdCh <- &quitCmd{sessionID: sessionID, room: room, reply: reply}
	<-reply
}

func (h *Handle) ChangeName(sessionID SessionID, name string) {
	reply := make(chan struct{}, 1)
	h.cmdCh <- &nameCmd{sessionID: sessionID, name: name, reply: reply}
	<-reply
}

func (h *Handle) GetRoomsBySessionID(sessionID SessionID) chatcore.UpdateRooms {
	reply := make(chan chatcore.UpdateRooms, 1)
	h.cmdCh <- &getRoomsBySessionIDCmd{sessionID: sessionID, reply: reply}
	return <-reply
}

func (h *Handle) GetRoomsByRoomID(roomID string) chatcore.UpdateRooms {
	reply := make(chan chatcore.UpdateRooms, 1)
	h.cmdCh <- &getRoomsByRoomIDCmd{roomID: roomID, reply: reply}
	return <-reply
}

// SendMessage publishes a chat message to room on behalf of sessionID.
func (h *Handle) SendMessage(room RoomID, sessionID SessionID, msg Msg) {
	reply := make(chan struct{}, 1)
	h.cmdCh <- &messageCmd{room: room, fromID: sessionID, msg: msg, reply: reply}
	<-reply
}

// Close snapshots local rooms, cleans the shared index, and stops the run
// loop.
func (h *Handle) Close() {
	reply := make(chan struct{}, 1)
	h.cmdCh <- &closeCmd{reply: reply}
	<-reply
}
