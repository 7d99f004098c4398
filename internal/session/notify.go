package session

import (
	"encoding/json"
	"time"

	"github.com/relaychat/server/internal/chatcore"
)

const (
	updateSessionPrefix = "update_session:"
	listPrefix          = "list:"
	joinRoomPrefix      = "join_room:"
	quitRoomPrefix      = "quit_room:"
	updateNamePrefix    = "update_name:"
	messagePrefix       = "message:"
)

type updateSessionPayload struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

type roomChangePayload struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Room      string `json:"room"`
}

type updateNamePayload struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	OldName   string `json:"old_name"`
}

type messagePayload struct {
	ID       *MessageID `json:"id"`
	Room     string     `json:"room"`
	FromID   string     `json:"from_id"`
	FromName string     `json:"from_name"`
	Content  string     `json:"content"`
	Time     string     `json:"time"`
}

func encodeFrame(prefix string, payload interface{}) string {
	body, err := json.Marshal(payload)
	if err != nil {
		// payload types here are all trivially serializable; a failure
		// means a programming error, not a runtime condition.
		panic(err)
	}
	return prefix + string(body)
}

func updateSessionFrame(room, name string) string {
	return encodeFrame(updateSessionPrefix, updateSessionPayload{Room: room, Name: name})
}

func listFrame(rooms chatcore.UpdateRooms) string {
	return encodeFrame(listPrefix, rooms)
}

func joinRoomFrame(sessionID, name, room string) string {
	return encodeFrame(joinRoomPrefix, roomChangePayload{SessionID: sessionID, Name: name, Room: room})
}

func quitRoomFrame(sessionID, name, room string) string {
	return encodeFrame(quitRoomPrefix, roomChangePayload{SessionID: sessionID, Name: name, Room: room})
}

func updateNameFrame(sessionID, name, oldName string) string {
	return encodeFrame(updateNamePrefix, updateNamePayload{SessionID: sessionID, Name: name, OldName: oldName})
}

func messageFrame(room, fromID, fromName, content string) string {
	return encodeFrame(messagePrefix, messagePayload{
		ID:       NewMessageID(),
		Room:     room,
		FromID:   fromID,
		FromName: fromName,
		Content:  content,
		Time:     time.Now().UTC().Format(time.RFC3339),
	})
}
