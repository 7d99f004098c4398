// Package session implements the per-connection Session Loop (spec §4.4):
// one goroutine per WebSocket multiplexing inbound frames, the outbound
// mailbox fed by the chat server actor, and heartbeat ticks.
package session

import (
	"context"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/relaychat/server/internal/chatserver"
	"github.com/rs/zerolog"
)

// Config bundles the session loop's tunables, pulled from the process
// config at wiring time.
type Config struct {
	DefaultRoom       string
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
}

type wsFrame struct {
	msgType int
	data    []byte
	err     error
}

// Serve drives one WebSocket connection end to end: Connect, the initial
// notification burst, the main select loop, and disconnect cleanup. It
// blocks until the connection ends.
func Serve(ctx context.Context, conn *websocket.Conn, sessionID, displayName string, chatServer *chatserver.Handle, cfg Config, log zerolog.Logger) {
	log = log.With().Str("session_id", sessionID).Logger()

	mailbox := make(chan chatserver.Msg, 256)
	if _, err := chatServer.Connect(mailbox, sessionID, displayName); err != nil {
		log.Error().Err(err).Msg("connect failed, closing with transport error")
		closeMsg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "transport error, please reconnect")
		deadline := time.Now().Add(writeWait)
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, deadline)
		_ = conn.Close()
		return
	}

	currentRoom := cfg.DefaultRoom
	name := displayName

	writeText(conn, updateSessionFrame(currentRoom, name))

	rooms := chatServer.GetRoomsBySessionID(sessionID)
	writeText(conn, listFrame(rooms))

	chatServer.SendMessage(cfg.DefaultRoom, sessionID, joinRoomFrame(sessionID, name, cfg.DefaultRoom))
	writeText(conn, joinRoomFrame(sessionID, name, cfg.DefaultRoom))

	readCh := make(chan wsFrame, 1)
	stopReader := make(chan struct{})
	go readLoop(conn, readCh, stopReader)
	defer close(stopReader)

	ticker := time.NewTicker(cfg.HeartbeatInterval)
	defer ticker.Stop()
	lastHeartbeat := time.Now()

	var closeReason *websocket.CloseError

loop:
	for {
		select {
		case <-ctx.Done():
			break loop

		case frame := <-readCh:
			if frame.err != nil {
				if ce, ok := frame.err.(*websocket.CloseError); ok {
					closeReason = ce
				} else {
					log.Debug().Err(frame.err).Msg("read error")
				}
				break loop
			}
			switch frame.msgType {
			case websocket.PingMessage:
				lastHeartbeat = time.Now()
				_ = conn.WriteMessage(websocket.PongMessage, frame.data)
			case websocket.PongMessage:
				lastHeartbeat = time.Now()
			case websocket.TextMessage:
				processText(chatServer, conn, string(frame.data), sessionID, &name, &currentRoom, cfg.DefaultRoom)
			case websocket.BinaryMessage:
				log.Warn().Msg("unexpected binary message")
			case websocket.CloseMessage:
				break loop
			}

		case msg, ok := <-mailbox:
			if !ok {
				// the actor dropped our mailbox while claiming to still be
				// live: a programming error, not a runtime condition.
				panic("session: outbound mailbox closed unexpectedly")
			}
			writeText(conn, msg)

		case <-ticker.C:
			if time.Since(lastHeartbeat) > cfg.HeartbeatTimeout {
				log.Info().Msg("heartbeat timeout, disconnecting")
				break loop
			}
			if err := conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				break loop
			}
		}
	}

	leftRooms, err := chatServer.Disconnect(sessionID)
	if err != nil {
		log.Error().Err(err).Msg("disconnect hub cleanup failed")
	}
	for _, room := range leftRooms {
		chatServer.SendMessage(room, sessionID, quitRoomFrame(sessionID, name, room))
		writeText(conn, quitRoomFrame(sessionID, name, room))
	}

	code := websocket.CloseNormalClosure
	reason := ""
	if closeReason != nil {
		code = closeReason.Code
		reason = closeReason.Text
	}
	deadline := time.Now().Add(writeWait)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
}

func readLoop(conn *websocket.Conn, out chan<- wsFrame, stop <-chan struct{}) {
	// ReadMessage only returns data frames; ping and pong frames reach the
	// control loop through these handlers so they refresh the heartbeat.
	forward := func(msgType int) func(string) error {
		return func(appData string) error {
			select {
			case out <- wsFrame{msgType: msgType, data: []byte(appData)}:
			case <-stop:
			}
			return nil
		}
	}
	conn.SetPingHandler(forward(websocket.PingMessage))
	conn.SetPongHandler(forward(websocket.PongMessage))
	for {
		t, data, err := conn.ReadMessage()
		select {
		case out <- wsFrame{msgType: t, data: data, err: err}:
		case <-stop:
			return
		}
		if err != nil {
			return
		}
	}
}

const writeWait = 10 * time.Second

func writeText(conn *websocket.Conn, text string) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func processText(chatServer *chatserver.Handle, conn *websocket.Conn, text, sessionID string, name, room *string, defaultRoom string) {
	msg := strings.TrimSpace(text)

	if !strings.HasPrefix(msg, "/") {
		chatServer.SendMessage(*room, sessionID, messageFrame(*room, sessionID, *name, msg))
		return
	}

	parts := strings.SplitN(msg, " ", 2)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/list":
		rooms := chatServer.GetRoomsBySessionID(sessionID)
		writeText(conn, listFrame(rooms))

	case "/join":
		if arg == "" {
			writeText(conn, "!!! room name is required")
			return
		}
		chatServer.Join(sessionID, arg)
		*room = arg
		writeText(conn, updateSessionFrame(*room, *name))
		chatServer.SendMessage(*room, sessionID, joinRoomFrame(sessionID, *name, *room))
		writeText(conn, joinRoomFrame(sessionID, *name, *room))

	case "/quit":
		if arg == "" {
			writeText(conn, "!!! room name is required")
			return
		}
		if arg == defaultRoom {
			writeText(conn, "!!! you can not quit default room: "+arg)
			return
		}
		chatServer.SendMessage(arg, sessionID, quitRoomFrame(sessionID, *name, arg))
		writeText(conn, quitRoomFrame(sessionID, *name, arg))
		chatServer.Quit(sessionID, arg)
		*room = defaultRoom
		writeText(conn, updateSessionFrame(*room, *name))

	case "/name":
		if arg == "" {
			writeText(conn, "!!! name is required")
			return
		}
		oldName := *name
		*name = arg
		chatServer.ChangeName(sessionID, arg)
		writeText(conn, updateSessionFrame(*room, *name))
		chatServer.SendMessage(defaultRoom, sessionID, updateNameFrame(sessionID, *name, oldName))

	default:
		writeText(conn, "!!! unknown command: "+msg)
	}
}
