// Package hub implements the distributed membership index and message
// fan-out (spec §4.2) on top of the redisbroker Broker Adapter.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/relaychat/server/internal/chatcore"
	"github.com/relaychat/server/internal/redisbroker"
	"github.com/rs/zerolog"
)

const messageChannelSuffix = "_message"

type subscription struct {
	stop chan<- struct{}
	done <-chan struct{}
}

// Hub maintains reference-counted per-process broker subscriptions,
// publishes outbound envelopes, mutates the shared membership index via
// atomic scripts, and funnels inbound broker deliveries into a single
// queue.
type Hub struct {
	broker  *redisbroker.Broker
	scripts *redisbroker.Scripts
	log     zerolog.Logger

	mu       sync.Mutex
	channels map[string]subscription

	inbound chan chatcore.Envelope
}

// New constructs the hub and returns the receive half of the inbound
// envelope queue. Broker-delivered envelopes for every subscribed room are
// pushed onto it; the queue holds 256 envelopes, and an envelope that
// arrives while it is full is dropped and logged.
func New(broker *redisbroker.Broker, scripts *redisbroker.Scripts, log zerolog.Logger) (*Hub, <-chan chatcore.Envelope) {
	inbound := make(chan chatcore.Envelope, 256)
	h := &Hub{
		broker:   broker,
		scripts:  scripts,
		log:      log,
		channels: make(map[string]subscription),
		inbound:  inbound,
	}
	return h, inbound
}

func roomChannel(room string) string {
	return room + messageChannelSuffix
}

// SubscribeRoom is idempotent: if a subscription already exists for room,
// it returns immediately.
func (h *Hub) SubscribeRoom(ctx context.Context, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.channels[room]; ok {
		return nil
	}

	stop, done := h.broker.Subscribe(ctx, roomChannel(room), func(payload []byte) {
		var env chatcore.Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			h.log.Error().Err(err).Str("room", room).Msg("dropping undecodable envelope")
			return
		}
		select {
		case h.inbound <- env:
		default:
			// the inbound buffer is full; the envelope is dropped rather
			// than blocking this subscription's delivery goroutine.
			h.log.Warn().Str("room", room).Msg("inbound queue full, dropping envelope")
		}
	})

	h.channels[room] = subscription{stop: stop, done: done}
	return nil
}

// UnsubscribeRoom blocks until the background delivery goroutine has
// fully detached, satisfying I5.
func (h *Hub) UnsubscribeRoom(ctx context.Context, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.channels[room]
	if !ok {
		return nil
	}
	delete(h.channels, room)

	close(sub.stop)
	select {
	case <-sub.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Publish publishes an envelope to its room's channel.
func (h *Hub) Publish(ctx context.Context, env chatcore.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return h.broker.Publish(ctx, roomChannel(env.Room), payload)
}

// ChangeRooms invokes the rooms_change script and raises a business error
// when the script reports a non-zero status.
func (h *Hub) ChangeRooms(ctx context.Context, req chatcore.ChangeRoomReq) error {
	arg, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal change_rooms request: %w", err)
	}

	reply, err := h.broker.ExecScript(ctx, h.scripts.RoomsChangeSHA, string(arg))
	if err != nil {
		return fmt.Errorf("change_rooms: %w", err)
	}

	var res chatcore.RoomChangeResult
	if err := json.Unmarshal([]byte(reply), &res); err != nil {
		return fmt.Errorf("decode change_rooms reply: %w", err)
	}

	return chatcore.NewBusinessError(res)
}

// RetrieveRooms invokes the rooms_retrieve script and decodes its reply.
func (h *Hub) RetrieveRooms(ctx context.Context, req chatcore.RetrieveRoomsReq) (chatcore.UpdateRooms, error) {
	arg, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal retrieve_rooms request: %w", err)
	}

	reply, err := h.broker.ExecScript(ctx, h.scripts.RoomsRetrieveSHA, string(arg))
	if err != nil {
		return nil, fmt.Errorf("retrieve_rooms: %w", err)
	}

	var rooms chatcore.UpdateRooms
	if err := json.Unmarshal([]byte(reply), &rooms); err != nil {
		return nil, fmt.Errorf("decode retrieve_rooms reply: %w", err)
	}
	return rooms, nil
}

// Clean issues a Del change_rooms call for every (room, session) pair in
// the snapshot. Called during graceful shutdown.
func (h *Hub) Clean(ctx context.Context, snapshot map[string]map[string]struct{}) error {
	for room, sessions := range snapshot {
		for sessionID := range sessions {
			err := h.ChangeRooms(ctx, chatcore.ChangeRoomReq{
				ID:   sessionID,
				Room: room,
				Type: chatcore.RoomChangeDel,
			})
			if err != nil {
				h.log.Error().Err(err).Str("room", room).Str("session_id", sessionID).Msg("clean: change_rooms failed")
			}
		}
	}
	return nil
}
