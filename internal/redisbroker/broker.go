package redisbroker

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Scripts holds the digests of the two membership-index scripts, loaded
// once at startup and invoked thereafter by SHA (EVALSHA).
type Scripts struct {
	RoomsChangeSHA   string
	RoomsRetrieveSHA string
}

// Broker is the Broker Adapter: publish/subscribe plus script execution
// over a single Redis client.
type Broker struct {
	client *redis.Client
	log    zerolog.Logger
}

func New(client *redis.Client, log zerolog.Logger) *Broker {
	return &Broker{client: client, log: log}
}

// LoadScripts registers rooms_change and rooms_retrieve, caching their
// digests. Must be called once before any ExecScript call.
func (b *Broker) LoadScripts(ctx context.Context) (*Scripts, error) {
	changeSHA, err := b.LoadScript(ctx, roomsChangeScript)
	if err != nil {
		return nil, fmt.Errorf("load rooms_change script: %w", err)
	}
	retrieveSHA, err := b.LoadScript(ctx, roomsRetrieveScript)
	if err != nil {
		return nil, fmt.Errorf("load rooms_retrieve script: %w", err)
	}
	return &Scripts{RoomsChangeSHA: changeSHA, RoomsRetrieveSHA: retrieveSHA}, nil
}

// LoadScript registers a script and returns its digest.
func (b *Broker) LoadScript(ctx context.Context, source string) (string, error) {
	sha, err := b.client.ScriptLoad(ctx, source).Result()
	if err != nil {
		return "", fmt.Errorf("script load: %w", err)
	}
	return sha, nil
}

// ExecScript invokes a pre-registered script by digest with a single JSON
// argument, returning its raw string reply.
func (b *Broker) ExecScript(ctx context.Context, sha string, arg string) (string, error) {
	res, err := b.client.EvalSha(ctx, sha, nil, arg).Result()
	if err != nil {
		return "", fmt.Errorf("evalsha: %w", err)
	}
	s, ok := res.(string)
	if !ok {
		return "", fmt.Errorf("evalsha: unexpected reply type %T", res)
	}
	return s, nil
}

// Publish is fire-and-forget; payload is an already-serialized envelope.
func (b *Broker) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe starts a background goroutine delivering messages on channel to
// onMessage until stop is closed, then unsubscribes and closes done. The
// caller must close stop and wait on done to guarantee the goroutine has
// fully detached before reusing the channel name (spec I5).
func (b *Broker) Subscribe(ctx context.Context, channel string, onMessage func([]byte)) (stop chan<- struct{}, done <-chan struct{}) {
	pubsub := b.client.Subscribe(ctx, channel)

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		defer func() {
			if err := pubsub.Close(); err != nil {
				b.log.Error().Err(err).Str("channel", channel).Msg("pubsub close failed")
			}
		}()

		msgCh := pubsub.Channel()
		for {
			select {
			case <-stopCh:
				return
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				onMessage([]byte(msg.Payload))
			}
		}
	}()

	return stopCh, doneCh
}
