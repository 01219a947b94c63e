package source

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/MaxCaruta/purelove-sub002/internal/models"
)

// Pub/Sub channels the site backend publishes on.
const (
	MessageChannel      = "purelove:events:messages"
	ConversationChannel = "purelove:events:conversations"
)

// RedisSource subscribes to the platform's Redis Pub/Sub event channels and
// decodes msgpack payloads into typed events.
type RedisSource struct {
	client *redis.Client
}

func NewRedisSource(client *redis.Client) *RedisSource {
	return &RedisSource{client: client}
}

func (s *RedisSource) Subscribe(handlers Handlers, onError func(error)) (Subscription, error) {
	ctx := context.Background()
	ps := s.client.Subscribe(ctx, MessageChannel, ConversationChannel)

	// Force the SUBSCRIBE round trip so a dead broker fails here, not on the
	// first receive.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := &redisSubscription{
		ps:   ps,
		done: make(chan struct{}),
	}
	go sub.loop(handlers, onError)
	return sub, nil
}

type redisSubscription struct {
	ps        *redis.PubSub
	done      chan struct{}
	closeOnce sync.Once
}

func (s *redisSubscription) loop(handlers Handlers, onError func(error)) {
	ch := s.ps.Channel()
	for {
		select {
		case <-s.done:
			return
		case m, ok := <-ch:
			if !ok {
				// Channel closed underneath us: transport failure unless we
				// closed the subscription ourselves.
				select {
				case <-s.done:
				default:
					if onError != nil {
						onError(errors.New("event channel closed"))
					}
				}
				return
			}
			s.dispatch(m, handlers)
		}
	}
}

func (s *redisSubscription) dispatch(m *redis.Message, handlers Handlers) {
	switch m.Channel {
	case MessageChannel:
		var ev models.MessageEvent
		if err := msgpack.Unmarshal([]byte(m.Payload), &ev); err != nil {
			log.Printf("Dropping malformed message event: %v", err)
			return
		}
		if handlers.OnMessage != nil {
			handlers.OnMessage(ev)
		}
	case ConversationChannel:
		var ev models.ConversationEvent
		if err := msgpack.Unmarshal([]byte(m.Payload), &ev); err != nil {
			log.Printf("Dropping malformed conversation event: %v", err)
			return
		}
		if handlers.OnConversation != nil {
			handlers.OnConversation(ev)
		}
	}
}

func (s *redisSubscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return s.ps.Close()
}
