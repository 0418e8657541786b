package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"github.com/yeisme/staticmd/pkg/configs"
)

// 消息 UUID 放在载荷前，以 '\n' 分隔；redis pub/sub 不携带元数据.
const uuidSep = '\n'

// RedisPublisher Redis Publisher 实现.
type RedisPublisher struct {
	client *redis.Client
}

// RedisSubscriber Redis Subscriber 实现，每次 Subscribe 独立一个 PubSub.
type RedisSubscriber struct {
	client     *redis.Client
	bufferSize int
	logger     watermill.LoggerAdapter

	mu      sync.Mutex
	subs    []*redis.PubSub
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

func init() {
	RegisterFactory(configs.MQTypeRedis, redisFactory)
}

func redisFactory(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	size := cfg.Common.ChannelSize
	if size <= 0 {
		size = configs.DefaultChannelSize
	}

	return &RedisPublisher{client: rdb}, &RedisSubscriber{
		client:     rdb,
		bufferSize: size,
		logger:     logger,
		closeCh:    make(chan struct{}),
	}, nil
}

func (p *RedisPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		ctx := msg.Context()

		data := make([]byte, 0, len(msg.UUID)+1+len(msg.Payload))
		data = append(data, msg.UUID...)
		data = append(data, uuidSep)
		data = append(data, msg.Payload...)

		if err := p.client.Publish(ctx, topic, data).Err(); err != nil {
			return fmt.Errorf("redis publish %s: %w", topic, err)
		}
	}

	return nil
}

// Close 连接由 Subscriber 共享，在 Subscriber.Close 中关闭.
func (p *RedisPublisher) Close() error {
	return nil
}

func (s *RedisSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("redis subscriber closed")
	}

	ps := s.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", topic, err)
	}

	s.subs = append(s.subs, ps)

	out := make(chan *message.Message, s.bufferSize)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer close(out)

		in := ps.Channel()

		for {
			select {
			case <-s.closeCh:
				return
			case <-ctx.Done():
				return
			case rm, ok := <-in:
				if !ok {
					return
				}

				if !s.deliver(ctx, out, rm.Payload) {
					return
				}
			}
		}
	}()

	return out, nil
}

// deliver 投递一条消息并等待 Ack/Nack，Nack 时重新投递.
func (s *RedisSubscriber) deliver(ctx context.Context, out chan<- *message.Message, raw string) bool {
	uuid, payload := watermill.NewUUID(), []byte(raw)
	for i := 0; i < len(raw); i++ {
		if raw[i] == uuidSep {
			uuid, payload = raw[:i], []byte(raw[i+1:])
			break
		}
	}

	for {
		msg := message.NewMessage(uuid, payload)
		msg.SetContext(ctx)

		select {
		case out <- msg:
		case <-s.closeCh:
			return false
		case <-ctx.Done():
			return false
		}

		select {
		case <-msg.Acked():
			return true
		case <-msg.Nacked():
			s.logger.Debug("message nacked, redelivering", watermill.LogFields{"uuid": uuid})
		case <-s.closeCh:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

func (s *RedisSubscriber) Close() error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	close(s.closeCh)

	var errs []error
	for _, ps := range s.subs {
		errs = append(errs, ps.Close())
	}
	s.mu.Unlock()

	s.wg.Wait()

	errs = append(errs, s.client.Close())

	return errors.Join(errs...)
}
