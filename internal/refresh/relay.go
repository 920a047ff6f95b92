package refresh

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type relayMessage struct {
	Origin string `json:"origin"`
	Key    uint64 `json:"key"`
}

// RedisRelay shares triggers between instances over a Redis channel so that
// views served by any instance see the refresh.
type RedisRelay struct {
	client   *redis.Client
	channel  string
	instance string
	signal   *Signal
	log      *logrus.Entry
	// outbox holds the latest local key waiting to be published.
	outbox chan uint64
}

// NewRedisRelay hooks the relay into signal. A nil client yields nil; the
// signal then stays local to this process.
func NewRedisRelay(client *redis.Client, channel string, signal *Signal, log *logrus.Entry) *RedisRelay {
	if client == nil {
		return nil
	}
	relay := &RedisRelay{
		client:   client,
		channel:  channel,
		instance: uuid.NewString(),
		signal:   signal,
		log:      log,
		outbox:   make(chan uint64, 1),
	}
	signal.OnTrigger(relay.enqueue)
	return relay
}

// enqueue hands key to the publisher without waiting on Redis. A key not yet
// published is replaced by the newer one.
func (r *RedisRelay) enqueue(key uint64) {
	select {
	case r.outbox <- key:
		return
	default:
	}
	select {
	case <-r.outbox:
	default:
	}
	select {
	case r.outbox <- key:
	default:
	}
}

func (r *RedisRelay) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case key := <-r.outbox:
			r.publish(key)
		}
	}
}

func (r *RedisRelay) publish(key uint64) {
	data, err := json.Marshal(relayMessage{Origin: r.instance, Key: key})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		r.log.WithError(err).Warn("refresh relay publish failed")
	}
}

// Run publishes local triggers and applies remote ones until ctx is
// cancelled.
func (r *RedisRelay) Run(ctx context.Context) {
	if r == nil {
		return
	}
	go r.publishLoop(ctx)

	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if r.apply(msg.Payload) {
				r.log.Debug("refresh relayed from peer")
			}
		}
	}
}

func (r *RedisRelay) apply(payload string) bool {
	var message relayMessage
	if err := json.Unmarshal([]byte(payload), &message); err != nil {
		r.log.WithError(err).Warn("refresh relay: bad payload")
		return false
	}
	if message.Origin == r.instance {
		return false
	}
	r.signal.Bump()
	return true
}
