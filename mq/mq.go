package mq

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const InventoryChannel = "inventory-updates"

// InventoryUpdate announces a new ticket count for a pool. EventIDs lists the
// pool owner and every sub-event drawing from it.
type InventoryUpdate struct {
	EventIDs    []primitive.ObjectID `json:"eventIds"`
	TicketsLeft int                  `json:"ticketsLeft"`
	SoldOut     bool                 `json:"soldOut"`
}

type Publisher interface {
	Publish(ctx context.Context, u InventoryUpdate) error
	// Subscribe delivers updates until cancel is called or ctx ends.
	Subscribe(ctx context.Context) (<-chan InventoryUpdate, func())
}

type RedisPublisher struct {
	Conn *redis.Client
}

func NewRedisPublisher(conn *redis.Client) *RedisPublisher {
	return &RedisPublisher{Conn: conn}
}

func (p *RedisPublisher) Publish(ctx context.Context, u InventoryUpdate) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return p.Conn.Publish(ctx, InventoryChannel, data).Err()
}

func (p *RedisPublisher) Subscribe(ctx context.Context) (<-chan InventoryUpdate, func()) {
	ctx, cancel := context.WithCancel(ctx)
	sub := p.Conn.Subscribe(ctx, InventoryChannel)
	out := make(chan InventoryUpdate, 16)

	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var u InventoryUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
					zap.L().Warn("bad inventory update", zap.Error(err))
					continue
				}
				select {
				case out <- u:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, cancel
}

// Local fans updates out inside one process.
type Local struct {
	mu   sync.Mutex
	subs map[chan InventoryUpdate]struct{}
}

func NewLocal() *Local {
	return &Local{subs: make(map[chan InventoryUpdate]struct{})}
}

func (l *Local) Publish(_ context.Context, u InventoryUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ch := range l.subs {
		select {
		case ch <- u:
		default:
			// slow subscriber; it will catch up on the next update
		}
	}
	return nil
}

func (l *Local) Subscribe(ctx context.Context) (<-chan InventoryUpdate, func()) {
	ch := make(chan InventoryUpdate, 16)
	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, ch)
			close(ch)
			l.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel
}
