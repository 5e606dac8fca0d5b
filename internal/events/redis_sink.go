package events

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSink publishes every bus event to a Redis Pub/Sub channel so a fleet
// collector can aggregate events from many agents. Delivery is best effort:
// a publish failure is logged and dropped, never surfaced to the publisher.
type RedisSink struct {
	rdb     *redis.Client
	channel string
}

// NewRedisSink connects to Redis and verifies connectivity with a bounded
// ping. The caller decides whether a connection failure is fatal (it is not;
// the agent runs fine with the in-process bus alone).
func NewRedisSink(addr, password string, db int, channel string) (*RedisSink, error) {
	if channel == "" {
		channel = "voltix:events"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed (%s): %w", addr, err)
	}

	log.Printf("[Events] Redis sink connected: %s channel=%s", addr, channel)
	return &RedisSink{rdb: rdb, channel: channel}, nil
}

// Deliver publishes the event to the fleet channel.
func (s *RedisSink) Deliver(event *Event) {
	data, err := event.JSON()
	if err != nil {
		log.Printf("[Events] Marshal failed for %s: %v", event.Type, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.rdb.Publish(ctx, s.channel, data).Err(); err != nil {
		log.Printf("[Events] Redis publish failed: %v", err)
	}
}

// Close shuts down the underlying client.
func (s *RedisSink) Close() error {
	return s.rdb.Close()
}

var _ Sink = (*RedisSink)(nil)
