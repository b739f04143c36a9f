package redislib

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/t2bot/sample-repo/common/rcontext"
)

var subscribeMutex = new(sync.Mutex)
var subscribeChans = make(map[string][]chan string)

func Publish(ctx rcontext.RequestContext, channel string, payload string) error {
	c := current()
	if c == nil {
		return nil
	}
	if c.ring.PoolStats().TotalConns == 0 {
		ctx.Log.Warn("Not broadcasting to Redis - no connections available")
		return nil
	}

	if err := c.ring.Publish(ctx.Context, channel, payload).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			ctx.Log.Warn("Not broadcasting to Redis - no connections available")
			return nil
		}
		return err
	}
	return nil
}

// Subscribe returns a channel of payloads published to the redis channel. Returns nil when redis
// is not configured. The channel survives reconnects and is closed if redis is later disabled.
func Subscribe(channel string) <-chan string {
	c := current()
	if c == nil {
		return nil
	}

	ch := make(chan string)
	subscribeMutex.Lock()
	defer subscribeMutex.Unlock()
	subscribeChans[channel] = append(subscribeChans[channel], ch)
	forward(c, channel, ch)
	return ch
}

// forward copies messages until the connection is closed.
func forward(c *connection, channel string, ch chan<- string) {
	sub := c.ring.Subscribe(context.Background(), channel)
	c.subsMutex.Lock()
	c.subs = append(c.subs, sub)
	c.subsMutex.Unlock()
	c.forwards.Add(1)
	go func() {
		defer c.forwards.Done()
		for msg := range sub.Channel() {
			ch <- msg.Payload
		}
	}()
}

func resubscribeAll(c *connection) {
	subscribeMutex.Lock()
	defer subscribeMutex.Unlock()
	for channel, chs := range subscribeChans {
		for _, ch := range chs {
			if c == nil {
				close(ch)
			} else {
				forward(c, channel, ch)
			}
		}
	}
	if c == nil {
		subscribeChans = make(map[string][]chan string)
	}
}
