package redislib

import (
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	rsredis "github.com/go-redsync/redsync/v4/redis"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/sample-repo/common/config"
)

const dialTimeout = 10 * time.Second

// connection is one generation of redis clients. A reconnect replaces it wholesale.
type connection struct {
	ring    *redis.Ring
	clients []*redis.Client
	rs      *redsync.Redsync

	subsMutex sync.Mutex
	subs      []*redis.PubSub
	forwards  sync.WaitGroup
}

var connMutex = new(sync.RWMutex)
var conn *connection
var connAttempted = false

func connect(conf config.RedisConfig) *connection {
	if !conf.Enabled {
		return nil
	}
	if len(conf.Shards) == 0 {
		logrus.Warn("Redis is enabled but no shards are configured - continuing without redis")
		return nil
	}

	c := &connection{clients: make([]*redis.Client, 0, len(conf.Shards))}
	addresses := make(map[string]string)
	pools := make([]rsredis.Pool, 0, len(conf.Shards))
	for _, shard := range conf.Shards {
		addresses[shard.Name] = shard.Address
		client := redis.NewClient(&redis.Options{
			DialTimeout: dialTimeout,
			DB:          conf.DbNum,
			Addr:        shard.Address,
		})
		c.clients = append(c.clients, client)
		pools = append(pools, goredis.NewPool(client))
	}
	c.ring = redis.NewRing(&redis.RingOptions{
		Addrs:       addresses,
		DialTimeout: dialTimeout,
		DB:          conf.DbNum,
	})
	c.rs = redsync.New(pools...)
	logrus.Infof("Connected to %d redis shards", len(conf.Shards))
	return c
}

func (c *connection) close() {
	// Forwarders must exit before their output channels can be reused or closed
	c.subsMutex.Lock()
	for _, sub := range c.subs {
		_ = sub.Close()
	}
	c.subs = nil
	c.subsMutex.Unlock()
	c.forwards.Wait()

	if err := c.ring.Close(); err != nil {
		logrus.Warn("Error closing redis ring: ", err)
	}
	for _, client := range c.clients {
		_ = client.Close()
	}
}

// current returns the active connection, connecting on first use. Nil means redis is not in use.
func current() *connection {
	connMutex.RLock()
	c, attempted := conn, connAttempted
	connMutex.RUnlock()
	if attempted {
		return c
	}

	connMutex.Lock()
	defer connMutex.Unlock()
	if !connAttempted {
		conn = connect(config.Get().Redis)
		connAttempted = true
	}
	return conn
}

// Enabled reports whether a redis ring is configured and connected.
func Enabled() bool {
	return current() != nil
}

// Reconnect applies changed redis configuration and moves existing subscriptions over.
func Reconnect() {
	Stop()
	resubscribeAll(current())
}

func Stop() {
	connMutex.Lock()
	defer connMutex.Unlock()
	if conn != nil {
		conn.close()
	}
	conn = nil
	connAttempted = false
}
