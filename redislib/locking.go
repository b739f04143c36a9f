package redislib

import (
	"time"

	"github.com/go-redsync/redsync/v4"
)

// GetMutex returns a distributed mutex for the key, or nil when redis is not in use.
func GetMutex(key string, expiration time.Duration) *redsync.Mutex {
	c := current()
	if c == nil {
		return nil
	}
	return c.rs.NewMutex("mutex-"+key, redsync.WithExpiry(expiration))
}
