package notifier

import (
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/t2bot/sample-repo/common/rcontext"
	"github.com/t2bot/sample-repo/database"
	"github.com/t2bot/sample-repo/fingerprint"
	"github.com/t2bot/sample-repo/redislib"
)

const ingestsNotifyRedisChannel = "sr:ingested"

var listeners = make([]func(sha256hash string), 0)
var ingestMutex = new(sync.Mutex)
var ingestsRedisChan <-chan string

// OnIngested registers a function to be called whenever a record is committed for a digest, on
// this process or (when redis is configured) any other.
func OnIngested(fn func(sha256hash string)) {
	ingestMutex.Lock()
	listeners = append(listeners, fn)
	ingestMutex.Unlock()
	EnsureSubscribed()
}

func IngestDone(ctx rcontext.RequestContext, record *database.DbSample) error {
	notifyLocal(record.Sha256Digest)
	return redislib.Publish(ctx, ingestsNotifyRedisChannel, record.Sha256Digest)
}

func notifyLocal(sha256hash string) {
	ingestMutex.Lock()
	fns := make([]func(string), len(listeners))
	copy(fns, listeners)
	ingestMutex.Unlock()

	for _, fn := range fns {
		fn(sha256hash)
	}
}

// EnsureSubscribed subscribes to the redis channel if redis is available and no subscription is
// active. Safe to call after every redis reconnect.
func EnsureSubscribed() {
	ingestMutex.Lock()
	defer ingestMutex.Unlock()

	if ingestsRedisChan != nil {
		return
	}
	ch := redislib.Subscribe(ingestsNotifyRedisChannel)
	if ch == nil {
		return // no redis to subscribe with
	}
	ingestsRedisChan = ch
	go func() {
		for val := range ch {
			if !fingerprint.IsDigest(val) {
				logrus.Warn("Ignoring malformed value from ingests notify channel: ", val)
				continue
			}
			logrus.Debug("Received value from ingests notify channel: ", val)
			notifyLocal(val)
		}

		ingestMutex.Lock()
		if ingestsRedisChan == ch {
			ingestsRedisChan = nil
		}
		ingestMutex.Unlock()
	}()
}
