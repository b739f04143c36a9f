package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/t2bot/sample-repo/common/rcontext"
	"github.com/t2bot/sample-repo/redislib"
)

const maxLockAttemptTime = 30 * time.Second
const lockExpiration = 5 * time.Minute

var localLocks = newKeyedMutex()

// LockForIngest holds the digest across lookup and commit. With redis configured the lock is
// shared by every process using the same redis; otherwise it only covers this process.
func LockForIngest(ctx rcontext.RequestContext, hash string) (func() error, error) {
	mutex := redislib.GetMutex(hash, lockExpiration)
	if mutex != nil {
		attemptDoneAt := time.Now().Add(maxLockAttemptTime)
		for {
			if chErr := ctx.Context.Err(); chErr != nil {
				return nil, chErr
			}
			if err := mutex.LockContext(ctx.Context); err != nil {
				if time.Now().After(attemptDoneAt) {
					return nil, errors.New("failed to acquire ingest lock: " + err.Error())
				}
				ctx.Log.Warn("failed to acquire ingest lock: ", err)
			} else {
				break
			}
		}
		ctx.Log.Debugf("Lock acquired until %s", mutex.Until().UTC())
		return func() error {
			ctx.Log.Debug("Unlocking ingest lock")
			// A background context keeps a cancelled request from leaving the lock held
			if ok, err := mutex.UnlockContext(context.Background()); !ok || err != nil {
				ctx.Log.Warn("Did not get quorum on unlock: ", err)
				return err
			}
			return nil
		}, nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx.Context, maxLockAttemptTime)
	defer cancel()
	unlock, err := localLocks.Lock(timeoutCtx, hash)
	if err != nil {
		if ctx.Context.Err() != nil {
			return nil, ctx.Context.Err()
		}
		return nil, errors.New("failed to acquire ingest lock: timeout")
	}
	return func() error {
		unlock()
		return nil
	}, nil
}
