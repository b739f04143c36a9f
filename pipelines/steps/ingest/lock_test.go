package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t2bot/sample-repo/common/config"
	"github.com/t2bot/sample-repo/common/rcontext"
)

func lockContext(t *testing.T, parent context.Context) rcontext.RequestContext {
	cfg := config.NewDefaultMainConfig()
	cfg.Redis.Enabled = false
	config.Set(&cfg)
	return rcontext.New(parent, logrus.WithField("test", t.Name()), cfg)
}

func TestLockForIngestWithoutRedis(t *testing.T) {
	ctx := lockContext(t, context.Background())

	unlock, err := LockForIngest(ctx, "deadbeef")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		unlock2, err := LockForIngest(ctx, "deadbeef")
		if assert.NoError(t, err) {
			close(acquired)
			_ = unlock2()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("lock acquired twice")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, unlock())
	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func TestLockForIngestCancelled(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx := lockContext(t, parent)

	unlock, err := LockForIngest(ctx, "cafebabe")
	require.NoError(t, err)
	defer func() {
		_ = unlock()
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err = LockForIngest(ctx, "cafebabe")
	assert.ErrorIs(t, err, context.Canceled)
}
