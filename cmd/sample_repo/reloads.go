package main

import (
	"github.com/t2bot/sample-repo/common/globals"
	"github.com/t2bot/sample-repo/common/runtime"
	"github.com/t2bot/sample-repo/datastores"
	"github.com/t2bot/sample-repo/metrics"
	"github.com/t2bot/sample-repo/notifier"
	"github.com/t2bot/sample-repo/pool"
	"github.com/t2bot/sample-repo/redislib"
)

func setupReloads() {
	reloadOnChan(globals.MetricsReloadChan, metrics.Reload)
	reloadOnChan(globals.PoolReloadChan, pool.AdjustSize)
	reloadOnChan(globals.RedisReloadChan, func() {
		redislib.Reconnect()
		notifier.EnsureSubscribed()
	})
	reloadOnChan(globals.DatastoresReloadChan, func() {
		datastores.ResetS3Clients()
		runtime.LoadDatastores()
	})
}

func stopReloads() {
	// send stop signal to reload fns
	globals.MetricsReloadChan <- false
	globals.PoolReloadChan <- false
	globals.RedisReloadChan <- false
	globals.DatastoresReloadChan <- false
}

func reloadOnChan(reloadChan chan bool, fn func()) {
	go func() {
		for {
			shouldReload := <-reloadChan
			if shouldReload {
				fn()
			} else {
				return // received stop
			}
		}
	}()
}
