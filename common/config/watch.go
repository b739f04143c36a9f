package config

import (
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/sample-repo/common/globals"
)

func Watch() *fsnotify.Watcher {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logrus.Fatal(err)
	}
	if err = watcher.Add(Path); err != nil {
		logrus.Fatal(err)
	}

	go func() {
		debounced := debounce.New(1 * time.Second)
		for {
			select {
			case _, ok := <-watcher.Events:
				if !ok {
					return
				}
				debounced(onFileChanged)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logrus.Error("error in config watcher:", err)
			}
		}
	}()

	return watcher
}

func onFileChanged() {
	logrus.Info("Config file change detected - reloading")
	configNew, err := Load(Path)
	if err != nil {
		logrus.Error("Error reloading configuration - ignoring: ", err)
		return
	}

	configNow := Get()
	logrus.Info("Applying reloaded config live")
	instance = configNew

	for _, ch := range reloadsFor(configNow, configNew) {
		ch <- true
	}
}

// reloadsFor returns the reload channels to notify when moving from old to next. Settings which
// need a restart are only logged.
func reloadsFor(prev *MainRepoConfig, next *MainRepoConfig) []chan bool {
	reloads := make([]chan bool, 0)

	if prev.General.BindAddress != next.General.BindAddress || prev.General.Port != next.General.Port {
		logrus.Warn("Webserver bind address changed - restart the sample repo to apply changes")
	}
	if prev.Database.Postgres != next.Database.Postgres {
		logrus.Warn("Database configuration changed - restart the sample repo to apply changes")
	}
	if prev.General.LogDirectory != next.General.LogDirectory {
		logrus.Warn("Log configuration changed - restart the sample repo to apply changes")
	}

	if prev.Metrics != next.Metrics {
		logrus.Warn("Metrics configuration changed - remounting")
		reloads = append(reloads, globals.MetricsReloadChan)
	}
	if prev.Batch.NumWorkers != next.Batch.NumWorkers {
		logrus.Warn("Batch worker count changed - resizing pool")
		reloads = append(reloads, globals.PoolReloadChan)
	}
	if redisChanged(prev.Redis, next.Redis) {
		logrus.Warn("Redis configuration changed - reconnecting")
		reloads = append(reloads, globals.RedisReloadChan)
	}

	// Always update the datastores
	reloads = append(reloads, globals.DatastoresReloadChan)
	return reloads
}

func redisChanged(prev RedisConfig, next RedisConfig) bool {
	if prev.Enabled != next.Enabled || prev.DbNum != next.DbNum || len(prev.Shards) != len(next.Shards) {
		return true
	}
	for i := range next.Shards {
		if next.Shards[i] != prev.Shards[i] {
			return true
		}
	}
	return false
}
