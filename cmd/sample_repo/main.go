package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/sample-repo/api/webserver"
	"github.com/t2bot/sample-repo/common/config"
	"github.com/t2bot/sample-repo/common/logging"
	"github.com/t2bot/sample-repo/common/runtime"
	"github.com/t2bot/sample-repo/common/version"
	"github.com/t2bot/sample-repo/database"
	"github.com/t2bot/sample-repo/metrics"
	"github.com/t2bot/sample-repo/notifier"
	"github.com/t2bot/sample-repo/pipelines/pipeline_ingest"
	"github.com/t2bot/sample-repo/pool"
	"github.com/t2bot/sample-repo/redislib"
	"github.com/t2bot/sample-repo/storage"
	"github.com/t2bot/sample-repo/util"
)

func main() {
	configPath := flag.String("config", "sample-repo.yaml", "The path to the configuration")
	migrationsPath := flag.String("migrations", config.DefaultMigrationsPath, "The absolute path for the migrations folder")
	versionFlag := flag.Bool("version", false, "Prints the version and exits")
	flag.Parse()

	if *versionFlag {
		version.Print(false)
		return // exit 0
	}

	// Override config path with config for Docker users
	configEnv := os.Getenv("REPO_CONFIG")
	if configEnv != "" {
		configPath = &configEnv
	}

	config.Path = *configPath
	config.Runtime.MigrationsPath = *migrationsPath
	if config.Get().Sentry.Enabled {
		logrus.Info("Setting up Sentry for debugging...")
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.Get().Sentry.Dsn,
			Environment: config.Get().Sentry.Environment,
			Debug:       config.Get().Sentry.Debug,
			Release:     version.Release(),
		})
		if err != nil {
			panic(err)
		}
	}
	defer sentry.Flush(2 * time.Second)
	defer sentry.Recover()

	err := logging.Setup(
		config.Get().General.LogDirectory,
		config.Get().General.LogColors,
		config.Get().General.JsonLogs,
		config.Get().General.LogLevel,
	)
	if err != nil {
		panic(err)
	}

	logrus.Info("Starting up...")
	runtime.RunStartupSequence()
	pool.Init()

	store := storage.NewSampleStore(database.GetInstance(), util.MinutesToDuration(config.Get().Index.CacheMinutes))
	notifier.OnIngested(store.Invalidate)
	ingestor := pipeline_ingest.NewIngestor(store, store)

	logrus.Info("Starting config watcher...")
	watcher := config.Watch()
	defer func(watcher *fsnotify.Watcher) {
		_ = watcher.Close()
	}(watcher)
	setupReloads()

	logrus.Info("Starting sample repository...")
	metrics.Init()
	web := webserver.Init(ingestor)

	// Set up a function to stop everything
	stopAllButWeb := func() {
		logrus.Info("Stopping reload watchers...")
		stopReloads()

		logrus.Info("Stopping metrics...")
		metrics.Stop()

		logrus.Info("Draining batch workers...")
		pool.Drain()

		logrus.Info("Disconnecting from redis...")
		redislib.Stop()
	}

	// Set up a listener for SIGINT
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	selfStop := false
	go func() {
		defer close(stop)
		<-stop
		selfStop = true

		logrus.Warn("Stop signal received")
		stopAllButWeb()

		logrus.Info("Stopping web server...")
		webserver.Stop()
	}()

	// Wait for the web server to exit nicely
	web.Wait()

	// Stop everything else if we have to
	if !selfStop {
		stopAllButWeb()
	}

	// For debugging
	logrus.Info("Goodbye!")
}
