package pool

import (
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/sample-repo/common/config"
)

var BatchQueue *Queue

func Init() {
	var err error
	if BatchQueue, err = NewQueue(config.Get().Batch.NumWorkers, "batch"); err != nil {
		sentry.CaptureException(err)
		logrus.Error("Error setting up batch queue")
		logrus.Fatal(err)
	}
}

func AdjustSize() {
	if BatchQueue != nil {
		BatchQueue.Tune(config.Get().Batch.NumWorkers)
	}
}

func Drain() {
	if BatchQueue != nil {
		BatchQueue.Release()
	}
}
