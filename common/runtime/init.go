package runtime

import (
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/sample-repo/common"
	"github.com/t2bot/sample-repo/common/config"
	"github.com/t2bot/sample-repo/common/version"
	"github.com/t2bot/sample-repo/database"
	"github.com/t2bot/sample-repo/datastores"
)

func RunStartupSequence() {
	version.Print(true)
	CheckTempPath()
	LoadDatabase()
	LoadDatastores()
}

func CheckTempPath() {
	if config.Get().General.TempPath == "" {
		logrus.Warn("No tempPath configured: uploads are staged in the system temporary directory")
	}
}

func LoadDatabase() {
	logrus.Info("Preparing database...")
	database.GetInstance()
}

// LoadDatastores prints the configured datastores, failing when a file type has nowhere to go.
func LoadDatastores() {
	logrus.Info("Datastores:")
	for _, ds := range config.UniqueDatastores() {
		uri, err := datastores.GetUri(ds)
		if err != nil {
			sentry.CaptureException(err)
			logrus.Fatal(err)
		}
		state := "enabled"
		if !ds.Enabled {
			state = "disabled"
		}
		logrus.Infof("\t%s (%s, %s): %s %v", ds.Type, ds.Id, state, uri, ds.FileTypes)
	}

	for _, fileType := range common.AllFileTypes {
		found := false
		for _, ds := range config.UniqueDatastores() {
			if ds.Enabled && datastores.HasListedFileType(ds.FileTypes, fileType) {
				found = true
				break
			}
		}
		if !found {
			logrus.Warnf("No enabled datastore accepts %s samples: those uploads will fail", fileType)
		}
	}
}
