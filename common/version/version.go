package version

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

// Set at build time with -ldflags "-X github.com/t2bot/sample-repo/common/version.Version=..."
var GitCommit string
var Version string

var defaultsOnce = &sync.Once{}

func SetDefaults() {
	defaultsOnce.Do(func() {
		build, infoOk := debug.ReadBuildInfo()

		if GitCommit == "" {
			GitCommit = ".dev"
			if infoOk {
				modified := false
				for _, setting := range build.Settings {
					switch setting.Key {
					case "vcs.revision":
						GitCommit = setting.Value
					case "vcs.modified":
						modified = setting.Value == "true"
					}
				}
				if modified {
					GitCommit += "-dirty"
				}
			}
		}

		if Version == "" {
			Version = "unknown"
			if infoOk && build.Main.Version != "" && build.Main.Version != "(devel)" {
				Version = build.Main.Version
			}
		}
	})
}

// Release identifies the build for error reports.
func Release() string {
	SetDefaults()
	return fmt.Sprintf("%s-%s", Version, GitCommit)
}

func Print(usingLogger bool) {
	SetDefaults()

	if usingLogger {
		logrus.WithFields(logrus.Fields{
			"version": Version,
			"commit":  GitCommit,
		}).Info("Sample repository build")
	} else {
		fmt.Println("Version: " + Version)
		fmt.Println("Commit: " + GitCommit)
	}
}
