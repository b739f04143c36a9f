// Package archives unpacks uploaded containers so the artifact inside can be fingerprinted
// instead of the container itself.
package archives

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/sample-repo/common/config"
	"github.com/t2bot/sample-repo/common/rcontext"
	"github.com/t2bot/sample-repo/metrics"
)

type Limits struct {
	MaxEntries      int
	MaxSizeBytes    int64
	MultipleMembers string
}

func LimitsFromConfig(c config.ExtractionConfig) Limits {
	return Limits{
		MaxEntries:      c.MaxEntries,
		MaxSizeBytes:    c.MaxSizeBytes,
		MultipleMembers: c.MultipleMembers,
	}
}

// Extractor is a single container format. ExtractOne writes exactly one artifact below destDir
// and returns its path.
type Extractor interface {
	Name() string
	Supports(mtype *mimetype.MIME) bool
	ExtractOne(ctx rcontext.RequestContext, archivePath string, password string, destDir string, limits Limits) (string, error)
}

var extractorsLock = &sync.RWMutex{}
var extractors = []Extractor{&zipExtractor{}}

func Register(e Extractor) {
	extractorsLock.Lock()
	defer extractorsLock.Unlock()
	extractors = append(extractors, e)
}

func find(mtype *mimetype.MIME) Extractor {
	extractorsLock.RLock()
	defer extractorsLock.RUnlock()
	for _, e := range extractors {
		if e.Supports(mtype) {
			return e
		}
	}
	return nil
}

func noop() {}

// Extract unpacks archivePath into a fresh temporary directory and returns the path of the
// extracted artifact along with a function which removes that directory. The archive itself is
// left untouched. Errors caused by the archive's contents are always *ExtractionError.
func Extract(ctx rcontext.RequestContext, archivePath string, password string) (string, func(), error) {
	archiveName := filepath.Base(archivePath)

	mtype, err := mimetype.DetectFile(archivePath)
	if err != nil {
		return "", noop, err
	}
	extractor := find(mtype)
	if extractor == nil {
		metrics.SampleExtractions.With(prometheus.Labels{"outcome": "not_archive"}).Inc()
		return "", noop, newError(archiveName, "", ErrNotAnArchive)
	}

	ctx = ctx.LogWithFields(logrus.Fields{
		"archiveFormat": extractor.Name(),
		"hasPassword":   password != "",
	})

	destDir, err := os.MkdirTemp(ctx.Config.General.TempPath, "sr-extract-")
	if err != nil {
		return "", noop, err
	}
	cleanup := func() {
		if err := os.RemoveAll(destDir); err != nil {
			ctx.Log.Warn("Error removing extraction directory: ", err)
			sentry.CaptureException(err)
		}
	}

	ctx.Log.Debug("Extracting archive")
	extracted, err := extractor.ExtractOne(ctx, archivePath, password, destDir, LimitsFromConfig(ctx.Config.Extraction))
	if err != nil {
		cleanup()
		var extErr *ExtractionError
		if errors.As(err, &extErr) {
			metrics.SampleExtractions.With(prometheus.Labels{"outcome": extErr.Reason()}).Inc()
		}
		return "", noop, err
	}

	metrics.SampleExtractions.With(prometheus.Labels{"outcome": "success"}).Inc()
	return extracted, cleanup, nil
}
