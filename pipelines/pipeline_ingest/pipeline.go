package pipeline_ingest

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/sample-repo/common"
	"github.com/t2bot/sample-repo/common/rcontext"
	"github.com/t2bot/sample-repo/database"
	"github.com/t2bot/sample-repo/fingerprint"
	"github.com/t2bot/sample-repo/metrics"
	"github.com/t2bot/sample-repo/types"
)

// Execute ingests a single staged payload. The staged file is never modified or removed.
func (i *Ingestor) Execute(ctx rcontext.RequestContext, stagedPath string, uploadName string, fileType common.FileType, meta *types.Metadata) (*database.DbSample, error) {
	defer observeTime("single", time.Now())

	// Step 1: Validate the request
	if meta == nil {
		return nil, ValidationError(map[string][]string{"data": {common.ErrMissingMetadata.Error()}}, common.ErrMissingMetadata)
	}
	if err := checkPayload(stagedPath); err != nil {
		return nil, ValidationError(map[string][]string{"file": {err.Error()}}, err)
	}
	meta = meta.Clone()
	if meta.Name == "" {
		meta.Name = uploadName
	}
	ctx = ctx.LogWithFields(meta.LogFields()).LogWithFields(logrus.Fields{"fileType": fileType})

	// Step 2: Unpack the archive, if asked to
	fpath := stagedPath
	if meta.Extract {
		extracted, cleanup, err := i.Extract(ctx, stagedPath, meta.Password)
		if err != nil {
			ctx.Log.Info("Extraction failed: ", err)
			return nil, ExtractionFailed(err)
		}
		defer cleanup()
		fpath = extracted
		if meta.Name == uploadName {
			meta.Name = filepath.Base(extracted)
		}
	}
	meta.SubmissionType = common.SubmissionTypeFor(fileType)
	ctx = ctx.LogWithFields(logrus.Fields{"name": meta.Name, "submissionType": meta.SubmissionType})

	// Step 3: Fingerprint
	sha256hash, err := fingerprint.Sha256File(fpath)
	if err != nil {
		return nil, StorageError(err)
	}
	ctx = ctx.LogWithFields(logrus.Fields{"sha256": sha256hash})

	// Step 4: Hold the digest until the record exists (or we know it already did)
	unlockFn, err := i.lock(ctx, sha256hash)
	if err != nil {
		return nil, StorageError(err)
	}
	defer unlock(ctx, unlockFn)

	// Step 5: Deduplicate
	existing, err := i.Index.GetByHash(ctx, sha256hash)
	if err != nil {
		return nil, StorageError(err)
	}
	if len(existing) > 0 {
		ctx.Log.Debug("Sample already exists")
		metrics.SampleDuplicates.With(prometheus.Labels{"route": "single"}).Inc()
		return nil, DuplicateExists(existing[0])
	}

	// Step 6: Commit
	record, err := i.Committer.Commit(ctx, sha256hash, fpath, fileType, meta)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			ctx.Log.Debug("Lost the race to insert the sample")
			metrics.SampleDuplicates.With(prometheus.Labels{"route": "single"}).Inc()
			return nil, DuplicateExists(i.firstExisting(ctx, sha256hash))
		}
		ctx.Log.Error("Error committing sample: ", err)
		sentry.CaptureException(err)
		return nil, StorageError(err)
	}

	ctx.Log.Info("Sample ingested")
	return record, nil
}

func (i *Ingestor) firstExisting(ctx rcontext.RequestContext, sha256hash string) *database.DbSample {
	existing, err := i.Index.GetByHash(ctx, sha256hash)
	if err != nil {
		ctx.Log.Warn("Unable to look up the existing sample: ", err)
		return nil
	}
	if len(existing) == 0 {
		return nil
	}
	return existing[0]
}

func checkPayload(fpath string) error {
	if fpath == "" {
		return common.ErrMissingPayload
	}
	stat, err := os.Stat(fpath)
	if err != nil {
		if os.IsNotExist(err) {
			return common.ErrMissingPayload
		}
		return err
	}
	if !stat.Mode().IsRegular() {
		return common.ErrMissingPayload
	}
	if stat.Size() == 0 {
		return common.ErrEmptyPayload
	}
	return nil
}

func unlock(ctx rcontext.RequestContext, unlockFn func() error) {
	if err := unlockFn(); err != nil {
		ctx.Log.Warn("Error releasing ingest lock: ", err)
		sentry.CaptureException(err)
	}
}

func observeTime(route string, start time.Time) {
	metrics.IngestTime.With(prometheus.Labels{"route": route}).Observe(time.Since(start).Seconds())
}
