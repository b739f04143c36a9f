package pipeline_ingest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/sample-repo/common"
	"github.com/t2bot/sample-repo/common/rcontext"
	"github.com/t2bot/sample-repo/database"
	"github.com/t2bot/sample-repo/fingerprint"
	"github.com/t2bot/sample-repo/metrics"
	"github.com/t2bot/sample-repo/types"
)

type StagedFile struct {
	Path       string
	UploadName string
}

// ExecuteBatch ingests files[i] with metas[i] as FILE samples. Items whose digest is already known
// as a FILE sample are skipped and left out of the result, which otherwise keeps the input order.
// The first failing item fails the batch; items committed before it remain.
func (i *Ingestor) ExecuteBatch(ctx rcontext.RequestContext, files []StagedFile, metas []*types.Metadata) ([]*database.DbSample, error) {
	defer observeTime("batch", time.Now())

	prepared, err := prepareBatch(ctx, files, metas)
	if err != nil {
		return nil, err
	}

	results := make([]*database.DbSample, len(files))
	errs := make([]error, len(files))
	if i.Queue == nil {
		for idx := range files {
			results[idx], errs[idx] = i.ingestBatchItem(ctx, idx, files[idx], prepared[idx])
			if errs[idx] != nil {
				break
			}
		}
	} else {
		wg := &sync.WaitGroup{}
		for idx := range files {
			idx := idx
			wg.Add(1)
			if err = i.Queue.Schedule(func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						errs[idx] = fmt.Errorf("panic ingesting batch item: %v", r)
						sentry.CaptureException(errs[idx])
					}
				}()
				results[idx], errs[idx] = i.ingestBatchItem(ctx, idx, files[idx], prepared[idx])
			}); err != nil {
				wg.Done()
				errs[idx] = err
			}
		}
		wg.Wait()
	}

	committed := make([]*database.DbSample, 0, len(results))
	for idx, record := range results {
		if errs[idx] != nil {
			ctx.Log.Error("Batch item failed: ", errs[idx])
			return nil, &ItemError{Index: idx, Err: errs[idx]}
		}
		if record != nil {
			committed = append(committed, record)
		}
	}
	return committed, nil
}

func prepareBatch(ctx rcontext.RequestContext, files []StagedFile, metas []*types.Metadata) ([]*types.Metadata, error) {
	fields := make(map[string][]string)
	if len(metas) == 0 {
		fields["data"] = []string{common.ErrMissingMetadata.Error()}
	}
	if len(files) == 0 {
		fields["files[]"] = []string{common.ErrMissingPayload.Error()}
	}
	if len(fields) > 0 {
		cause := common.ErrMissingMetadata
		if len(metas) > 0 {
			cause = common.ErrMissingPayload
		}
		return nil, ValidationError(fields, cause)
	}
	for idx, m := range metas {
		if m == nil {
			return nil, ValidationError(map[string][]string{"data": {fmt.Sprintf("item %d: %s", idx, common.ErrMissingMetadata.Error())}}, common.ErrMissingMetadata)
		}
	}
	if len(metas) != len(files) {
		return nil, CountMismatch(len(files), len(metas))
	}

	prepared := make([]*types.Metadata, len(metas))
	for idx, m := range metas {
		m = m.Clone()
		if m.Name == "" {
			m.Name = files[idx].UploadName
		}
		if m.Extract {
			ctx.Log.Infof("Ignoring extraction request for batch item %d", idx)
			m.Extract = false
		}
		m.Password = ""
		m.SubmissionType = common.SubmissionUploadFile
		prepared[idx] = m
	}
	return prepared, nil
}

// ingestBatchItem returns a nil record without error when the item was skipped.
func (i *Ingestor) ingestBatchItem(ctx rcontext.RequestContext, idx int, file StagedFile, meta *types.Metadata) (*database.DbSample, error) {
	ctx = ctx.LogWithFields(meta.LogFields()).LogWithFields(logrus.Fields{"batchItem": idx})

	if err := checkPayload(file.Path); err != nil {
		return nil, ValidationError(map[string][]string{"files[]": {fmt.Sprintf("item %d: %s", idx, err.Error())}}, err)
	}

	sha256hash, err := fingerprint.Sha256File(file.Path)
	if err != nil {
		return nil, StorageError(err)
	}
	ctx = ctx.LogWithFields(logrus.Fields{"sha256": sha256hash})

	unlockFn, err := i.lock(ctx, sha256hash)
	if err != nil {
		return nil, StorageError(err)
	}
	defer unlock(ctx, unlockFn)

	existing, err := i.Index.GetByHash(ctx, sha256hash)
	if err != nil {
		return nil, StorageError(err)
	}
	for _, r := range existing {
		if r.FileType == common.FileTypeFile {
			ctx.Log.Debug("Skipping known file sample")
			metrics.BatchSkipped.Inc()
			return nil, nil
		}
	}

	record, err := i.Committer.Commit(ctx, sha256hash, file.Path, common.FileTypeFile, meta)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			ctx.Log.Debug("Lost the race to insert the sample - skipping")
			metrics.BatchSkipped.Inc()
			return nil, nil
		}
		ctx.Log.Error("Error committing sample: ", err)
		sentry.CaptureException(err)
		return nil, StorageError(err)
	}
	return record, nil
}
