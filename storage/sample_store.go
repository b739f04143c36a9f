// Package storage joins the index database and the datastores into the record store used by
// the ingest pipeline.
package storage

import (
	"errors"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/getsentry/sentry-go"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/sample-repo/common"
	"github.com/t2bot/sample-repo/common/rcontext"
	"github.com/t2bot/sample-repo/database"
	"github.com/t2bot/sample-repo/datastores"
	"github.com/t2bot/sample-repo/metrics"
	"github.com/t2bot/sample-repo/notifier"
	"github.com/t2bot/sample-repo/types"
	"github.com/t2bot/sample-repo/util"
	"golang.org/x/sync/singleflight"
)

type SampleStore struct {
	db     *database.Database
	cache  *cache.Cache
	lookup *singleflight.Group
}

// NewSampleStore creates a store over the given database. Lookups which find records are cached
// for cacheTtl; a zero ttl disables the cache. Misses are never cached.
func NewSampleStore(db *database.Database, cacheTtl time.Duration) *SampleStore {
	s := &SampleStore{db: db, lookup: new(singleflight.Group)}
	if cacheTtl > 0 {
		s.cache = cache.New(cacheTtl, cacheTtl*2)
	}
	return s
}

func (s *SampleStore) GetByHash(ctx rcontext.RequestContext, sha256hash string) ([]*database.DbSample, error) {
	if s.cache != nil {
		if val, ok := s.cache.Get(sha256hash); ok {
			metrics.IndexCacheLookups.With(prometheus.Labels{"result": "hit"}).Inc()
			return val.([]*database.DbSample), nil
		}
		metrics.IndexCacheLookups.With(prometheus.Labels{"result": "miss"}).Inc()
	}

	// Concurrent lookups for one digest share a query
	r, err, shared := s.lookup.Do(sha256hash, func() (interface{}, error) {
		return s.db.Samples.Prepare(ctx).GetByHash(sha256hash)
	})
	if err != nil {
		return nil, err
	}
	records := r.([]*database.DbSample)
	if shared {
		records = append([]*database.DbSample{}, records...)
	}
	if s.cache != nil && len(records) > 0 {
		s.cache.Set(sha256hash, records, cache.DefaultExpiration)
	}
	return records, nil
}

// Invalidate drops any cached lookup for the digest.
func (s *SampleStore) Invalidate(sha256hash string) {
	s.lookup.Forget(sha256hash)
	if s.cache != nil {
		s.cache.Delete(sha256hash)
	}
}

// Commit stores the file at fpath in a datastore and inserts its record. If a record for the same
// digest and file type already exists, common.ErrAlreadyExists is returned and nothing is kept.
func (s *SampleStore) Commit(ctx rcontext.RequestContext, sha256hash string, fpath string, fileType common.FileType, meta *types.Metadata) (*database.DbSample, error) {
	ctx = ctx.LogWithFields(logrus.Fields{"sha256": sha256hash, "fileType": fileType})

	stat, err := os.Stat(fpath)
	if err != nil {
		return nil, err
	}

	contentType := "application/octet-stream"
	if mtype, err := mimetype.DetectFile(fpath); err != nil {
		ctx.Log.Warn("Unable to detect content type, using default: ", err)
	} else {
		contentType = mtype.String()
	}

	dsConf, err := datastores.Pick(ctx, fileType)
	if err != nil {
		return nil, err
	}

	location, created, err := datastores.Upload(ctx, dsConf, fpath, sha256hash, contentType)
	if err != nil {
		return nil, err
	}

	record := &database.DbSample{
		Sha256Digest:   sha256hash,
		FileType:       fileType,
		SubmissionType: string(meta.SubmissionType),
		Name:           meta.Name,
		Description:    meta.Description,
		Tags:           meta.Tags,
		MimeType:       contentType,
		SizeBytes:      stat.Size(),
		Extra:          database.AnonymousJson(meta.Extra),
		CreationTs:     util.NowMillis(),
		DatastoreId:    dsConf.Id,
		Location:       location,
	}
	samplesDb := s.db.Samples.Prepare(ctx)
	if err = samplesDb.Insert(record); err != nil {
		if created {
			s.removeOrphan(ctx, samplesDb, dsConf.Id, location)
		}
		if errors.Is(err, common.ErrAlreadyExists) {
			s.Invalidate(sha256hash)
		}
		return nil, err
	}

	s.Invalidate(sha256hash)
	metrics.SamplesIngested.With(prometheus.Labels{
		"file_type":       string(fileType),
		"submission_type": record.SubmissionType,
	}).Inc()
	if err = notifier.IngestDone(ctx, record); err != nil {
		ctx.Log.Warn("Non-fatal error notifying about completed ingest: ", err)
		sentry.CaptureException(err)
	}
	return record, nil
}

type locationCounter interface {
	CountByLocation(datastoreId string, location string) (int64, error)
}

func (s *SampleStore) removeOrphan(ctx rcontext.RequestContext, db locationCounter, dsId string, location string) {
	refs, err := db.CountByLocation(dsId, location)
	if err != nil {
		ctx.Log.Warn("Unable to count references to upload, leaving it in place: ", err)
		sentry.CaptureException(err)
		return
	}
	if refs > 0 {
		return
	}
	if err = datastores.RemoveWithDsId(ctx, dsId, location); err != nil {
		ctx.Log.Warn("Error deleting upload (delete attempted due to persistence error): ", err)
		sentry.CaptureException(err)
	}
}
