package pipeline_ingest

import (
	"github.com/t2bot/sample-repo/archives"
	"github.com/t2bot/sample-repo/common"
	"github.com/t2bot/sample-repo/common/rcontext"
	"github.com/t2bot/sample-repo/database"
	"github.com/t2bot/sample-repo/pipelines/steps/ingest"
	"github.com/t2bot/sample-repo/pool"
	"github.com/t2bot/sample-repo/types"
)

// Index finds every record stored for a digest. An empty result is a miss.
type Index interface {
	GetByHash(ctx rcontext.RequestContext, sha256hash string) ([]*database.DbSample, error)
}

// Committer durably stores a payload and its record. It must return common.ErrAlreadyExists when a
// record for the same digest and file type already exists.
type Committer interface {
	Commit(ctx rcontext.RequestContext, sha256hash string, fpath string, fileType common.FileType, meta *types.Metadata) (*database.DbSample, error)
}

type LockFn func(ctx rcontext.RequestContext, sha256hash string) (func() error, error)

type ExtractFn func(ctx rcontext.RequestContext, archivePath string, password string) (string, func(), error)

type Scheduler interface {
	Schedule(task func()) error
}

type Ingestor struct {
	Index     Index
	Committer Committer
	Lock      LockFn
	Extract   ExtractFn

	// Queue runs batch items. Items run one after another when nil.
	Queue Scheduler
}

func NewIngestor(index Index, committer Committer) *Ingestor {
	i := &Ingestor{
		Index:     index,
		Committer: committer,
		Lock:      ingest.LockForIngest,
		Extract:   archives.Extract,
	}
	if pool.BatchQueue != nil {
		i.Queue = pool.BatchQueue
	}
	return i
}

func noopUnlock() error {
	return nil
}

func (i *Ingestor) lock(ctx rcontext.RequestContext, sha256hash string) (func() error, error) {
	if i.Lock == nil {
		return noopUnlock, nil
	}
	return i.Lock(ctx, sha256hash)
}
