package pipeline_ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/t2bot/sample-repo/archives"
	"github.com/t2bot/sample-repo/common"
	"github.com/t2bot/sample-repo/common/config"
	"github.com/t2bot/sample-repo/common/rcontext"
	"github.com/t2bot/sample-repo/database"
	"github.com/t2bot/sample-repo/pipelines/steps/ingest"
	"github.com/t2bot/sample-repo/types"
	"github.com/yeka/zip"
)

// memoryStore is an Index and Committer which enforces one record per digest and file type.
type memoryStore struct {
	mu      sync.Mutex
	records map[string][]*database.DbSample

	lookups int32
	inserts int32
	commits int32

	commitDelay time.Duration
	failNames   map[string]error
	barrier     *lookupBarrier
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		records:   make(map[string][]*database.DbSample),
		failNames: make(map[string]error),
	}
}

func (s *memoryStore) GetByHash(ctx rcontext.RequestContext, sha256hash string) ([]*database.DbSample, error) {
	atomic.AddInt32(&s.lookups, 1)
	s.mu.Lock()
	found := make([]*database.DbSample, len(s.records[sha256hash]))
	copy(found, s.records[sha256hash])
	s.mu.Unlock()

	// read first: held callers must not see each other's commits
	if s.barrier != nil {
		s.barrier.wait()
	}
	return found, nil
}

func (s *memoryStore) Commit(ctx rcontext.RequestContext, sha256hash string, fpath string, fileType common.FileType, meta *types.Metadata) (*database.DbSample, error) {
	if s.commitDelay > 0 {
		time.Sleep(s.commitDelay)
	}
	if err, ok := s.failNames[meta.Name]; ok {
		return nil, err
	}
	stat, err := os.Stat(fpath)
	if err != nil {
		return nil, err
	}

	atomic.AddInt32(&s.inserts, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records[sha256hash] {
		if r.FileType == fileType {
			return nil, common.ErrAlreadyExists
		}
	}
	record := &database.DbSample{
		Sha256Digest:   sha256hash,
		FileType:       fileType,
		SubmissionType: string(meta.SubmissionType),
		Name:           meta.Name,
		Description:    meta.Description,
		Tags:           meta.Tags,
		SizeBytes:      stat.Size(),
		Extra:          database.AnonymousJson(meta.Extra),
	}
	s.records[sha256hash] = append(s.records[sha256hash], record)
	atomic.AddInt32(&s.commits, 1)
	return record, nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		n += len(r)
	}
	return n
}

// lookupBarrier holds the first n lookups until all n have read the index, so every one of them
// sees it as it was before anybody commits.
type lookupBarrier struct {
	n       int32
	arrived int32
	wg      sync.WaitGroup
}

func newLookupBarrier(n int) *lookupBarrier {
	b := &lookupBarrier{n: int32(n)}
	b.wg.Add(n)
	return b
}

func (b *lookupBarrier) wait() {
	if atomic.AddInt32(&b.arrived, 1) <= b.n {
		b.wg.Done()
		b.wg.Wait()
	}
}

type fixture struct {
	ctx      rcontext.RequestContext
	store    *memoryStore
	ingestor *Ingestor
	tempPath string
}

func newFixture(t *testing.T) *fixture {
	cfg := config.NewDefaultMainConfig()
	cfg.General.TempPath = t.TempDir()
	cfg.Redis.Enabled = false
	config.Set(&cfg)

	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	store := newMemoryStore()
	return &fixture{
		ctx:   rcontext.New(context.Background(), logrus.NewEntry(log).WithField("test", t.Name()), cfg),
		store: store,
		ingestor: &Ingestor{
			Index:     store,
			Committer: store,
			Lock:      ingest.LockForIngest,
			Extract:   archives.Extract,
		},
		tempPath: cfg.General.TempPath,
	}
}

func stage(t *testing.T, content []byte) string {
	f, err := os.CreateTemp(t.TempDir(), "staged-")
	require.NoError(t, err)
	_, err = f.Write(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func stageZip(t *testing.T, memberName string, body []byte, password string) string {
	return stageZipWith(t, memberName, body, password, zip.AES256Encryption)
}

func stageZipWith(t *testing.T, memberName string, body []byte, password string, enc zip.EncryptionMethod) string {
	fpath := filepath.Join(t.TempDir(), "payload.zip")
	f, err := os.Create(fpath)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	var ew interface{ Write([]byte) (int, error) }
	if password != "" {
		ew, err = w.Encrypt(memberName, password, enc)
	} else {
		ew, err = w.Create(memberName)
	}
	require.NoError(t, err)
	_, err = ew.Write(body)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return fpath
}

func assertEmptyDir(t *testing.T, dir string) {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "expected %s to be empty", dir)
}
