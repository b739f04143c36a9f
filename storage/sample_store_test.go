package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t2bot/sample-repo/common"
	"github.com/t2bot/sample-repo/common/config"
	"github.com/t2bot/sample-repo/common/rcontext"
	"github.com/t2bot/sample-repo/database"
	"github.com/t2bot/sample-repo/datastores"
	"github.com/t2bot/sample-repo/fingerprint"
	"github.com/t2bot/sample-repo/types"
)

var sampleColumns = []string{"sha256_digest", "file_type", "submission_type", "name", "description", "tags", "mime", "size_bytes", "extra", "creation_ts", "datastore_id", "location"}

type storeFixture struct {
	ctx      rcontext.RequestContext
	store    *SampleStore
	mock     sqlmock.Sqlmock
	byHash   *sqlmock.ExpectedPrepare
	insert   *sqlmock.ExpectedPrepare
	refCount *sqlmock.ExpectedPrepare
	dsPath   string
}

func newFixture(t *testing.T, cacheTtl time.Duration) *storeFixture {
	cfg := config.NewDefaultMainConfig()
	dsPath := t.TempDir()
	cfg.DataStores = []config.DatastoreConfig{{
		Id:        "local",
		Type:      "file",
		Enabled:   true,
		FileTypes: []string{common.KindAll},
		Options:   map[string]string{"path": dsPath},
	}}
	config.Set(&cfg)

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})
	f := &storeFixture{
		ctx:      rcontext.New(context.Background(), logrus.WithField("test", t.Name()), cfg),
		mock:     mock,
		byHash:   mock.ExpectPrepare("SELECT (.+) FROM samples WHERE sha256_digest"),
		insert:   mock.ExpectPrepare("INSERT INTO samples"),
		refCount: mock.ExpectPrepare("SELECT COUNT(.+) FROM samples WHERE datastore_id"),
		dsPath:   dsPath,
	}
	db, err := database.NewWithConn(conn)
	require.NoError(t, err)
	f.store = NewSampleStore(db, cacheTtl)
	return f
}

func writeSample(t *testing.T, content string) (string, string) {
	p := filepath.Join(t.TempDir(), "sample.txt")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	hash, err := fingerprint.Sha256File(p)
	require.NoError(t, err)
	return p, hash
}

func memoryRow(hash string) *sqlmock.Rows {
	return sqlmock.NewRows(sampleColumns).
		AddRow(hash, "memory", "upload:memory", "dump", "", "", "text/plain", 5, []byte(`{}`), 1, "local", datastores.LocationFor(hash))
}

func TestLookupCachesHitsOnly(t *testing.T) {
	f := newFixture(t, time.Minute)
	_, hash := writeSample(t, "hello")

	f.byHash.ExpectQuery().WithArgs(hash).WillReturnRows(sqlmock.NewRows(sampleColumns))
	f.byHash.ExpectQuery().WithArgs(hash).WillReturnRows(memoryRow(hash))

	records, err := f.store.GetByHash(f.ctx, hash)
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = f.store.GetByHash(f.ctx, hash)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// third lookup is served from the cache
	records, err = f.store.GetByHash(f.ctx, hash)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, common.FileTypeMemory, records[0].FileType)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCommitStoresBlobAndRecord(t *testing.T) {
	f := newFixture(t, time.Minute)
	src, hash := writeSample(t, "hello")

	f.byHash.ExpectQuery().WithArgs(hash).WillReturnRows(memoryRow(hash))
	f.insert.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	f.byHash.ExpectQuery().WithArgs(hash).WillReturnRows(memoryRow(hash))

	_, err := f.store.GetByHash(f.ctx, hash)
	require.NoError(t, err)

	meta := &types.Metadata{
		Name:           "hello.txt",
		Tags:           "a,b",
		SubmissionType: common.SubmissionUploadFile,
		Extra:          map[string]interface{}{"source": "test"},
	}
	record, err := f.store.Commit(f.ctx, hash, src, common.FileTypeFile, meta)
	require.NoError(t, err)
	assert.Equal(t, hash, record.Sha256Digest)
	assert.Equal(t, common.FileTypeFile, record.FileType)
	assert.Equal(t, "upload:file", record.SubmissionType)
	assert.Equal(t, "hello.txt", record.Name)
	assert.Equal(t, int64(5), record.SizeBytes)
	assert.Contains(t, record.MimeType, "text/plain")
	assert.Equal(t, "local", record.DatastoreId)
	assert.Equal(t, "test", record.Extra["source"])

	stored, err := fingerprint.Sha256File(filepath.Join(f.dsPath, record.Location))
	require.NoError(t, err)
	assert.Equal(t, hash, stored)

	// the commit invalidated the cached lookup
	_, err = f.store.GetByHash(f.ctx, hash)
	require.NoError(t, err)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCommitConflictRemovesNewBlob(t *testing.T) {
	f := newFixture(t, 0)
	src, hash := writeSample(t, "raced")

	f.insert.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))
	f.refCount.ExpectQuery().WithArgs("local", datastores.LocationFor(hash)).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, err := f.store.Commit(f.ctx, hash, src, common.FileTypeFile, &types.Metadata{Name: "x"})
	assert.ErrorIs(t, err, common.ErrAlreadyExists)

	_, err = os.Stat(filepath.Join(f.dsPath, datastores.LocationFor(hash)))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCommitConflictKeepsReferencedBlob(t *testing.T) {
	f := newFixture(t, 0)
	src, hash := writeSample(t, "shared")

	f.insert.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))
	f.refCount.ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err := f.store.Commit(f.ctx, hash, src, common.FileTypeFile, &types.Metadata{Name: "x"})
	assert.ErrorIs(t, err, common.ErrAlreadyExists)

	_, err = os.Stat(filepath.Join(f.dsPath, datastores.LocationFor(hash)))
	assert.NoError(t, err)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCommitFailureKeepsPreexistingBlob(t *testing.T) {
	f := newFixture(t, 0)
	src, hash := writeSample(t, "already stored")

	_, created, err := datastores.Upload(f.ctx, f.ctx.Config.DataStores[0], src, hash, "")
	require.NoError(t, err)
	require.True(t, created)

	f.insert.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = f.store.Commit(f.ctx, hash, src, common.FileTypeMemory, &types.Metadata{Name: "x"})
	assert.ErrorIs(t, err, common.ErrAlreadyExists)

	_, err = os.Stat(filepath.Join(f.dsPath, datastores.LocationFor(hash)))
	assert.NoError(t, err)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCommitWithoutDatastore(t *testing.T) {
	f := newFixture(t, 0)
	src, hash := writeSample(t, "nowhere")
	f.ctx.Config.DataStores = nil

	_, err := f.store.Commit(f.ctx, hash, src, common.FileTypeFile, &types.Metadata{Name: "x"})
	assert.ErrorIs(t, err, common.ErrNoDatastore)
}
