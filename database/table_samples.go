package database

import (
	"database/sql"
	"errors"

	"github.com/t2bot/sample-repo/common"
	"github.com/t2bot/sample-repo/common/rcontext"
	"github.com/t2bot/sample-repo/types"
)

type DbSample struct {
	Sha256Digest   string
	FileType       common.FileType
	SubmissionType string
	Name           string
	Description    string
	Tags           string
	MimeType       string
	SizeBytes      int64
	Extra          AnonymousJson
	CreationTs     int64
	DatastoreId    string
	Location       string
}

func (s *DbSample) ToSample() *types.Sample {
	return &types.Sample{
		Sha256Digest:   s.Sha256Digest,
		FileType:       s.FileType,
		SubmissionType: s.SubmissionType,
		Name:           s.Name,
		Description:    s.Description,
		Tags:           s.Tags,
		Mime:           s.MimeType,
		Size:           s.SizeBytes,
		Timestamp:      s.CreationTs,
		Extra:          s.Extra,
	}
}

const selectSamplesByHash = "SELECT sha256_digest, file_type, submission_type, name, description, tags, mime, size_bytes, extra, creation_ts, datastore_id, location FROM samples WHERE sha256_digest = $1 ORDER BY creation_ts ASC;"
const insertSample = "INSERT INTO samples (sha256_digest, file_type, submission_type, name, description, tags, mime, size_bytes, extra, creation_ts, datastore_id, location) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) ON CONFLICT (sha256_digest, file_type) DO NOTHING;"
const selectLocationRefCount = "SELECT COUNT(*) FROM samples WHERE datastore_id = $1 AND location = $2;"

type samplesTableStatements struct {
	selectSamplesByHash    *sql.Stmt
	insertSample           *sql.Stmt
	selectLocationRefCount *sql.Stmt
}

type samplesTableWithContext struct {
	statements *samplesTableStatements
	ctx        rcontext.RequestContext
}

func prepareSamplesTables(db *sql.DB) (*samplesTableStatements, error) {
	var err error
	var stmts = &samplesTableStatements{}

	if stmts.selectSamplesByHash, err = db.Prepare(selectSamplesByHash); err != nil {
		return nil, errors.New("error preparing selectSamplesByHash: " + err.Error())
	}
	if stmts.insertSample, err = db.Prepare(insertSample); err != nil {
		return nil, errors.New("error preparing insertSample: " + err.Error())
	}
	if stmts.selectLocationRefCount, err = db.Prepare(selectLocationRefCount); err != nil {
		return nil, errors.New("error preparing selectLocationRefCount: " + err.Error())
	}

	return stmts, nil
}

func (s *samplesTableStatements) Prepare(ctx rcontext.RequestContext) *samplesTableWithContext {
	return &samplesTableWithContext{
		statements: s,
		ctx:        ctx,
	}
}

func (s *samplesTableWithContext) GetByHash(sha256hash string) ([]*DbSample, error) {
	results := make([]*DbSample, 0)
	rows, err := s.statements.selectSamplesByHash.QueryContext(s.ctx, sha256hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return results, nil
		}
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		val := &DbSample{}
		if err = rows.Scan(&val.Sha256Digest, &val.FileType, &val.SubmissionType, &val.Name, &val.Description, &val.Tags, &val.MimeType, &val.SizeBytes, &val.Extra, &val.CreationTs, &val.DatastoreId, &val.Location); err != nil {
			return nil, err
		}
		results = append(results, val)
	}

	return results, rows.Err()
}

// Insert adds the record, returning common.ErrAlreadyExists when a record for the same digest
// and file type is already present.
func (s *samplesTableWithContext) Insert(record *DbSample) error {
	res, err := s.statements.insertSample.ExecContext(s.ctx, record.Sha256Digest, record.FileType, record.SubmissionType, record.Name, record.Description, record.Tags, record.MimeType, record.SizeBytes, &record.Extra, record.CreationTs, record.DatastoreId, record.Location)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return common.ErrAlreadyExists
	}
	return nil
}

func (s *samplesTableWithContext) CountByLocation(datastoreId string, location string) (int64, error) {
	row := s.statements.selectLocationRefCount.QueryRowContext(s.ctx, datastoreId, location)
	val := int64(0)
	err := row.Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
	}
	return val, err
}
