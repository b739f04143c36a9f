package datastores

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/t2bot/sample-repo/common/config"
	"github.com/t2bot/sample-repo/common/rcontext"
)

var s3clients = &sync.Map{}

type s3Backend struct {
	client       *minio.Client
	storageClass string
	bucket       string
}

// ResetS3Clients drops cached clients so changed datastore options apply to the next operation.
func ResetS3Clients() {
	s3clients = &sync.Map{}
}

func getS3(ds config.DatastoreConfig) (*s3Backend, error) {
	if val, ok := s3clients.Load(ds.Id); ok {
		return val.(*s3Backend), nil
	}

	opts := ds.Options
	if opts["endpoint"] == "" || opts["bucketName"] == "" {
		return nil, fmt.Errorf("s3 datastore %s needs an endpoint and bucketName", ds.Id)
	}
	storageClass := opts["storageClass"]
	if storageClass == "" {
		storageClass = "STANDARD"
	}
	secure := true
	if v := opts["ssl"]; v != "" {
		var err error
		if secure, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("s3 datastore %s: invalid ssl option: %w", ds.Id, err)
		}
	}

	client, err := minio.New(opts["endpoint"], &minio.Options{
		Region: opts["region"],
		Secure: secure,
		Creds:  credentials.NewStaticV4(opts["accessKeyId"], opts["accessSecret"], ""),
	})
	if err != nil {
		return nil, err
	}

	b := &s3Backend{
		client:       client,
		storageClass: storageClass,
		bucket:       opts["bucketName"],
	}
	actual, _ := s3clients.LoadOrStore(ds.Id, b)
	return actual.(*s3Backend), nil
}

func (s *s3Backend) exists(ctx rcontext.RequestContext, location string) (bool, error) {
	observe("s3", "StatObject")
	_, err := s.client.StatObject(ctx.Context, s.bucket, location, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	var merr minio.ErrorResponse
	if errors.As(err, &merr) && (merr.Code == "NoSuchKey" || merr.StatusCode == http.StatusNotFound) {
		return false, nil
	}
	return false, err
}

func (s *s3Backend) put(ctx rcontext.RequestContext, location string, r io.Reader, size int64, contentType string, verify verifyFn) error {
	observe("s3", "PutObject")
	info, err := s.client.PutObject(ctx.Context, s.bucket, location, r, size, minio.PutObjectOptions{
		StorageClass: s.storageClass,
		ContentType:  contentType,
	})
	if err != nil {
		return err
	}
	if err = verify(info.Size); err != nil {
		if rmErr := s.remove(ctx, location); rmErr != nil {
			ctx.Log.Warn("Error deleting object which failed verification: ", rmErr)
		}
		return err
	}
	return nil
}

func (s *s3Backend) get(ctx rcontext.RequestContext, location string) (io.ReadSeekCloser, error) {
	observe("s3", "GetObject")
	obj, err := s.client.GetObject(ctx.Context, s.bucket, location, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (s *s3Backend) remove(ctx rcontext.RequestContext, location string) error {
	observe("s3", "RemoveObject")
	return s.client.RemoveObject(ctx.Context, s.bucket, location, minio.RemoveObjectOptions{})
}

func (s *s3Backend) uri() string {
	return fmt.Sprintf("s3://%s/%s", s.client.EndpointURL().Hostname(), s.bucket)
}
