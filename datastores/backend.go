package datastores

import (
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/t2bot/sample-repo/common/config"
	"github.com/t2bot/sample-repo/common/rcontext"
	"github.com/t2bot/sample-repo/metrics"
)

var ErrUnknownType = errors.New("unknown datastore type")

// verifyFn checks a written object before it becomes (or while it is) visible at its location.
type verifyFn func(written int64) error

type backend interface {
	exists(ctx rcontext.RequestContext, location string) (bool, error)

	// put writes r to location. The object must not be left at location if verify fails.
	put(ctx rcontext.RequestContext, location string, r io.Reader, size int64, contentType string, verify verifyFn) error
	get(ctx rcontext.RequestContext, location string) (io.ReadSeekCloser, error)

	// remove succeeds when nothing is stored at location.
	remove(ctx rcontext.RequestContext, location string) error
	uri() string
}

func openBackend(ds config.DatastoreConfig) (backend, error) {
	switch ds.Type {
	case "file":
		return newFileBackend(ds)
	case "s3":
		return getS3(ds)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, ds.Type)
	}
}

func observe(kind string, operation string) {
	metrics.DatastoreOperations.With(prometheus.Labels{"type": kind, "operation": operation}).Inc()
}

func Download(ctx rcontext.RequestContext, ds config.DatastoreConfig, location string) (io.ReadSeekCloser, error) {
	b, err := openBackend(ds)
	if err != nil {
		return nil, err
	}
	return b.get(ctx, location)
}

func Remove(ctx rcontext.RequestContext, ds config.DatastoreConfig, location string) error {
	b, err := openBackend(ds)
	if err != nil {
		return err
	}
	return b.remove(ctx, location)
}

func RemoveWithDsId(ctx rcontext.RequestContext, dsId string, location string) error {
	ds, ok := Get(ctx, dsId)
	if !ok {
		return fmt.Errorf("datastore %s is not configured", dsId)
	}
	return Remove(ctx, ds, location)
}

// GetUri describes where a datastore keeps its objects, for logging.
func GetUri(ds config.DatastoreConfig) (string, error) {
	b, err := openBackend(ds)
	if err != nil {
		return "", err
	}
	return b.uri(), nil
}
