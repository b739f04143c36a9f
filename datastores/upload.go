package datastores

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/t2bot/sample-repo/common/config"
	"github.com/t2bot/sample-repo/common/rcontext"
	"github.com/t2bot/sample-repo/fingerprint"
)

// Upload persists the file at sourcePath under its content-addressed location. When an object
// already exists at that location it is reused and created is false.
func Upload(ctx rcontext.RequestContext, ds config.DatastoreConfig, sourcePath string, sha256hash string, contentType string) (location string, created bool, err error) {
	if len(sha256hash) < 4 {
		return "", false, fmt.Errorf("invalid sha256 hash: %s", sha256hash)
	}
	b, err := openBackend(ds)
	if err != nil {
		return "", false, err
	}
	location = LocationFor(sha256hash)
	ctx = ctx.LogWithFields(logrus.Fields{"datastoreId": ds.Id, "location": location})

	exists, err := b.exists(ctx, location)
	if err != nil {
		return "", false, err
	}
	if exists {
		ctx.Log.Debug("Object already present in datastore - reusing")
		return location, false, nil
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return "", false, err
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return "", false, err
	}
	size := stat.Size()

	hr := fingerprint.NewHashingReader(f)
	verify := func(written int64) error {
		if written != size || hr.BytesRead() != size {
			return fmt.Errorf("upload size mismatch: expected %d got %d bytes", size, written)
		}
		if uploadedHash := hr.Digest(); uploadedHash != sha256hash {
			return fmt.Errorf("upload hash mismatch: expected %s got %s", sha256hash, uploadedHash)
		}
		return nil
	}
	if err = b.put(ctx, location, hr, size, contentType, verify); err != nil {
		return "", false, err
	}
	return location, true, nil
}
