package datastores

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/t2bot/sample-repo/common/config"
	"github.com/t2bot/sample-repo/common/rcontext"
)

type fileBackend struct {
	basePath string
}

func newFileBackend(ds config.DatastoreConfig) (*fileBackend, error) {
	basePath := ds.Options["path"]
	if basePath == "" {
		return nil, errors.New("file datastore " + ds.Id + " has no path")
	}
	return &fileBackend{basePath: basePath}, nil
}

func (f *fileBackend) target(location string) string {
	return filepath.Join(f.basePath, filepath.FromSlash(location))
}

func (f *fileBackend) exists(ctx rcontext.RequestContext, location string) (bool, error) {
	observe("file", "StatFile")
	_, err := os.Stat(f.target(location))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (f *fileBackend) put(ctx rcontext.RequestContext, location string, r io.Reader, size int64, contentType string, verify verifyFn) error {
	targetFile := f.target(location)
	targetDir := filepath.Dir(targetFile)
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return err
	}

	// Written next to the target then renamed, so a partial file is never visible at the location
	tmp, err := os.CreateTemp(targetDir, ".upload-")
	if err != nil {
		return err
	}
	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tmp.Name())
		}
	}()

	observe("file", "WriteFile")
	written, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if err = verify(written); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), targetFile); err != nil {
		return err
	}
	renamed = true
	return nil
}

func (f *fileBackend) get(ctx rcontext.RequestContext, location string) (io.ReadSeekCloser, error) {
	observe("file", "ReadFile")
	return os.Open(f.target(location))
}

func (f *fileBackend) remove(ctx rcontext.RequestContext, location string) error {
	observe("file", "RemoveFile")
	err := os.Remove(f.target(location))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func (f *fileBackend) uri() string {
	return f.basePath
}
