package upload

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/getsentry/sentry-go"
	"github.com/t2bot/sample-repo/common"
	"github.com/t2bot/sample-repo/common/rcontext"
)

const maxFieldBytes = 1024 * 1024 // 1mb

type stagedPart struct {
	Path     string
	Filename string
	Size     int64
}

type multipartUpload struct {
	values map[string]string
	files  map[string][]*stagedPart
	dir    string
}

// Cleanup removes every staged file. Safe to call more than once.
func (u *multipartUpload) Cleanup(rctx rcontext.RequestContext) {
	if u.dir == "" {
		return
	}
	if err := os.RemoveAll(u.dir); err != nil {
		rctx.Log.Warn("Error removing staged upload: ", err)
		sentry.CaptureException(err)
	}
	u.dir = ""
}

// readMultipart streams the request's file parts to a temporary directory, each capped at the
// configured upload size. Plain form fields are read into memory.
func readMultipart(rctx rcontext.RequestContext, r *http.Request) (*multipartUpload, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(rctx.Config.General.TempPath, "sr-upload-")
	if err != nil {
		return nil, err
	}
	u := &multipartUpload{
		values: make(map[string]string),
		files:  make(map[string][]*stagedPart),
		dir:    dir,
	}

	fileCount := 0
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			u.Cleanup(rctx)
			return nil, err
		}

		if part.FileName() == "" {
			b, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
			_ = part.Close()
			if err != nil {
				u.Cleanup(rctx)
				return nil, err
			}
			if len(b) > maxFieldBytes {
				u.Cleanup(rctx)
				return nil, common.ErrPayloadTooLarge
			}
			u.values[part.FormName()] = string(b)
			continue
		}

		fileCount++
		if maxFiles := rctx.Config.Uploads.MaxBatchFiles; maxFiles > 0 && fileCount > maxFiles {
			_ = part.Close()
			u.Cleanup(rctx)
			return nil, common.ErrPayloadTooLarge
		}
		staged, err := stagePart(rctx, dir, part)
		_ = part.Close()
		if err != nil {
			u.Cleanup(rctx)
			return nil, err
		}
		u.files[part.FormName()] = append(u.files[part.FormName()], staged)
	}

	return u, nil
}

func stagePart(rctx rcontext.RequestContext, dir string, part *multipart.Part) (*stagedPart, error) {
	f, err := os.CreateTemp(dir, "part-")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	limit := rctx.Config.Uploads.MaxSizeBytes
	var src io.Reader = part
	if limit > 0 {
		src = io.LimitReader(part, limit+1)
	}
	written, err := io.Copy(f, src)
	if err != nil {
		return nil, err
	}
	if limit > 0 && written > limit {
		rctx.Log.Infof("Upload exceeds the limit of %s", humanize.IBytes(uint64(limit)))
		return nil, common.ErrPayloadTooLarge
	}

	return &stagedPart{
		Path:     f.Name(),
		Filename: filepath.Base(part.FileName()),
		Size:     written,
	}, nil
}
