package archives

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/t2bot/sample-repo/common/config"
	"github.com/t2bot/sample-repo/common/rcontext"
	"github.com/yeka/zip"
)

// zipExtractor handles plain, ZipCrypto and WinZip AES encrypted zip files.
//
// Only one member is ever written out. Which one is decided by Limits.MultipleMembers: "reject"
// fails when the archive holds more than one regular file, "first" takes the first regular file
// in central directory order. Directory and symlink entries are never counted or written.
type zipExtractor struct{}

func (z *zipExtractor) Name() string {
	return "zip"
}

func (z *zipExtractor) Supports(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}

func (z *zipExtractor) ExtractOne(ctx rcontext.RequestContext, archivePath string, password string, destDir string, limits Limits) (string, error) {
	archiveName := filepath.Base(archivePath)

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", newError(archiveName, "", fmt.Errorf("%w: %s", ErrCorruptArchive, err.Error()))
	}
	defer r.Close()

	if limits.MaxEntries > 0 && len(r.File) > limits.MaxEntries {
		return "", newError(archiveName, "", fmt.Errorf("%w: %d > %d", ErrTooManyEntries, len(r.File), limits.MaxEntries))
	}

	members := make([]*zip.File, 0)
	var declaredSize uint64
	for _, f := range r.File {
		if _, ok := safeJoin(destDir, f.Name); !ok {
			return "", newError(archiveName, f.Name, ErrUnsafeEntry)
		}
		mode := f.Mode()
		if mode.IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		if !mode.IsRegular() {
			ctx.Log.Debugf("Skipping non-regular archive entry %q", f.Name)
			continue
		}
		declaredSize += f.UncompressedSize64
		members = append(members, f)
	}

	if limits.MaxSizeBytes > 0 && declaredSize > uint64(limits.MaxSizeBytes) {
		return "", newError(archiveName, "", fmt.Errorf("%w: declares %s, limit is %s", ErrTooLarge, humanize.Bytes(declaredSize), humanize.Bytes(uint64(limits.MaxSizeBytes))))
	}
	if len(members) == 0 {
		return "", newError(archiveName, "", ErrNoMembers)
	}
	if len(members) > 1 {
		if limits.MultipleMembers != config.MultipleMembersFirst {
			return "", newError(archiveName, "", fmt.Errorf("%w: found %d", ErrMultipleMembers, len(members)))
		}
		ctx.Log.Warnf("Archive has %d files - using the first one (%q)", len(members), members[0].Name)
	}

	return z.writeMember(archiveName, members[0], password, destDir, limits)
}

func (z *zipExtractor) writeMember(archiveName string, f *zip.File, password string, destDir string, limits Limits) (string, error) {
	target, ok := safeJoin(destDir, f.Name)
	if !ok || target == destDir {
		return "", newError(archiveName, f.Name, ErrUnsafeEntry)
	}

	encrypted := f.IsEncrypted()
	if encrypted {
		if password == "" {
			return "", newError(archiveName, f.Name, ErrPasswordRequired)
		}
		f.SetPassword(password)
	}

	rc, err := f.Open()
	if err != nil {
		if encrypted {
			return "", newError(archiveName, f.Name, ErrWrongPassword)
		}
		return "", newError(archiveName, f.Name, fmt.Errorf("%w: %s", ErrCorruptArchive, err.Error()))
	}
	defer rc.Close()

	if err = os.MkdirAll(filepath.Dir(target), 0700); err != nil {
		return "", err
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", err
	}

	src := &trackedReader{r: rc}
	var reader io.Reader = src
	if limits.MaxSizeBytes > 0 {
		reader = io.LimitReader(src, limits.MaxSizeBytes+1)
	}
	written, err := io.Copy(out, reader)
	closeErr := out.Close()
	if src.err != nil {
		// Wrong ZipCrypto passwords are only noticed once the checksum fails at the end of the stream
		if encrypted {
			return "", newError(archiveName, f.Name, ErrWrongPassword)
		}
		return "", newError(archiveName, f.Name, fmt.Errorf("%w: %s", ErrCorruptArchive, src.err.Error()))
	}
	if err != nil {
		return "", err
	}
	if closeErr != nil {
		return "", closeErr
	}
	if limits.MaxSizeBytes > 0 && written > limits.MaxSizeBytes {
		return "", newError(archiveName, f.Name, fmt.Errorf("%w: more than %s", ErrTooLarge, humanize.Bytes(uint64(limits.MaxSizeBytes))))
	}

	return target, nil
}

// trackedReader remembers read errors so they can be told apart from write errors after io.Copy.
type trackedReader struct {
	r   io.Reader
	err error
}

func (t *trackedReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}
