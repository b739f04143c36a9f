package archives

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t2bot/sample-repo/common/config"
	"github.com/t2bot/sample-repo/common/rcontext"
	"github.com/yeka/zip"
)

type zipEntry struct {
	name     string
	body     []byte
	password string
	method   zip.EncryptionMethod
	symlink  bool
}

func makeZip(t *testing.T, name string, entries ...zipEntry) string {
	fpath := filepath.Join(t.TempDir(), name)
	f, err := os.Create(fpath)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for _, e := range entries {
		var ew interface{ Write([]byte) (int, error) }
		switch {
		case e.password != "":
			ew, err = w.Encrypt(e.name, e.password, e.method)
		case e.symlink:
			h := &zip.FileHeader{Name: e.name, Method: zip.Store}
			h.SetMode(os.ModeSymlink | 0777)
			ew, err = w.CreateHeader(h)
		default:
			ew, err = w.Create(e.name)
		}
		require.NoError(t, err)
		if len(e.body) > 0 {
			_, err = ew.Write(e.body)
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())
	return fpath
}

func testContext(t *testing.T, mutate func(c *config.MainRepoConfig)) (rcontext.RequestContext, string) {
	cfg := config.NewDefaultMainConfig()
	cfg.General.TempPath = t.TempDir()
	if mutate != nil {
		mutate(&cfg)
	}
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	return rcontext.New(context.Background(), logrus.NewEntry(log).WithField("test", t.Name()), cfg), cfg.General.TempPath
}

func assertEmptyDir(t *testing.T, dir string) {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "expected %s to be empty", dir)
}

func assertExtractionError(t *testing.T, err error, target error) {
	require.Error(t, err)
	var extErr *ExtractionError
	assert.True(t, errors.As(err, &extErr), "expected an ExtractionError, got %T: %v", err, err)
	assert.ErrorIs(t, err, target)
}

func TestExtractSingleMember(t *testing.T) {
	ctx, tempPath := testContext(t, nil)
	body := []byte("MZ this is a pretend executable")
	archive := makeZip(t, "payload.zip", zipEntry{name: "inner.exe", body: body})

	extracted, cleanup, err := Extract(ctx, archive, "")
	require.NoError(t, err)
	assert.Equal(t, "inner.exe", filepath.Base(extracted))
	got, err := os.ReadFile(extracted)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	cleanup()
	assertEmptyDir(t, tempPath)

	_, err = os.Stat(archive)
	assert.NoError(t, err, "source archive must not be removed")
}

func TestExtractNestedMemberSkipsDirectories(t *testing.T) {
	ctx, _ := testContext(t, nil)
	archive := makeZip(t, "payload.zip",
		zipEntry{name: "bin/"},
		zipEntry{name: "bin/inner.exe", body: []byte("nested")},
	)

	extracted, cleanup, err := Extract(ctx, archive, "")
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, "inner.exe", filepath.Base(extracted))
	assert.Equal(t, "bin", filepath.Base(filepath.Dir(extracted)))
}

func TestExtractEncrypted(t *testing.T) {
	body := bytes.Repeat([]byte("secret sample "), 200)
	for _, method := range []zip.EncryptionMethod{zip.StandardEncryption, zip.AES256Encryption} {
		ctx, tempPath := testContext(t, nil)
		archive := makeZip(t, "payload.zip", zipEntry{name: "inner.exe", body: body, password: "infected", method: method})

		extracted, cleanup, err := Extract(ctx, archive, "infected")
		require.NoError(t, err, "method %d", method)
		got, err := os.ReadFile(extracted)
		require.NoError(t, err)
		assert.Equal(t, body, got)
		cleanup()
		assertEmptyDir(t, tempPath)
	}
}

func TestExtractWrongPassword(t *testing.T) {
	bodies := [][]byte{[]byte("secret"), bytes.Repeat([]byte("a longer secret body "), 4096)}
	for _, method := range []zip.EncryptionMethod{zip.StandardEncryption, zip.AES256Encryption} {
		for _, body := range bodies {
			ctx, tempPath := testContext(t, nil)
			archive := makeZip(t, "payload.zip", zipEntry{name: "inner.exe", body: body, password: "infected", method: method})

			extracted, cleanup, err := Extract(ctx, archive, "not-the-password")
			assertExtractionError(t, err, ErrWrongPassword)
			assert.Empty(t, extracted, "method %d", method)
			cleanup()
			assertEmptyDir(t, tempPath)
		}
	}
}

func TestExtractMissingPassword(t *testing.T) {
	for _, method := range []zip.EncryptionMethod{zip.StandardEncryption, zip.AES256Encryption} {
		ctx, tempPath := testContext(t, nil)
		archive := makeZip(t, "payload.zip", zipEntry{name: "inner.exe", body: []byte("secret"), password: "infected", method: method})

		_, _, err := Extract(ctx, archive, "")
		assertExtractionError(t, err, ErrPasswordRequired)
		assertEmptyDir(t, tempPath)
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	for _, name := range []string{"../evil.exe", "a/../../evil.exe", "/tmp/evil.exe", "..\\evil.exe", "C:/evil.exe"} {
		ctx, tempPath := testContext(t, nil)
		archive := makeZip(t, "payload.zip", zipEntry{name: name, body: []byte("evil")})

		_, _, err := Extract(ctx, archive, "")
		assertExtractionError(t, err, ErrUnsafeEntry)
		assertEmptyDir(t, tempPath)

		var extErr *ExtractionError
		require.True(t, errors.As(err, &extErr))
		assert.Equal(t, name, extErr.Entry)
		assert.Equal(t, "unsafe_entry", extErr.Reason())
	}
}

func TestExtractRejectsTraversalInSkippedEntries(t *testing.T) {
	ctx, _ := testContext(t, nil)
	archive := makeZip(t, "payload.zip",
		zipEntry{name: "inner.exe", body: []byte("fine")},
		zipEntry{name: "../../"},
	)

	_, _, err := Extract(ctx, archive, "")
	assertExtractionError(t, err, ErrUnsafeEntry)
}

func TestExtractMultipleMembers(t *testing.T) {
	entries := []zipEntry{
		{name: "first.exe", body: []byte("one")},
		{name: "second.exe", body: []byte("two")},
	}

	ctx, tempPath := testContext(t, nil)
	_, _, err := Extract(ctx, makeZip(t, "payload.zip", entries...), "")
	assertExtractionError(t, err, ErrMultipleMembers)
	assertEmptyDir(t, tempPath)

	ctx, _ = testContext(t, func(c *config.MainRepoConfig) {
		c.Extraction.MultipleMembers = config.MultipleMembersFirst
	})
	extracted, cleanup, err := Extract(ctx, makeZip(t, "payload.zip", entries...), "")
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, "first.exe", filepath.Base(extracted))
}

func TestExtractSymlinksAreNotMembers(t *testing.T) {
	ctx, _ := testContext(t, nil)
	archive := makeZip(t, "payload.zip",
		zipEntry{name: "link", body: []byte("/etc/passwd"), symlink: true},
		zipEntry{name: "inner.exe", body: []byte("real")},
	)

	extracted, cleanup, err := Extract(ctx, archive, "")
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, "inner.exe", filepath.Base(extracted))
}

func TestExtractNoMembers(t *testing.T) {
	ctx, _ := testContext(t, nil)
	_, _, err := Extract(ctx, makeZip(t, "payload.zip", zipEntry{name: "empty/"}), "")
	assertExtractionError(t, err, ErrNoMembers)
}

func TestExtractLimits(t *testing.T) {
	ctx, tempPath := testContext(t, func(c *config.MainRepoConfig) {
		c.Extraction.MaxEntries = 2
	})
	archive := makeZip(t, "payload.zip",
		zipEntry{name: "a/"},
		zipEntry{name: "b/"},
		zipEntry{name: "a/inner.exe", body: []byte("x")},
	)
	_, _, err := Extract(ctx, archive, "")
	assertExtractionError(t, err, ErrTooManyEntries)
	assertEmptyDir(t, tempPath)

	ctx, tempPath = testContext(t, func(c *config.MainRepoConfig) {
		c.Extraction.MaxSizeBytes = 1024
	})
	archive = makeZip(t, "payload.zip", zipEntry{name: "bomb.bin", body: bytes.Repeat([]byte{0}, 64*1024)})
	_, _, err = Extract(ctx, archive, "")
	assertExtractionError(t, err, ErrTooLarge)
	assertEmptyDir(t, tempPath)
}

func TestExtractNotAnArchive(t *testing.T) {
	ctx, tempPath := testContext(t, nil)
	fpath := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(fpath, []byte("just some text, not a zip"), 0644))

	_, _, err := Extract(ctx, fpath, "")
	assertExtractionError(t, err, ErrNotAnArchive)
	assertEmptyDir(t, tempPath)
}

func TestExtractCorruptArchive(t *testing.T) {
	ctx, tempPath := testContext(t, nil)
	fpath := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(fpath, append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0xff}, 64)...), 0644))

	_, _, err := Extract(ctx, fpath, "")
	assertExtractionError(t, err, ErrCorruptArchive)
	assertEmptyDir(t, tempPath)
}

func TestExtractMissingFile(t *testing.T) {
	ctx, _ := testContext(t, nil)
	_, _, err := Extract(ctx, filepath.Join(t.TempDir(), "missing.zip"), "")
	require.Error(t, err)
	var extErr *ExtractionError
	assert.False(t, errors.As(err, &extErr), "I/O failures are not extraction errors")
}
