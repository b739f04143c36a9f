package datastores

import (
	"path"

	"github.com/t2bot/sample-repo/common"
	"github.com/t2bot/sample-repo/common/config"
	"github.com/t2bot/sample-repo/common/rcontext"
)

func Get(ctx rcontext.RequestContext, dsId string) (config.DatastoreConfig, bool) {
	for _, c := range ctx.Config.DataStores {
		if c.Id == dsId {
			return c, true
		}
	}
	return config.DatastoreConfig{}, false
}

// Pick returns the first enabled datastore which accepts the given file type.
func Pick(ctx rcontext.RequestContext, fileType common.FileType) (config.DatastoreConfig, error) {
	for _, c := range ctx.Config.DataStores {
		if c.Enabled && HasListedFileType(c.FileTypes, fileType) {
			return c, nil
		}
	}
	return config.DatastoreConfig{}, common.ErrNoDatastore
}

// HasListedFileType reports whether a datastore's forKinds list accepts the file type.
func HasListedFileType(have []string, want common.FileType) bool {
	for _, k := range have {
		if k == common.KindAll || common.FileType(k) == want {
			return true
		}
	}
	return false
}

// LocationFor is the content-addressed object name for a digest. Every datastore type uses the
// same layout so records can be moved between stores without renaming.
func LocationFor(sha256hash string) string {
	return path.Join(sha256hash[0:2], sha256hash[2:4], sha256hash)
}
