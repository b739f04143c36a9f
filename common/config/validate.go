package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownDatastoreTypes = map[string]bool{"file": true, "s3": true}
var knownKinds = map[string]bool{"all": true, "file": true, "memory": true}

// Validate rejects configurations the repository cannot run with. Every problem is reported.
func Validate(c *MainRepoConfig) error {
	problems := make([]string, 0)
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.General.Port <= 0 || c.General.Port > 65535 {
		add("repo.port must be between 1 and 65535")
	}
	if c.Database.Pool == nil {
		c.Database.Pool = &DbPoolConfig{MaxConnections: 25, MaxIdle: 5}
	}
	if c.Uploads.MaxSizeBytes <= 0 {
		add("uploads.maxSizeBytes must be positive")
	}
	if c.Batch.NumWorkers <= 0 {
		add("batch.numWorkers must be at least 1")
	}
	switch c.Extraction.MultipleMembers {
	case MultipleMembersReject, MultipleMembersFirst:
	default:
		add("extraction.multipleMembers must be %q or %q", MultipleMembersReject, MultipleMembersFirst)
	}
	if c.Extraction.MaxEntries <= 0 || c.Extraction.MaxSizeBytes <= 0 {
		add("extraction limits must be positive")
	}

	for i, ds := range c.DataStores {
		if ds.Id == "" {
			add("datastores[%d] needs an id", i)
		}
		if !knownDatastoreTypes[ds.Type] {
			add("datastore %s has unknown type %q", ds.Id, ds.Type)
		}
		for _, k := range ds.FileTypes {
			if !knownKinds[k] {
				add("datastore %s lists unknown kind %q", ds.Id, k)
			}
		}
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
