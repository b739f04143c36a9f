package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t2bot/sample-repo/common/globals"
)

func TestDefaultsAreValid(t *testing.T) {
	c := NewDefaultMainConfig()
	assert.NoError(t, Validate(&c))
}

func TestValidateReportsEveryProblem(t *testing.T) {
	c := NewDefaultMainConfig()
	c.Extraction.MultipleMembers = "all"
	c.Batch.NumWorkers = 0
	c.DataStores = append(c.DataStores, DatastoreConfig{Id: "tape", Type: "tape", FileTypes: []string{"docs"}})

	err := Validate(&c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction.multipleMembers")
	assert.Contains(t, err.Error(), "batch.numWorkers")
	assert.Contains(t, err.Error(), `unknown type "tape"`)
	assert.Contains(t, err.Error(), `unknown kind "docs"`)
}

func TestLoadDirectoryMergesInOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01-base.yaml"), []byte("repo:\n  port: 6000\nbatch:\n  numWorkers: 2\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "02-override.yaml"), []byte("batch:\n  numWorkers: 9\n"), 0644))

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 6000, c.General.Port)
	assert.Equal(t, 9, c.Batch.NumWorkers)
	assert.Equal(t, MultipleMembersReject, c.Extraction.MultipleMembers)
}

func TestLoadRejectsInvalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("extraction:\n  multipleMembers: maybe\n"), 0644))

	_, err := Load(p)
	assert.Error(t, err)
}

func TestReloadsFor(t *testing.T) {
	old := NewDefaultMainConfig()

	same := NewDefaultMainConfig()
	assert.Equal(t, []chan bool{globals.DatastoresReloadChan}, reloadsFor(&old, &same))

	changed := NewDefaultMainConfig()
	changed.Batch.NumWorkers = 12
	changed.Redis.Shards = []RedisShardConfig{{Name: "a", Address: "localhost:6379"}}
	changed.Metrics.Port = 9999
	reloads := reloadsFor(&old, &changed)
	assert.Contains(t, reloads, globals.PoolReloadChan)
	assert.Contains(t, reloads, globals.RedisReloadChan)
	assert.Contains(t, reloads, globals.MetricsReloadChan)
	assert.Contains(t, reloads, globals.DatastoresReloadChan)
}
