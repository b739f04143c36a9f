package redislib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/t2bot/sample-repo/common/config"
)

func useConfig(t *testing.T, mutate func(c *config.MainRepoConfig)) {
	cfg := config.NewDefaultMainConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	config.Set(&cfg)
	Stop()
	t.Cleanup(Stop)
}

func TestDisabledRedis(t *testing.T) {
	useConfig(t, nil)

	assert.False(t, Enabled())
	assert.Nil(t, GetMutex("abc", 0))
	assert.Nil(t, Subscribe("channel"))
}

func TestEnabledWithoutShards(t *testing.T) {
	useConfig(t, func(c *config.MainRepoConfig) {
		c.Redis.Enabled = true
		c.Redis.Shards = nil
	})

	assert.False(t, Enabled())
}

func TestConnectDoesNotDial(t *testing.T) {
	useConfig(t, func(c *config.MainRepoConfig) {
		c.Redis.Enabled = true
		c.Redis.Shards = []config.RedisShardConfig{{Name: "one", Address: "127.0.0.1:1"}}
	})

	assert.True(t, Enabled())
	assert.NotNil(t, GetMutex("abc", 0))
}
