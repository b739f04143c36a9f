package config

import (
	"fmt"
	"os"
	"path"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

type runtimeConfig struct {
	MigrationsPath string
}

var Runtime = &runtimeConfig{MigrationsPath: DefaultMigrationsPath}
var Path = "sample-repo.yaml"

var instance *MainRepoConfig
var singletonLock = &sync.Once{}

// Load reads the config at p over the defaults. When p is a directory every file in it is applied
// in name order, later files overriding earlier ones.
func Load(p string) (*MainRepoConfig, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}

	files := []string{p}
	if info.IsDir() {
		logrus.Info("Config is a directory - loading all files over top of each other")
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		files = files[:0]
		for _, e := range entries {
			if !e.IsDir() {
				files = append(files, path.Join(p, e.Name()))
			}
		}
		sort.Strings(files)
	}

	c := NewDefaultMainConfig()
	for _, f := range files {
		logrus.Info("Loading config file: ", f)
		buffer, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		if err = yaml.Unmarshal(buffer, &c); err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", f, err)
		}
	}
	if err = Validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func writeDefault(p string) error {
	fmt.Println("Generating new configuration...")
	b, err := yaml.Marshal(NewDefaultMainConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0644)
}

func reloadConfig() (*MainRepoConfig, error) {
	if _, err := os.Stat(Path); os.IsNotExist(err) {
		if err = writeDefault(Path); err != nil {
			return nil, err
		}
	}
	return Load(Path)
}

func Get() *MainRepoConfig {
	if instance == nil {
		singletonLock.Do(func() {
			c, err := reloadConfig()
			if err != nil {
				logrus.Fatal(err)
			}
			instance = c
		})
	}
	return instance
}

// Set replaces the active configuration. Used by tools which build their config in code.
func Set(c *MainRepoConfig) {
	singletonLock.Do(func() {})
	instance = c
}

func UniqueDatastores() []DatastoreConfig {
	confs := make([]DatastoreConfig, 0)
	seen := make(map[string]bool)
	for _, ds := range Get().DataStores {
		if seen[ds.Id] {
			logrus.Warnf("Datastore %s is configured more than once - ignoring duplicate", ds.Id)
			continue
		}
		seen[ds.Id] = true
		confs = append(confs, ds)
	}
	return confs
}
