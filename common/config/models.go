package config

type GeneralConfig struct {
	BindAddress  string `yaml:"bindAddress"`
	Port         int    `yaml:"port"`
	LogDirectory string `yaml:"logDirectory"`
	LogColors    bool   `yaml:"logColors"`
	JsonLogs     bool   `yaml:"jsonLogs"`
	LogLevel     string `yaml:"logLevel"`
	TempPath     string `yaml:"tempPath"`
}

type DatabaseConfig struct {
	Postgres string        `yaml:"postgres"`
	Pool     *DbPoolConfig `yaml:"pool"`
}

type DbPoolConfig struct {
	MaxConnections int `yaml:"maxConnections"`
	MaxIdle        int `yaml:"maxIdleConnections"`
}

type DatastoreConfig struct {
	Id        string            `yaml:"id"`
	Type      string            `yaml:"type"`
	Enabled   bool              `yaml:"enabled"`
	FileTypes []string          `yaml:"forKinds,flow"`
	Options   map[string]string `yaml:"opts,flow"`
}

type UploadsConfig struct {
	MaxSizeBytes  int64 `yaml:"maxSizeBytes"`
	MaxBatchFiles int   `yaml:"maxBatchFiles"`
}

type ExtractionConfig struct {
	MaxEntries      int    `yaml:"maxEntries"`
	MaxSizeBytes    int64  `yaml:"maxSizeBytes"`
	MultipleMembers string `yaml:"multipleMembers"`
}

type BatchConfig struct {
	NumWorkers int `yaml:"numWorkers"`
}

type IndexConfig struct {
	CacheMinutes int `yaml:"cacheMinutes"`
}

type MetricsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BindAddress string `yaml:"bindAddress"`
	Port        int    `yaml:"port"`
}

type SentryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Dsn         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
	Debug       bool   `yaml:"debug"`
}

type RedisShardConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"addr"`
}

type RedisConfig struct {
	Enabled bool               `yaml:"enabled"`
	Shards  []RedisShardConfig `yaml:"shards,flow"`
	DbNum   int                `yaml:"databaseNumber"`
}

type MainRepoConfig struct {
	General    GeneralConfig     `yaml:"repo"`
	Database   DatabaseConfig    `yaml:"database"`
	DataStores []DatastoreConfig `yaml:"datastores"`
	Uploads    UploadsConfig     `yaml:"uploads"`
	Extraction ExtractionConfig  `yaml:"extraction"`
	Batch      BatchConfig       `yaml:"batch"`
	Index      IndexConfig       `yaml:"index"`
	Metrics    MetricsConfig     `yaml:"metrics"`
	Sentry     SentryConfig      `yaml:"sentry"`
	Redis      RedisConfig       `yaml:"redis"`
}
