package globals

var MetricsReloadChan = make(chan bool)
var PoolReloadChan = make(chan bool)
var RedisReloadChan = make(chan bool)
var DatastoresReloadChan = make(chan bool)
