package database

import (
	"database/sql"
	"sync"

	"github.com/DavidHuie/gomigrate"
	_ "github.com/lib/pq" // postgres driver
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/sample-repo/common/config"
	"github.com/t2bot/sample-repo/common/logging"
)

type Database struct {
	conn    *sql.DB
	Samples *samplesTableStatements
}

var instance *Database
var singleton = &sync.Once{}

func GetInstance() *Database {
	if instance == nil {
		singleton.Do(func() {
			if err := openDatabase(
				config.Get().Database.Postgres,
				config.Get().Database.Pool.MaxConnections,
				config.Get().Database.Pool.MaxIdle,
			); err != nil {
				logrus.Fatal("Failed to set up database: ", err)
			}
		})
	}
	return instance
}

func Reload() {
	if instance != nil {
		if err := instance.conn.Close(); err != nil {
			logrus.Error(err)
		}
	}

	instance = nil
	singleton = &sync.Once{}
	GetInstance()
}

func openDatabase(connectionString string, maxConns int, maxIdleConns int) error {
	conn, err := sql.Open("postgres", connectionString)
	if err != nil {
		return errors.Wrap(err, "error connecting to db")
	}
	conn.SetMaxOpenConns(maxConns)
	conn.SetMaxIdleConns(maxIdleConns)

	// Run migrations
	var migrator *gomigrate.Migrator
	if migrator, err = gomigrate.NewMigratorWithLogger(conn, gomigrate.Postgres{}, config.Runtime.MigrationsPath, &logging.SendToDebugLogger{}); err != nil {
		return errors.Wrap(err, "error setting up migrator")
	}
	if err = migrator.Migrate(); err != nil {
		return errors.Wrap(err, "error running migrations")
	}

	d, err := NewWithConn(conn)
	if err != nil {
		return err
	}
	instance = d
	return nil
}

// NewWithConn prepares the table accessors on an already migrated connection.
func NewWithConn(conn *sql.DB) (*Database, error) {
	d := &Database{conn: conn}
	var err error
	if d.Samples, err = prepareSamplesTables(conn); err != nil {
		return nil, errors.Wrap(err, "failed to create samples table accessor")
	}
	return d, nil
}
