package pg

import (
	"database/sql"
	"fmt"

	_ "github.com/newrelic/go-agent/v3/integrations/nrpgx"
)

type Config struct {
	User               string
	Host               string
	Password           string
	Port               int
	DbName             string
	MaxOpenConnections int
	MaxIdleConnections int
}

// New gets a DB connection pool using username/password credentials, opened
// through the New Relic instrumented pgx driver.
func New(config *Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		config.User, config.Password, config.Host, config.Port, config.DbName,
	)

	db, err := sql.Open("nrpgx", dsn)
	if err != nil {
		return nil, err
	}

	if config.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(config.MaxOpenConnections)
	}
	if config.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(config.MaxIdleConnections)
	}

	err = db.Ping()
	if err != nil {
		return nil, err
	}

	return db, nil
}
