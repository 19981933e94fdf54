package postgres

import (
	"database/sql"
	"os"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/sirupsen/logrus"

	"github.com/tabpay/tab-server/pkg/tab/data/pullpayment"
	"github.com/tabpay/tab-server/pkg/tab/data/pullpayment/tests"

	postgrestest "github.com/tabpay/tab-server/pkg/database/postgres/test"

	_ "github.com/jackc/pgx/v4/stdlib"
)

const (
	// Used for testing ONLY, the table and migrations are external to this repository
	tableCreate = `
		CREATE TABLE tabpay__core_pullpayment(
			id SERIAL NOT NULL PRIMARY KEY,

			pull_payment_id TEXT NOT NULL UNIQUE,
			store_id TEXT NOT NULL,
			currency VARCHAR(8) NOT NULL,
			limit_amount NUMERIC(24, 12) NOT NULL CHECK (limit_amount > 0),

			starts_at TIMESTAMP WITH TIME ZONE NOT NULL,
			expires_at TIMESTAMP WITH TIME ZONE NULL,
			archived BOOL NOT NULL,

			name TEXT NOT NULL,
			description TEXT NOT NULL,
			supported_methods TEXT NOT NULL,
			auto_approve_claims BOOL NOT NULL,
			minimum_claim NUMERIC(24, 12) NOT NULL CHECK (minimum_claim >= 0),
			bolt11_expiry_seconds BIGINT NOT NULL,

			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		);
	`

	// Used for testing ONLY, the table and migrations are external to this repository
	tableDestroy = `
		DROP TABLE tabpay__core_pullpayment;
	`
)

var (
	testStore pullpayment.Store
	teardown  func()
)

func TestMain(m *testing.M) {
	log := logrus.StandardLogger()

	testPool, err := dockertest.NewPool("")
	if err != nil {
		log.WithError(err).Error("Error creating docker pool")
		os.Exit(1)
	}

	var cleanUpFunc func()
	db, cleanUpFunc, err := postgrestest.StartPostgresDB(testPool)
	if err != nil {
		log.WithError(err).Error("Error starting postgres image")
		os.Exit(1)
	}
	defer db.Close()

	if err := createTestTables(db); err != nil {
		logrus.StandardLogger().WithError(err).Error("Error creating test tables")
		cleanUpFunc()
		os.Exit(1)
	}

	testStore = New(db)
	teardown = func() {
		if pc := recover(); pc != nil {
			cleanUpFunc()
			panic(pc)
		}

		if err := resetTestTables(db); err != nil {
			logrus.StandardLogger().WithError(err).Error("Error resetting test tables")
			cleanUpFunc()
			os.Exit(1)
		}
	}

	code := m.Run()
	cleanUpFunc()
	os.Exit(code)
}

func TestPullPaymentPostgresStore(t *testing.T) {
	tests.RunTests(t, testStore, teardown)
}

func createTestTables(db *sql.DB) error {
	_, err := db.Exec(tableCreate)
	return err
}

func resetTestTables(db *sql.DB) error {
	_, err := db.Exec(tableDestroy)
	if err != nil {
		return err
	}

	return createTestTables(db)
}
