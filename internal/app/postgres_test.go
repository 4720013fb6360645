package app

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/guttosm/candlefeed/config"
)

var testPG = config.Config{Postgres: config.PostgresConfig{User: "u", Password: "p", Host: "h", Port: 5432, DBName: "d", SSLMode: "disable"}}

func TestInitPostgres_OpenError(t *testing.T) {
	old := sqlOpener
	sqlOpener = func(driverName, dataSourceName string) (*sql.DB, error) {
		return nil, errors.New("open failed")
	}
	t.Cleanup(func() { sqlOpener = old })

	_, err := InitPostgres(testPG)
	if err == nil {
		t.Fatalf("expected error from InitPostgres when open fails")
	}
}

func TestInitPostgres_PingError(t *testing.T) {
	old := sqlOpener
	sqlOpener = func(driverName, dataSourceName string) (*sql.DB, error) {
		// Use sqlmock to return a *sql.DB whose Ping fails (enable ping monitoring)
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			t.Fatalf("sqlmock new: %v", err)
		}
		// Cause Ping to fail
		mock.ExpectPing().WillReturnError(errors.New("ping failed"))
		return db, nil
	}
	t.Cleanup(func() { sqlOpener = old })

	_, err := InitPostgres(testPG)
	if err == nil || !strings.Contains(err.Error(), "ping") {
		t.Fatalf("expected ping error from InitPostgres, got %v", err)
	}
}

func TestInitPostgres_DSN(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{name: "built from fields", cfg: testPG, want: "postgres://u:p@h:5432/d?sslmode=disable"},
		{name: "precomputed url", cfg: config.Config{Postgres: config.PostgresConfig{URL: "postgres://a:b@c:1/e"}}, want: "postgres://a:b@c:1/e"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			old := sqlOpener
			sqlOpener = func(driverName, dataSourceName string) (*sql.DB, error) {
				got = dataSourceName
				db, _, err := sqlmock.New()
				return db, err
			}
			t.Cleanup(func() { sqlOpener = old })

			db, err := InitPostgres(tc.cfg)
			if err != nil {
				t.Fatalf("InitPostgres: %v", err)
			}
			_ = db.Close()
			if got != tc.want {
				t.Fatalf("dsn=%q want %q", got, tc.want)
			}
		})
	}
}

func TestInitRedis_Unreachable(t *testing.T) {
	rdb, err := InitRedis(config.Config{Redis: config.RedisConfig{Addr: "127.0.0.1:1"}})
	if err == nil {
		_ = rdb.Close()
		t.Fatalf("expected error pinging unreachable redis")
	}
}
