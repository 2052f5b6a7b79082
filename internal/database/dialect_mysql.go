package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLDialect implements Dialect for MySQL
type MySQLDialect struct{}

// NewMySQLDialect creates a new MySQL dialect
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) DriverName() string {
	return "mysql"
}

// DSN makes sure time columns scan into time.Time, migration files can hold
// several statements and RowsAffected counts matched rather than changed rows
func (d *MySQLDialect) DSN(config DialectConfig) string {
	dsn := config.URL
	for _, param := range []string{"parseTime=true", "multiStatements=true", "clientFoundRows=true"} {
		if strings.Contains(dsn, strings.Split(param, "=")[0]+"=") {
			continue
		}
		if strings.Contains(dsn, "?") {
			dsn += "&" + param
		} else {
			dsn += "?" + param
		}
	}
	return dsn
}

func (d *MySQLDialect) RewriteQuery(query string) string {
	return query
}

func (d *MySQLDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if _, err := db.Exec("SET FOREIGN_KEY_CHECKS = 1;"); err != nil {
		return err
	}

	return nil
}

func (d *MySQLDialect) MigrationsSubdir() string {
	return "mysql"
}

func (d *MySQLDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			filename VARCHAR(255) UNIQUE NOT NULL,
			executed_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6)
		);
	`
}

func (d *MySQLDialect) InsertIgnore(query string) string {
	return replaceInsertVerb(query, "INSERT IGNORE INTO")
}
