package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS scamguard_analyses (
  id VARCHAR(64) PRIMARY KEY,
  session_id VARCHAR(64) NOT NULL,
  mode VARCHAR(16) NOT NULL,
  input_digest CHAR(64) NOT NULL,
  risk_score VARCHAR(16) NOT NULL,
  scam_type VARCHAR(255) NOT NULL,
  result_json JSON NOT NULL,
  image_url VARCHAR(1024) NOT NULL DEFAULT '',
  created_at DATETIME(3) NOT NULL,
  INDEX idx_analyses_created (created_at)
)`,
	`CREATE TABLE IF NOT EXISTS scamguard_failures (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  session_id VARCHAR(64) NOT NULL,
  mode VARCHAR(16) NOT NULL,
  phase VARCHAR(16) NOT NULL,
  message TEXT NOT NULL,
  created_at DATETIME(3) NOT NULL,
  INDEX idx_failures_session (session_id, created_at)
)`,
}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, q := range schema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
