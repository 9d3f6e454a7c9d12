package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/apex/log"
	_ "github.com/go-sql-driver/mysql"

	"inspection-pipeline/config"
)

// Database wraps the MySQL connection used by the issue store.
type Database struct {
	db *sql.DB
}

// NewDatabase creates a new database connection.
func NewDatabase(cfg *config.Config) (*Database, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection with exponential backoff retry
	var waitInterval = 1 * time.Second
	for {
		if err := db.Ping(); err == nil {
			break
		} else {
			log.Warnf("database connection failed, retrying in %v: %v", waitInterval, err)
		}
		time.Sleep(waitInterval)
		waitInterval *= 2
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Database{db: db}, nil
}

// NewFromDB wraps an existing connection (used by tests).
func NewFromDB(db *sql.DB) *Database {
	return &Database{db: db}
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// CreateTables creates the properties and issues tables if they don't exist.
// Deleting a property cascades to its issues at the storage layer.
func (d *Database) CreateTables() error {
	propertiesTable := `
	CREATE TABLE IF NOT EXISTS properties (
		id CHAR(36) NOT NULL PRIMARY KEY,
		address VARCHAR(255) NOT NULL,
		city VARCHAR(100) DEFAULT '',
		state VARCHAR(50) DEFAULT '',
		zip_code VARCHAR(20) DEFAULT '',
		total_issues INT NOT NULL DEFAULT 0,
		critical_issues INT NOT NULL DEFAULT 0,
		high_issues INT NOT NULL DEFAULT 0,
		moderate_issues INT NOT NULL DEFAULT 0,
		estimated_repair_cost DECIMAL(12,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`

	issuesTable := `
	CREATE TABLE IF NOT EXISTS issues (
		id CHAR(36) NOT NULL PRIMARY KEY,
		property_id CHAR(36) NOT NULL,
		title VARCHAR(255) NOT NULL,
		description TEXT,
		priority VARCHAR(20) DEFAULT 'Moderate',
		category VARCHAR(100) DEFAULT 'General',
		concern_level INT DEFAULT 5,
		estimated_cost_low DECIMAL(10,2) DEFAULT 0,
		estimated_cost_high DECIMAL(10,2) DEFAULT 0,
		image_url TEXT,
		detected_date DATE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_issues_property_id (property_id),
		CONSTRAINT fk_issues_property FOREIGN KEY (property_id)
			REFERENCES properties(id) ON DELETE CASCADE
	)`

	if _, err := d.db.Exec(propertiesTable); err != nil {
		return fmt.Errorf("failed to create properties table: %w", err)
	}
	if _, err := d.db.Exec(issuesTable); err != nil {
		return fmt.Errorf("failed to create issues table: %w", err)
	}

	log.Info("properties and issues tables created/verified")
	return nil
}
