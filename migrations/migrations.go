package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var tables = []struct {
	name string
	ddl  string
}{
	{"users", `
	CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(36) PRIMARY KEY,
		email VARCHAR(191) NOT NULL,
		password VARCHAR(191) NOT NULL,
		role VARCHAR(20) NOT NULL DEFAULT 'patient',
		name VARCHAR(191) NOT NULL,
		joined_date DATETIME NOT NULL,
		blood_group VARCHAR(20) NOT NULL DEFAULT '',
		allergies VARCHAR(500) NOT NULL DEFAULT '',
		emergency_contact VARCHAR(191) NOT NULL DEFAULT '',
		specialization VARCHAR(191) NOT NULL DEFAULT '',
		affiliation VARCHAR(191) NOT NULL DEFAULT '',
		license_number VARCHAR(100) NOT NULL DEFAULT '',
		UNIQUE KEY uq_users_email (email),
		KEY idx_users_role (role)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin;`},
	{"records", `
	CREATE TABLE IF NOT EXISTS records (
		id VARCHAR(36) PRIMARY KEY,
		owner VARCHAR(191) NULL,
		file_name VARCHAR(255) NOT NULL,
		stored_file_name VARCHAR(255) NULL,
		file_url VARCHAR(1024) NOT NULL,
		file_type VARCHAR(100) NOT NULL DEFAULT '',
		upload_date DATETIME(3) NOT NULL,
		issued_by VARCHAR(191) NULL,
		ai_summary JSON NULL,
		KEY idx_records_owner_date (owner, upload_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin;`},
	{"notifications", `
	CREATE TABLE IF NOT EXISTS notifications (
		id VARCHAR(36) PRIMARY KEY,
		title VARCHAR(191) NOT NULL,
		message TEXT NOT NULL,
		type VARCHAR(20) NOT NULL DEFAULT 'info',
		is_read TINYINT(1) NOT NULL DEFAULT 0,
		owner VARCHAR(191) NOT NULL,
		created_at DATETIME(3) NOT NULL,
		KEY idx_notifications_owner_date (owner, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin;`},
	{"shared_links", `
	CREATE TABLE IF NOT EXISTS shared_links (
		token VARCHAR(64) PRIMARY KEY,
		patient_id VARCHAR(36) NOT NULL,
		patient_name VARCHAR(191) NOT NULL DEFAULT '',
		created_at DATETIME(3) NOT NULL,
		expires_at DATETIME(3) NOT NULL,
		KEY idx_shared_links_patient (patient_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin;`},
}

// Migrate creates the MySQL tables if they do not exist.
func Migrate(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}
	for _, t := range tables {
		if _, err := db.Exec(t.ddl); err != nil {
			return fmt.Errorf("create %s: %w", t.name, err)
		}
		if err := ensureBinaryCollation(db, t.name); err != nil {
			return err
		}
	}
	log.Printf("[MIGRATE][MYSQL] %d tables ensured", len(tables))
	return nil
}

// binaryCollation keeps emails and owners case-sensitive as stored, the
// same matching the Mongo backend does.
const binaryCollation = "utf8mb4_bin"

// ensureBinaryCollation converts tables created with a case-insensitive
// collation before it was pinned in the DDL.
func ensureBinaryCollation(db *sql.DB, table string) error {
	var coll sql.NullString
	err := db.QueryRow(`SELECT TABLE_COLLATION FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`, table).Scan(&coll)
	if err != nil {
		return fmt.Errorf("collation of %s: %w", table, err)
	}
	if coll.String == binaryCollation {
		return nil
	}
	log.Printf("[MIGRATE][MYSQL] converting %s from %q to %s", table, coll.String, binaryCollation)
	if _, err := db.Exec("ALTER TABLE `" + table + "` CONVERT TO CHARACTER SET utf8mb4 COLLATE " + binaryCollation); err != nil {
		return fmt.Errorf("convert %s: %w", table, err)
	}
	return nil
}

// MigrateMongo creates the indexes the Mongo stores rely on. Shared links
// get no TTL index so an expired token can still be told apart from an
// unknown one.
func MigrateMongo(ctx context.Context, db *mongo.Database) error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}
	indexes := map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		"records": {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "uploadDate", Value: -1}}},
		},
		"notifications": {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		"sharedlinks": {
			{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for col, models := range indexes {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("indexes on %s: %w", col, err)
		}
	}
	log.Printf("[MIGRATE][MONGO] indexes ensured on %d collections", len(indexes))
	return nil
}
