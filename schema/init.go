// Package schema: safe database initialization for the MySQL session store. Creates only missing
// tables and columns, never drops or overwrites.
package schema

import (
	"database/sql"
	"log"
)

const tableSessionKV = "session_kv"

// InitializeDatabase ensures the session_kv table exists and carries every column the store uses.
// Does not drop or recreate tables; does not remove data.
func InitializeDatabase(db *sql.DB) {
	if exists, err := tableExists(db, tableSessionKV); err != nil {
		log.Fatalf("[SCHEMA] Failed to check if table %s exists: %v", tableSessionKV, err)
	} else if exists {
		log.Println("[SCHEMA] session_kv table exists")
		ensureColumn(db, tableSessionKV, "updated_at", "TIMESTAMP NULL COMMENT 'Last write (UTC)'")
	} else {
		createSessionKVTable(db)
		log.Println("[SCHEMA] created session_kv table")
	}
}

func createSessionKVTable(db *sql.DB) {
	q := `
CREATE TABLE IF NOT EXISTS session_kv (
    kv_key VARCHAR(64) PRIMARY KEY COMMENT 'Session key, e.g. @mode',
    kv_value TEXT NOT NULL COMMENT 'Stored value',
    updated_at TIMESTAMP NULL COMMENT 'Last write (UTC)'
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
	if _, err := db.Exec(q); err != nil {
		log.Fatalf("[SCHEMA] Failed to create table %s: %v", tableSessionKV, err)
	}
}

func tableExists(db *sql.DB, table string) (bool, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`,
		table,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func ensureColumn(db *sql.DB, table, column, spec string) {
	exists, err := columnExists(db, table, column)
	if err != nil {
		log.Fatalf("[SCHEMA] Failed to check column %s.%s: %v", table, column, err)
	}
	if exists {
		return
	}
	if _, err := db.Exec("ALTER TABLE " + table + " ADD COLUMN " + column + " " + spec); err != nil {
		log.Fatalf("[SCHEMA] Failed to add column %s.%s: %v", table, column, err)
	}
	log.Printf("[SCHEMA] added column %s.%s", table, column)
}
