package store

import (
	"database/sql"
	"fmt"
)

// migrate applies the base schema and then the one-time hour-column
// upgrade. Safe to run on every startup.
func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL DEFAULT '',
		date       TEXT NOT NULL DEFAULT '',
		note       TEXT NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS students (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL,
		grp        TEXT NOT NULL,
		course     INTEGER NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL REFERENCES students(id),
		date       TEXT NOT NULL,
		hour       INTEGER NOT NULL DEFAULT -1,
		status     TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance(student_id);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	if err := upgradeAttendanceHour(db); err != nil {
		return err
	}
	_, err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_key ON attendance(student_id, date, hour)`)
	return err
}

// upgradeAttendanceHour brings databases written before per-hour marks
// up to the current shape: adds the hour column with the whole-day
// default and retires the old (student_id, date) unique index.
// Column presence is checked first so the step is idempotent.
func upgradeAttendanceHour(db *sql.DB) error {
	hasHour, err := columnExists(db, "attendance", "hour")
	if err != nil {
		return err
	}
	if hasHour {
		return nil
	}
	if _, err := db.Exec(`ALTER TABLE attendance ADD COLUMN hour INTEGER NOT NULL DEFAULT -1`); err != nil {
		return fmt.Errorf("add hour column: %w", err)
	}
	if _, err := db.Exec(`DROP INDEX IF EXISTS idx_attendance_student_date`); err != nil {
		return fmt.Errorf("drop legacy index: %w", err)
	}
	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
