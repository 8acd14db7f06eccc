package attendance

import (
	"context"
	"database/sql"

	"classtrack/internal/model"
	"classtrack/internal/store"
)

// Repository persists attendance marks in SQLite.
type Repository struct {
	db *store.DB
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

// ListAll returns every mark, newest dates first, then student, then hour.
func (r *Repository) ListAll(ctx context.Context) ([]model.Mark, error) {
	marks := []model.Mark{}
	err := r.db.QueryMany(ctx,
		`SELECT student_id, date, hour, status, created_at
		 FROM attendance
		 ORDER BY date DESC, student_id, hour`,
		func(rows *sql.Rows) error {
			var m model.Mark
			if err := rows.Scan(&m.StudentID, &m.Date, &m.Hour, &m.Status, &m.CreatedAt); err != nil {
				return err
			}
			marks = append(marks, m)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return marks, nil
}

// Find looks up a mark by its natural key. The whole-day sentinel is an
// ordinary hour value here, so a whole-day row never matches an hourly
// one and vice versa.
func (r *Repository) Find(ctx context.Context, studentID int64, date string, hour int) (*model.Mark, error) {
	var m model.Mark
	found, err := r.db.QueryOne(ctx,
		`SELECT student_id, date, hour, status, created_at
		 FROM attendance WHERE student_id = ? AND date = ? AND hour = ?`,
		func(row *sql.Row) error {
			return row.Scan(&m.StudentID, &m.Date, &m.Hour, &m.Status, &m.CreatedAt)
		},
		studentID, date, hour)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &m, nil
}

// Insert writes a new mark. A concurrent writer to the same key loses
// to the unique index and gets a StoreError.
func (r *Repository) Insert(ctx context.Context, studentID int64, date string, hour int, status string) error {
	_, err := r.db.Execute(ctx,
		`INSERT INTO attendance (student_id, date, hour, status) VALUES (?, ?, ?, ?)`,
		studentID, date, hour, status)
	return err
}

// UpdateStatus rewrites the status of an existing mark in place.
func (r *Repository) UpdateStatus(ctx context.Context, studentID int64, date string, hour int, status string) error {
	_, err := r.db.Execute(ctx,
		`UPDATE attendance SET status = ? WHERE student_id = ? AND date = ? AND hour = ?`,
		status, studentID, date, hour)
	return err
}
