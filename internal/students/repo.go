package students

import (
	"context"
	"database/sql"

	"classtrack/internal/apperr"
	"classtrack/internal/model"
	"classtrack/internal/store"
)

// Repository persists students in SQLite.
type Repository struct {
	db *store.DB
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

const studentColumns = `id, name, grp, course, created_at`

func scanStudent(dst *model.Student) func(*sql.Row) error {
	return func(row *sql.Row) error {
		return row.Scan(&dst.ID, &dst.Name, &dst.Group, &dst.Course, &dst.CreatedAt)
	}
}

// List returns all students ordered by name.
func (r *Repository) List(ctx context.Context) ([]model.Student, error) {
	students := []model.Student{}
	err := r.db.QueryMany(ctx,
		`SELECT `+studentColumns+` FROM students ORDER BY name ASC`,
		func(rows *sql.Rows) error {
			var st model.Student
			if err := rows.Scan(&st.ID, &st.Name, &st.Group, &st.Course, &st.CreatedAt); err != nil {
				return err
			}
			students = append(students, st)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return students, nil
}

// Get returns one student, or nil when the id is unknown.
func (r *Repository) Get(ctx context.Context, id int64) (*model.Student, error) {
	var st model.Student
	found, err := r.db.QueryOne(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = ?`,
		scanStudent(&st), id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &st, nil
}

// Insert writes a new student and re-fetches it so store-assigned id
// and timestamp come back normalized.
func (r *Repository) Insert(ctx context.Context, name, group string, course int) (*model.Student, error) {
	res, err := r.db.Execute(ctx,
		`INSERT INTO students (name, grp, course) VALUES (?, ?, ?)`,
		name, group, course)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, res.LastInsertID)
}

// Delete removes the student and all their marks, marks first. SQLite
// has no cascade on this schema, so ordering matters.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM attendance WHERE student_id = ?`, id); err != nil {
			return apperr.Store("delete marks", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id); err != nil {
			return apperr.Store("delete student", err)
		}
		return nil
	})
}
