// Package entries keeps the legacy freeform records alive for old
// clients. No relational ties to students or marks; every mutation
// broadcasts a bare refresh signal.
package entries

import (
	"context"
	"database/sql"

	"classtrack/internal/model"
	"classtrack/internal/store"
)

// Repository persists legacy entries in SQLite.
type Repository struct {
	db *store.DB
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

const entryColumns = `id, name, date, note, updated_at`

// List returns all entries, newest first.
func (r *Repository) List(ctx context.Context) ([]model.Entry, error) {
	entries := []model.Entry{}
	err := r.db.QueryMany(ctx,
		`SELECT `+entryColumns+` FROM entries ORDER BY id DESC`,
		func(rows *sql.Rows) error {
			var e model.Entry
			if err := rows.Scan(&e.ID, &e.Name, &e.Date, &e.Note, &e.UpdatedAt); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Get returns one entry, or nil when the id is unknown.
func (r *Repository) Get(ctx context.Context, id int64) (*model.Entry, error) {
	var e model.Entry
	found, err := r.db.QueryOne(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = ?`,
		func(row *sql.Row) error {
			return row.Scan(&e.ID, &e.Name, &e.Date, &e.Note, &e.UpdatedAt)
		}, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &e, nil
}

// Insert writes a new entry and re-fetches it.
func (r *Repository) Insert(ctx context.Context, name, date, note string) (*model.Entry, error) {
	res, err := r.db.Execute(ctx,
		`INSERT INTO entries (name, date, note) VALUES (?, ?, ?)`,
		name, date, note)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, res.LastInsertID)
}

// Update rewrites an entry in place and bumps updated_at.
func (r *Repository) Update(ctx context.Context, id int64, name, date, note string) (*model.Entry, error) {
	_, err := r.db.Execute(ctx,
		`UPDATE entries SET name = ?, date = ?, note = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, date, note, id)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Delete removes an entry.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Execute(ctx, `DELETE FROM entries WHERE id = ?`, id)
	return err
}
