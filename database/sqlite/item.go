package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/finchmedia/finch-server/database/model"
)

type itemRow struct {
	ID           string  `db:"id"`
	Name         string  `db:"name"`
	Kind         string  `db:"kind"`
	Genres       string  `db:"genres"`
	Rating       float32 `db:"rating"`
	Year         int     `db:"year"`
	DateCreated  string  `db:"datecreated"`
	DateModified string  `db:"datemodified"`
}

// SaveItems replaces the item projection wholesale, mirroring how scans
// replace the in-memory library.
func (r *Repo) SaveItems(ctx context.Context, items []model.Item) error {
	tx, err := r.write.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return err
	}
	for _, it := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO items
			 (id, name, kind, genres, rating, year, datecreated, datemodified)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, it.Name, it.Kind, it.Genres, it.Rating, it.Year,
			stamp(it.DateCreated), stamp(it.DateModified))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetItem reads one projected item row.
func (r *Repo) GetItem(ctx context.Context, id string) (*model.Item, error) {
	var row itemRow
	err := r.read.GetContext(ctx, &row,
		`SELECT id, name, kind, genres, rating, year, datecreated, datemodified
		 FROM items WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &model.Item{
		ID:           row.ID,
		Name:         row.Name,
		Kind:         row.Kind,
		Genres:       row.Genres,
		Rating:       row.Rating,
		Year:         row.Year,
		DateCreated:  unstamp(row.DateCreated),
		DateModified: unstamp(row.DateModified),
	}, nil
}
