package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/finchmedia/finch-server/database/model"
)

type userRow struct {
	ID       string `db:"id"`
	Username string `db:"username"`
	Password string `db:"password"`
	Created  string `db:"created"`
	LastSeen string `db:"lastseen"`
}

func (u userRow) model() *model.User {
	return &model.User{
		ID:       u.ID,
		Username: u.Username,
		Password: u.Password,
		Created:  unstamp(u.Created),
		LastSeen: unstamp(u.LastSeen),
	}
}

const selectUser = `SELECT id, username, password, created, lastseen FROM users`

// GetUser looks an account up by username.
func (r *Repo) GetUser(ctx context.Context, username string) (*model.User, error) {
	var row userRow
	err := r.read.GetContext(ctx, &row, selectUser+` WHERE username = ?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.model(), nil
}

// GetUserByID looks an account up by id.
func (r *Repo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var row userRow
	err := r.read.GetContext(ctx, &row, selectUser+` WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.model(), nil
}

// GetAllUsers returns every account.
func (r *Repo) GetAllUsers(ctx context.Context) ([]model.User, error) {
	var rows []userRow
	if err := r.read.SelectContext(ctx, &rows, selectUser+` ORDER BY username`); err != nil {
		return nil, err
	}
	users := make([]model.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, *row.model())
	}
	return users, nil
}

// UpsertUser creates or replaces an account.
func (r *Repo) UpsertUser(ctx context.Context, u *model.User) error {
	_, err := r.write.ExecContext(ctx,
		`INSERT OR REPLACE INTO users (id, username, password, created, lastseen)
		 VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Password, stamp(u.Created), stamp(u.LastSeen))
	return err
}

// DeleteUser removes an account. Tokens and play state are left behind;
// they reference the dead id harmlessly.
func (r *Repo) DeleteUser(ctx context.Context, id string) error {
	_, err := r.write.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}
