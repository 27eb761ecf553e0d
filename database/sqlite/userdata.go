package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/finchmedia/finch-server/database/model"
)

type userDataRow struct {
	UserID           string  `db:"userid"`
	ItemID           string  `db:"itemid"`
	Position         int64   `db:"position"`
	PlayedPercentage float64 `db:"playedpercentage"`
	PlayCount        int     `db:"playcount"`
	Played           bool    `db:"played"`
	Favorite         bool    `db:"favorite"`
	Updated          string  `db:"updated"`
}

func (u userDataRow) model() model.UserData {
	return model.UserData{
		UserID:           u.UserID,
		ItemID:           u.ItemID,
		Position:         u.Position,
		PlayedPercentage: u.PlayedPercentage,
		PlayCount:        u.PlayCount,
		Played:           u.Played,
		Favorite:         u.Favorite,
		Updated:          unstamp(u.Updated),
	}
}

// GetUserData returns the play state of one item for one user,
// model.ErrNotFound when the user never touched the item.
func (r *Repo) GetUserData(ctx context.Context, userID, itemID string) (*model.UserData, error) {
	key := userDataKey{userID: userID, itemID: itemID}

	r.mu.RLock()
	if d, ok := r.userData[key]; ok {
		r.mu.RUnlock()
		return &d, nil
	}
	r.mu.RUnlock()

	var row userDataRow
	err := r.read.GetContext(ctx, &row,
		`SELECT userid, itemid, position, playedpercentage, playcount, played, favorite, updated
		 FROM playstate WHERE userid = ? AND itemid = ?`, userID, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	d := row.model()
	r.mu.Lock()
	r.userData[key] = d
	r.mu.Unlock()
	return &d, nil
}

// UpsertUserData persists play state immediately and keeps the cache in
// step, so the write is visible to every subsequent read. Progress
// updates must not be deferred: a failed write here is surfaced, not
// swallowed.
func (r *Repo) UpsertUserData(ctx context.Context, d model.UserData) error {
	_, err := r.write.ExecContext(ctx,
		`INSERT OR REPLACE INTO playstate
		 (userid, itemid, position, playedpercentage, playcount, played, favorite, updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.UserID, d.ItemID, d.Position, d.PlayedPercentage, d.PlayCount,
		d.Played, d.Favorite, stamp(d.Updated))
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.userData[userDataKey{userID: d.UserID, itemID: d.ItemID}] = d
	r.mu.Unlock()
	return nil
}

// GetResumeItems returns partially watched items, furthest-in first.
func (r *Repo) GetResumeItems(ctx context.Context, userID string, limit int) ([]model.UserData, error) {
	q := `SELECT userid, itemid, position, playedpercentage, playcount, played, favorite, updated
	      FROM playstate WHERE userid = ? AND position > 0 AND played != 1
	      ORDER BY position DESC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []userDataRow
	if err := r.read.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, model.ErrNotFound
	}
	out := make([]model.UserData, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out, nil
}

// GetPlayedItems returns ids of items the user has fully played.
func (r *Repo) GetPlayedItems(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.read.SelectContext(ctx, &ids,
		`SELECT itemid FROM playstate WHERE userid = ? AND played = 1`, userID)
	return ids, err
}

// GetFavoriteItems returns ids of the user's favorites.
func (r *Repo) GetFavoriteItems(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.read.SelectContext(ctx, &ids,
		`SELECT itemid FROM playstate WHERE userid = ? AND favorite = 1`, userID)
	return ids, err
}
