package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/finchmedia/finch-server/database/model"
)

type playlistRow struct {
	ID      string `db:"id"`
	UserID  string `db:"userid"`
	Name    string `db:"name"`
	Created string `db:"created"`
}

func (p playlistRow) model() *model.Playlist {
	return &model.Playlist{
		ID:      p.ID,
		UserID:  p.UserID,
		Name:    p.Name,
		Created: unstamp(p.Created),
	}
}

// CreatePlaylist stores a new playlist and returns its id.
func (r *Repo) CreatePlaylist(ctx context.Context, p model.Playlist) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Created.IsZero() {
		p.Created = time.Now()
	}
	_, err := r.write.ExecContext(ctx,
		`INSERT INTO playlist (id, userid, name, created) VALUES (?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, stamp(p.Created))
	if err != nil {
		return "", err
	}
	for _, itemID := range p.ItemIDs {
		if err := r.AddItemToPlaylist(ctx, p.ID, itemID); err != nil {
			return "", err
		}
	}
	return p.ID, nil
}

// GetPlaylist returns one playlist including its ordered item ids.
func (r *Repo) GetPlaylist(ctx context.Context, playlistID string) (*model.Playlist, error) {
	var row playlistRow
	err := r.read.GetContext(ctx, &row,
		`SELECT id, userid, name, created FROM playlist WHERE id = ?`, playlistID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p := row.model()
	if p.ItemIDs, err = r.GetPlaylistItems(ctx, playlistID); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPlaylists returns a user's playlists without membership.
func (r *Repo) GetPlaylists(ctx context.Context, userID string) ([]model.Playlist, error) {
	var rows []playlistRow
	err := r.read.SelectContext(ctx, &rows,
		`SELECT id, userid, name, created FROM playlist WHERE userid = ? ORDER BY created`, userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Playlist, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.model())
	}
	return out, nil
}

// DeletePlaylist removes a playlist; membership rows cascade.
func (r *Repo) DeletePlaylist(ctx context.Context, playlistID string) error {
	_, err := r.write.ExecContext(ctx, `DELETE FROM playlist WHERE id = ?`, playlistID)
	return err
}

// AddItemToPlaylist appends an item, ordered after everything already
// in the playlist.
func (r *Repo) AddItemToPlaylist(ctx context.Context, playlistID, itemID string) error {
	var next int
	err := r.read.GetContext(ctx, &next,
		`SELECT COALESCE(MAX(itemorder) + 1, 0) FROM playlist_item WHERE playlistid = ?`,
		playlistID)
	if err != nil {
		return err
	}
	_, err = r.write.ExecContext(ctx,
		`INSERT OR REPLACE INTO playlist_item (playlistid, itemid, itemorder, created)
		 VALUES (?, ?, ?, ?)`,
		playlistID, itemID, next, stamp(time.Now()))
	return err
}

// RemoveItemFromPlaylist drops one item; the order of the remaining
// items keeps its gaps, which is fine for ordering purposes.
func (r *Repo) RemoveItemFromPlaylist(ctx context.Context, playlistID, itemID string) error {
	_, err := r.write.ExecContext(ctx,
		`DELETE FROM playlist_item WHERE playlistid = ? AND itemid = ?`, playlistID, itemID)
	return err
}

// GetPlaylistItems returns a playlist's item ids in playlist order.
func (r *Repo) GetPlaylistItems(ctx context.Context, playlistID string) ([]string, error) {
	var ids []string
	err := r.read.SelectContext(ctx, &ids,
		`SELECT itemid FROM playlist_item WHERE playlistid = ? ORDER BY itemorder`, playlistID)
	return ids, err
}
