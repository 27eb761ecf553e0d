package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/finchmedia/finch-server/database/model"
)

type tokenRow struct {
	Token      string `db:"token"`
	UserID     string `db:"userid"`
	DeviceID   string `db:"deviceid"`
	DeviceName string `db:"devicename"`
	AppName    string `db:"appname"`
	AppVersion string `db:"appversion"`
	Created    string `db:"created"`
	LastUsed   string `db:"lastused"`
}

func (t tokenRow) model() *model.AccessToken {
	return &model.AccessToken{
		Token:      t.Token,
		UserID:     t.UserID,
		DeviceID:   t.DeviceID,
		DeviceName: t.DeviceName,
		AppName:    t.AppName,
		AppVersion: t.AppVersion,
		Created:    unstamp(t.Created),
		LastUsed:   unstamp(t.LastUsed),
	}
}

// GetAccessToken resolves a token, preferring the cache. Misses load
// from the database and populate the cache.
func (r *Repo) GetAccessToken(ctx context.Context, token string) (*model.AccessToken, error) {
	r.mu.RLock()
	if t, ok := r.tokens[token]; ok {
		copied := *t
		r.mu.RUnlock()
		return &copied, nil
	}
	r.mu.RUnlock()

	var row tokenRow
	err := r.read.GetContext(ctx, &row,
		`SELECT token, userid, deviceid, devicename, appname, appversion, created, lastused
		 FROM accesstokens WHERE token = ?`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	t := row.model()
	r.mu.Lock()
	r.tokens[token] = t
	r.mu.Unlock()

	copied := *t
	return &copied, nil
}

// GetAccessTokens returns every session of a user. The cache is flushed
// first so recent logins are included.
func (r *Repo) GetAccessTokens(ctx context.Context, userID string) ([]model.AccessToken, error) {
	r.flushTokens(ctx)

	var rows []tokenRow
	err := r.read.SelectContext(ctx, &rows,
		`SELECT token, userid, deviceid, devicename, appname, appversion, created, lastused
		 FROM accesstokens WHERE userid = ? ORDER BY created`, userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.AccessToken, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.model())
	}
	return out, nil
}

// UpsertAccessToken records a token in the cache only; the flusher makes
// it durable within tokenFlushInterval.
func (r *Repo) UpsertAccessToken(ctx context.Context, t model.AccessToken) error {
	r.mu.Lock()
	r.tokens[t.Token] = &t
	r.mu.Unlock()
	return nil
}

// DeleteAccessToken removes a token from the cache and the database.
func (r *Repo) DeleteAccessToken(ctx context.Context, token string) error {
	r.mu.Lock()
	delete(r.tokens, token)
	r.mu.Unlock()

	_, err := r.write.ExecContext(ctx, `DELETE FROM accesstokens WHERE token = ?`, token)
	return err
}

// flushTokens writes the whole cache through. Failures are logged and
// retried on the next tick; the cache entries stay.
func (r *Repo) flushTokens(ctx context.Context) {
	r.mu.RLock()
	snapshot := make([]model.AccessToken, 0, len(r.tokens))
	for _, t := range r.tokens {
		snapshot = append(snapshot, *t)
	}
	r.mu.RUnlock()

	for _, t := range snapshot {
		_, err := r.write.ExecContext(ctx,
			`INSERT OR REPLACE INTO accesstokens
			 (token, userid, deviceid, devicename, appname, appversion, created, lastused)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.Token, t.UserID, t.DeviceID, t.DeviceName, t.AppName, t.AppVersion,
			stamp(t.Created), stamp(t.LastUsed))
		if err != nil {
			log.Printf("token flush: %v", err)
			return
		}
	}
}

func (r *Repo) tokenFlusher(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			r.flushTokens(context.Background())
			return
		case <-t.C:
			r.flushTokens(ctx)
		}
	}
}
