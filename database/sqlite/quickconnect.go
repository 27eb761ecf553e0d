package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/finchmedia/finch-server/database/model"
)

type quickConnectRow struct {
	Secret     string `db:"secret"`
	Code       string `db:"code"`
	DeviceID   string `db:"deviceid"`
	UserID     string `db:"userid"`
	Authorized bool   `db:"authorized"`
	Created    string `db:"created"`
}

func (q quickConnectRow) model() *model.QuickConnect {
	return &model.QuickConnect{
		Secret:     q.Secret,
		Code:       q.Code,
		DeviceID:   q.DeviceID,
		UserID:     q.UserID,
		Authorized: q.Authorized,
		Created:    unstamp(q.Created),
	}
}

const selectQuickConnect = `SELECT secret, code, deviceid, userid, authorized, created FROM quickconnect`

// UpsertQuickConnect stores a quick-connect attempt keyed by secret.
func (r *Repo) UpsertQuickConnect(ctx context.Context, qc model.QuickConnect) error {
	_, err := r.write.ExecContext(ctx,
		`INSERT OR REPLACE INTO quickconnect (secret, code, deviceid, userid, authorized, created)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		qc.Secret, qc.Code, qc.DeviceID, qc.UserID, qc.Authorized, stamp(qc.Created))
	return err
}

// GetQuickConnectBySecret resolves the state the initiating client polls.
func (r *Repo) GetQuickConnectBySecret(ctx context.Context, secret string) (*model.QuickConnect, error) {
	var row quickConnectRow
	err := r.read.GetContext(ctx, &row, selectQuickConnect+` WHERE secret = ?`, secret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.model(), nil
}

// GetQuickConnectByCode resolves the code an already signed-in client
// authorizes.
func (r *Repo) GetQuickConnectByCode(ctx context.Context, code string) (*model.QuickConnect, error) {
	var row quickConnectRow
	err := r.read.GetContext(ctx, &row, selectQuickConnect+` WHERE code = ?`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.model(), nil
}

// DeleteQuickConnect removes an attempt once consumed.
func (r *Repo) DeleteQuickConnect(ctx context.Context, secret string) error {
	_, err := r.write.ExecContext(ctx, `DELETE FROM quickconnect WHERE secret = ?`, secret)
	return err
}
