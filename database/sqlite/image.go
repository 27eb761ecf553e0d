package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/finchmedia/finch-server/database/model"
)

type imageRow struct {
	MimeType string `db:"mimetype"`
	ETag     string `db:"etag"`
	Updated  string `db:"updated"`
	FileSize int64  `db:"filesize"`
}

func (i imageRow) meta() model.ImageMetadata {
	return model.ImageMetadata{
		MimeType: i.MimeType,
		ETag:     i.ETag,
		Size:     i.FileSize,
		Updated:  unstamp(i.Updated),
	}
}

// HasImage reports whether custom artwork exists, without the blob.
func (r *Repo) HasImage(ctx context.Context, itemID, imageType string) (model.ImageMetadata, error) {
	var row imageRow
	err := r.read.GetContext(ctx, &row,
		`SELECT mimetype, etag, updated, filesize FROM images WHERE itemid = ? AND type = ?`,
		itemID, imageType)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ImageMetadata{}, model.ErrNotFound
	}
	if err != nil {
		return model.ImageMetadata{}, err
	}
	return row.meta(), nil
}

// GetImage returns custom artwork and its metadata.
func (r *Repo) GetImage(ctx context.Context, itemID, imageType string) (model.ImageMetadata, []byte, error) {
	var row struct {
		imageRow
		Data []byte `db:"data"`
	}
	err := r.read.GetContext(ctx, &row,
		`SELECT mimetype, etag, updated, filesize, data FROM images WHERE itemid = ? AND type = ?`,
		itemID, imageType)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ImageMetadata{}, nil, model.ErrNotFound
	}
	if err != nil {
		return model.ImageMetadata{}, nil, err
	}
	return row.meta(), row.Data, nil
}

// StoreImage saves custom artwork for an item.
func (r *Repo) StoreImage(ctx context.Context, itemID, imageType string, meta model.ImageMetadata, data []byte) error {
	if meta.Updated.IsZero() {
		meta.Updated = time.Now()
	}
	_, err := r.write.ExecContext(ctx,
		`INSERT OR REPLACE INTO images (itemid, type, mimetype, etag, updated, filesize, data)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		itemID, imageType, meta.MimeType, meta.ETag, stamp(meta.Updated), int64(len(data)), data)
	return err
}

// DeleteImage removes custom artwork.
func (r *Repo) DeleteImage(ctx context.Context, itemID, imageType string) error {
	_, err := r.write.ExecContext(ctx,
		`DELETE FROM images WHERE itemid = ? AND type = ?`, itemID, imageType)
	return err
}
