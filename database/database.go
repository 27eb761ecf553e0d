// Package database defines the persistence interfaces for user state.
// The library itself is never persisted here; scans rebuild it from the
// filesystem.
package database

import (
	"context"
	"fmt"

	"github.com/finchmedia/finch-server/database/model"
	"github.com/finchmedia/finch-server/database/sqlite"
)

// Repository aggregates every store the HTTP surfaces need.
type Repository interface {
	UserRepo
	AccessTokenRepo
	UserDataRepo
	PlaylistRepo
	ItemRepo
	QuickConnectRepo
	ImageRepo

	// StartBackground launches the token-cache flusher; it stops when
	// ctx is canceled.
	StartBackground(ctx context.Context)
	Close() error
}

// UserRepo stores accounts.
type UserRepo interface {
	GetUser(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetAllUsers(ctx context.Context) ([]model.User, error)
	UpsertUser(ctx context.Context, u *model.User) error
	DeleteUser(ctx context.Context, id string) error
}

// AccessTokenRepo stores client sessions. Upserts land in an in-memory
// cache and reach the database on the next flush; reads see them
// immediately.
type AccessTokenRepo interface {
	GetAccessToken(ctx context.Context, token string) (*model.AccessToken, error)
	GetAccessTokens(ctx context.Context, userID string) ([]model.AccessToken, error)
	UpsertAccessToken(ctx context.Context, t model.AccessToken) error
	DeleteAccessToken(ctx context.Context, token string) error
}

// UserDataRepo stores play state. Writes go through to the database
// immediately and are visible to all subsequent reads.
type UserDataRepo interface {
	GetUserData(ctx context.Context, userID, itemID string) (*model.UserData, error)
	UpsertUserData(ctx context.Context, d model.UserData) error
	// GetResumeItems returns items with a nonzero position that are not
	// played, highest position first. model.ErrNotFound when there are
	// none.
	GetResumeItems(ctx context.Context, userID string, limit int) ([]model.UserData, error)
	// GetPlayedItems returns the ids of fully played items.
	GetPlayedItems(ctx context.Context, userID string) ([]string, error)
	// GetFavoriteItems returns the ids of favorite items.
	GetFavoriteItems(ctx context.Context, userID string) ([]string, error)
}

// PlaylistRepo stores user playlists and their ordered membership.
type PlaylistRepo interface {
	CreatePlaylist(ctx context.Context, p model.Playlist) (string, error)
	GetPlaylist(ctx context.Context, playlistID string) (*model.Playlist, error)
	GetPlaylists(ctx context.Context, userID string) ([]model.Playlist, error)
	DeletePlaylist(ctx context.Context, playlistID string) error
	AddItemToPlaylist(ctx context.Context, playlistID, itemID string) error
	RemoveItemFromPlaylist(ctx context.Context, playlistID, itemID string) error
	// GetPlaylistItems returns item ids by playlist order.
	GetPlaylistItems(ctx context.Context, playlistID string) ([]string, error)
}

// ItemRepo stores the thin item projection written after every scan.
type ItemRepo interface {
	SaveItems(ctx context.Context, items []model.Item) error
	GetItem(ctx context.Context, id string) (*model.Item, error)
}

// QuickConnectRepo stores quick-connect sign-in attempts.
type QuickConnectRepo interface {
	UpsertQuickConnect(ctx context.Context, qc model.QuickConnect) error
	GetQuickConnectBySecret(ctx context.Context, secret string) (*model.QuickConnect, error)
	GetQuickConnectByCode(ctx context.Context, code string) (*model.QuickConnect, error)
	DeleteQuickConnect(ctx context.Context, secret string) error
}

// ImageRepo stores uploaded custom artwork, distinct from the artwork
// scanned off the filesystem.
type ImageRepo interface {
	HasImage(ctx context.Context, itemID, imageType string) (model.ImageMetadata, error)
	GetImage(ctx context.Context, itemID, imageType string) (model.ImageMetadata, []byte, error)
	StoreImage(ctx context.Context, itemID, imageType string, meta model.ImageMetadata, data []byte) error
	DeleteImage(ctx context.Context, itemID, imageType string) error
}

// New opens a repository. Only sqlite exists today.
func New(kind string, options any) (Repository, error) {
	switch kind {
	case "sqlite":
		switch v := options.(type) {
		case sqlite.Config:
			return sqlite.New(&v)
		case *sqlite.Config:
			return sqlite.New(v)
		}
		return nil, fmt.Errorf("invalid sqlite configuration")
	default:
		return nil, fmt.Errorf("unknown database type %q", kind)
	}
}
