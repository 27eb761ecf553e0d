// Package model holds the persisted types and the sentinel errors of
// the user-state store.
package model

import (
	"errors"
	"time"
)

var (
	ErrNoConfiguration = errors.New("database not configured")
	ErrNotFound        = errors.New("not found")
	ErrInvalidPassword = errors.New("invalid password")
)

// User is an account. Password holds a bcrypt hash, or is empty for
// accounts created by auto-registration without a password.
type User struct {
	ID       string
	Username string
	Password string
	Created  time.Time
	LastSeen time.Time
}

// AccessToken authenticates one client session.
type AccessToken struct {
	Token      string
	UserID     string
	DeviceID   string
	DeviceName string
	AppName    string
	AppVersion string
	Created    time.Time
	LastUsed   time.Time
}

// UserData is the per-user play state of one item. Orphaned rows (their
// item no longer in the library) are harmless and never deleted.
type UserData struct {
	UserID string
	ItemID string
	// Position in 100ns ticks; 0 means not started.
	Position         int64
	PlayedPercentage float64
	PlayCount        int
	Played           bool
	Favorite         bool
	Updated          time.Time
}

// Playlist is an ordered list of item ids owned by one user.
type Playlist struct {
	ID      string
	UserID  string
	Name    string
	Created time.Time
	// ItemIDs in playlist order; populated on full reads only.
	ItemIDs []string
}

// Item is the thin library projection kept in the database for the few
// endpoints that read item facts without the in-memory graph.
type Item struct {
	ID           string
	Name         string
	Kind         string
	Genres       string
	Rating       float32
	Year         int
	DateCreated  time.Time
	DateModified time.Time
}

// QuickConnect is one pending or authorized quick-connect attempt.
type QuickConnect struct {
	Secret     string
	Code       string
	DeviceID   string
	UserID     string
	Authorized bool
	Created    time.Time
}

// ImageMetadata describes a stored custom artwork blob.
type ImageMetadata struct {
	MimeType string
	ETag     string
	Size     int64
	Updated  time.Time
}
