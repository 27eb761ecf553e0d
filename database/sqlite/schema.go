package sqlite

import "github.com/jmoiron/sqlx"

// initSchema creates anything missing; safe to run on every start.
func initSchema(db *sqlx.DB) error {
	statements := []string{
		// WAL keeps readers unblocked while the writer commits.
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,

		`CREATE TABLE IF NOT EXISTS users (
id TEXT NOT NULL PRIMARY KEY,
username TEXT NOT NULL,
password TEXT NOT NULL,
created TEXT,
lastseen TEXT);`,

		`CREATE UNIQUE INDEX IF NOT EXISTS users_username_idx ON users (username);`,

		`CREATE TABLE IF NOT EXISTS accesstokens (
token TEXT NOT NULL PRIMARY KEY,
userid TEXT NOT NULL,
deviceid TEXT,
devicename TEXT,
appname TEXT,
appversion TEXT,
created TEXT,
lastused TEXT);`,

		`CREATE INDEX IF NOT EXISTS accesstokens_userid_idx ON accesstokens (userid);`,

		`CREATE TABLE IF NOT EXISTS items (
id TEXT NOT NULL PRIMARY KEY,
name TEXT NOT NULL,
kind TEXT NOT NULL,
genres TEXT NOT NULL DEFAULT '',
rating REAL,
year INTEGER,
datecreated TEXT,
datemodified TEXT);`,

		`CREATE TABLE IF NOT EXISTS playstate (
userid TEXT NOT NULL,
itemid TEXT NOT NULL,
position INTEGER NOT NULL DEFAULT 0,
playedpercentage REAL NOT NULL DEFAULT 0,
playcount INTEGER NOT NULL DEFAULT 0,
played BOOLEAN NOT NULL DEFAULT 0,
favorite BOOLEAN NOT NULL DEFAULT 0,
updated TEXT,
PRIMARY KEY (userid, itemid));`,

		`CREATE TABLE IF NOT EXISTS playlist (
id TEXT NOT NULL PRIMARY KEY,
userid TEXT NOT NULL,
name TEXT NOT NULL,
created TEXT);`,

		`CREATE TABLE IF NOT EXISTS playlist_item (
playlistid TEXT NOT NULL,
itemid TEXT NOT NULL,
itemorder INTEGER NOT NULL,
created TEXT,
PRIMARY KEY (playlistid, itemid),
FOREIGN KEY (playlistid) REFERENCES playlist(id) ON DELETE CASCADE);`,

		`CREATE TABLE IF NOT EXISTS quickconnect (
secret TEXT NOT NULL PRIMARY KEY,
code TEXT NOT NULL,
deviceid TEXT,
userid TEXT,
authorized BOOLEAN NOT NULL DEFAULT 0,
created TEXT);`,

		`CREATE TABLE IF NOT EXISTS images (
itemid TEXT NOT NULL,
type TEXT NOT NULL,
mimetype TEXT NOT NULL,
etag TEXT NOT NULL,
updated TEXT,
filesize INTEGER NOT NULL,
data BLOB NOT NULL,
PRIMARY KEY (itemid, type));`,
	}

	for _, s := range statements {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
