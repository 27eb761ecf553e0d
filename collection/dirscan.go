package collection

import (
	"os"
	"path/filepath"
	"time"

	"github.com/djherbis/times"
)

// dir wraps os.File to return directory entries decorated with a cross-platform
// creation time, since os.FileInfo alone has no portable birth time.
type dir struct {
	f    *os.File
	path string
}

// OpenDir opens a directory for scanning.
func OpenDir(path string) (*dir, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &dir{f: f, path: path}, nil
}

func (d *dir) Close() error {
	return d.f.Close()
}

// Readdir returns the directory entries, decorated with Createtime().
func (d *dir) Readdir(n int) ([]dirEntry, error) {
	fi, err := d.f.Readdir(n)
	if err != nil && len(fi) == 0 {
		return nil, err
	}
	entries := make([]dirEntry, len(fi))
	for i, e := range fi {
		entries[i] = dirEntry{FileInfo: e, fullPath: filepath.Join(d.path, e.Name())}
	}
	return entries, nil
}

// dirEntry is an os.FileInfo with an added Createtime accessor.
type dirEntry struct {
	os.FileInfo
	fullPath string
}

// Createtime returns the entry's birth time if the platform exposes one,
// falling back to its inode change time, and to its modification time
// when neither is available.
func (e dirEntry) Createtime() time.Time {
	t, err := times.Stat(e.fullPath)
	if err != nil {
		return e.ModTime()
	}
	if t.HasBirthTime() {
		return t.BirthTime()
	}
	if t.HasChangeTime() {
		return t.ChangeTime()
	}
	return t.ModTime()
}
