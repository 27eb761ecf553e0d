package imageresize

import (
	"bytes"
	"io/fs"
	"os"
	"time"
)

// blobFile adapts an in-memory byte slice to http.File, used as a fallback
// when a resized image cannot be written to the cache directory.
type blobFile struct {
	*bytes.Reader
	info blobFileInfo
}

func newBlobFile(blob []byte, src os.FileInfo) *blobFile {
	return &blobFile{
		Reader: bytes.NewReader(blob),
		info: blobFileInfo{
			name:    src.Name(),
			size:    int64(len(blob)),
			mode:    src.Mode(),
			modTime: src.ModTime(),
		},
	}
}

func (b *blobFile) Close() error { return nil }

func (b *blobFile) Stat() (fs.FileInfo, error) { return b.info, nil }

func (b *blobFile) Readdir(int) ([]fs.FileInfo, error) {
	return nil, fs.ErrInvalid
}

type blobFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func (i blobFileInfo) Name() string       { return i.name }
func (i blobFileInfo) Size() int64        { return i.size }
func (i blobFileInfo) Mode() fs.FileMode  { return i.mode }
func (i blobFileInfo) ModTime() time.Time { return i.modTime }
func (i blobFileInfo) IsDir() bool        { return false }
func (i blobFileInfo) Sys() any           { return nil }
