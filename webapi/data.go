// The /data file tree: direct access to collection files for the web
// UI, with image resizing, range streaming and HLS proxying layered on
// by path.
package webapi

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/finchmedia/finch-server/streamer"
)

var dataImageExts = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "webp": true, "tbn": true,
}
var dataVideoExts = map[string]bool{
	"mkv": true, "mp4": true, "avi": true, "m4v": true,
	"mov": true, "wmv": true, "flv": true, "webm": true,
}

// GET /data/{coll}/{path...}
func (s *Service) dataHandler(w http.ResponseWriter, r *http.Request) {
	c := s.lookup(r)
	if c == nil {
		http.Error(w, "no such collection", http.StatusNotFound)
		return
	}

	prefix := "/data/" + mux.Vars(r)["coll"] + "/"
	rel := strings.TrimPrefix(r.URL.Path, prefix)
	if rel == "" || rel == r.URL.Path {
		http.Error(w, "missing path", http.StatusBadRequest)
		return
	}

	// an HLS path points inside a container the external transcoder
	// unpacks, not at a file on disk
	if c.HlsServer != "" && strings.Contains(rel, ".mp4/") {
		s.proxy.Forward(w, r, c.HlsServer, rel)
		return
	}

	abs, ok := resolveUnder(c.Directory, rel)
	if !ok {
		http.Error(w, "path escapes collection", http.StatusForbidden)
		return
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(abs)), ".")
	switch {
	case dataVideoExts[ext]:
		streamer.ServeVideo(w, r, abs)
	case ext == "srt" || ext == "vtt":
		streamer.ServeSubtitle(w, r, abs)
	case dataImageExts[ext]:
		f, err := s.resizer.OpenFile(w, r, abs, 0)
		if err != nil {
			http.Error(w, "", http.StatusNotFound)
			return
		}
		defer f.Close()
		if r.Method != http.MethodHead {
			io.Copy(w, f)
		}
	default:
		http.ServeFile(w, r, abs)
	}
}

// resolveUnder joins rel onto root and confirms the result is still
// inside root. A prefix check alone is not enough: "../" segments must
// not survive the join.
func resolveUnder(root, rel string) (string, bool) {
	for _, segment := range strings.Split(rel, "/") {
		if segment == ".." {
			return "", false
		}
	}
	cleanRoot := filepath.Clean(root)
	abs := filepath.Join(cleanRoot, filepath.FromSlash(rel))
	if abs != cleanRoot && !strings.HasPrefix(abs, cleanRoot+string(filepath.Separator)) {
		return "", false
	}
	return abs, true
}
