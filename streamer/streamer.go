// Package streamer serves video files with HTTP range support and
// subtitle sidecars with their correct MIME types.
package streamer

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// MimeType maps a video file extension (without dot) to its content
// type. Matroska is the fallback since it is the catch-all container in
// practice.
func MimeType(ext string) string {
	switch strings.ToLower(ext) {
	case "mp4", "m4v":
		return "video/mp4"
	case "webm":
		return "video/webm"
	case "avi":
		return "video/x-msvideo"
	case "mov":
		return "video/quicktime"
	default:
		return "video/x-matroska"
	}
}

// SubtitleMimeType maps a subtitle extension to its content type.
func SubtitleMimeType(ext string) string {
	if strings.ToLower(ext) == "vtt" {
		return "text/vtt"
	}
	return "application/x-subrip"
}

// byteRange is a parsed "bytes=START-END" request, inclusive on both
// ends.
type byteRange struct {
	start int64
	end   int64
}

// parseRange parses a single-range Range header against a resource of
// the given size. ok is false for headers this server does not handle
// (multiple ranges, other units, garbage); unsatisfiable is true when
// the range is syntactically fine but outside the resource.
func parseRange(header string, size int64) (r byteRange, ok, unsatisfiable bool) {
	value, found := strings.CutPrefix(header, "bytes=")
	if !found || strings.Contains(value, ",") {
		return byteRange{}, false, false
	}
	startStr, endStr, found := strings.Cut(value, "-")
	if !found {
		return byteRange{}, false, false
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)
	if startStr == "" && endStr == "" {
		return byteRange{}, false, false
	}

	// an empty start means the file head, an empty end the file tail
	r.start = 0
	r.end = size - 1
	if startStr != "" {
		n, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil || n < 0 {
			return byteRange{}, false, false
		}
		r.start = n
	}
	if endStr != "" {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n < 0 {
			return byteRange{}, false, false
		}
		r.end = n
	}

	if r.start > r.end || r.end >= size {
		return byteRange{}, true, true
	}
	return r, true, false
}

// ServeVideo streams a video file, honoring a single-range Range header
// with a 206 response. Unsatisfiable ranges get 416.
func ServeVideo(w http.ResponseWriter, r *http.Request, path string) {
	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "", http.StatusNotFound)
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		http.Error(w, "", http.StatusNotFound)
		return
	}
	size := fi.Size()

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	w.Header().Set("Content-Type", MimeType(ext))
	w.Header().Set("Accept-Ranges", "bytes")

	header := r.Header.Get("Range")
	if header == "" {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			io.Copy(w, f)
		}
		return
	}

	rng, ok, unsatisfiable := parseRange(header, size)
	if unsatisfiable {
		w.Header().Set("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}
	if !ok {
		// unhandled range flavor, fall back to the whole file
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			io.Copy(w, f)
		}
		return
	}

	length := rng.end - rng.start + 1
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.Header().Set("Content-Range",
		"bytes "+strconv.FormatInt(rng.start, 10)+"-"+strconv.FormatInt(rng.end, 10)+
			"/"+strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := f.Seek(rng.start, io.SeekStart); err != nil {
		return
	}
	io.CopyN(w, f, length)
}

// ServeSubtitle serves a subtitle sidecar as-is.
func ServeSubtitle(w http.ResponseWriter, r *http.Request, path string) {
	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "", http.StatusNotFound)
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		http.Error(w, "", http.StatusNotFound)
		return
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	w.Header().Set("Content-Type", SubtitleMimeType(ext))
	w.Header().Set("Content-Length", strconv.FormatInt(fi.Size(), 10))
	if r.Method != http.MethodHead {
		io.Copy(w, f)
	}
}
