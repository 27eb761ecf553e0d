// Package imageresize serves images with on-demand resizing, backed by a
// content-addressed disk cache keyed on the source path, its mtime, and the
// requested dimensions/quality.
package imageresize

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	// webp posters can only be decoded, which is all the resizer needs;
	// they are re-encoded as png.
	_ "golang.org/x/image/webp"
)

type Options struct {
	Cachedir string
}

type Resizer struct {
	cachedir           string
	tmpExt             string
	resizeMutexMap     map[string]*sync.Mutex
	resizeMutexMapLock sync.Mutex
}

func New(config Options) *Resizer {
	return &Resizer{
		cachedir:       config.Cachedir,
		resizeMutexMap: make(map[string]*sync.Mutex),
		tmpExt:         fmt.Sprintf(".%d", os.Getpid()),
	}
}

var isImg = regexp.MustCompile(`\.(png|jpg|jpeg|webp|tbn)$`)

const defaultJPEGQuality = 90

func param2uint(params url.Values, name string) uint32 {
	if v, ok := params[name]; ok && len(v) > 0 {
		n, _ := strconv.ParseUint(v[0], 10, 32)
		return uint32(n)
	}
	return 0
}

// cacheKey addresses a resized variant by everything that influences
// its bytes: sha256(source_path || w || h || q || source mtime), the
// integers little-endian.
func cacheKey(path string, w, h, q uint32, mtime int64) string {
	h256 := sha256.New()
	h256.Write([]byte(path))
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], w)
	h256.Write(buf[:])
	binary.LittleEndian.PutUint32(buf[:], h)
	h256.Write(buf[:])
	binary.LittleEndian.PutUint32(buf[:], q)
	h256.Write(buf[:])
	var buf8 [8]byte
	binary.LittleEndian.PutUint64(buf8[:], uint64(mtime))
	h256.Write(buf8[:])
	return hex.EncodeToString(h256.Sum(nil))
}

func (r *Resizer) cachePath(key, ext string) string {
	return filepath.Join(r.cachedir, key+"."+ext)
}

func (r *Resizer) cacheRead(key, ext string) http.File {
	if r.cachedir == "" {
		return nil
	}
	fh, err := os.Open(r.cachePath(key, ext))
	if err != nil {
		return nil
	}
	return fh
}

// cacheWrite writes blob atomically to the cache path and returns a handle
// to it opened for reading; nil if the cache write failed for any reason
// (serving the original is strictly better than failing). The cache
// file's mtime is set to the source's so the relation stays observable.
func (r *Resizer) cacheWrite(key, ext string, blob []byte, srcMtime time.Time) http.File {
	if r.cachedir == "" {
		return nil
	}
	fn := r.cachePath(key, ext)
	tmp := fn + r.tmpExt
	fh, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o666)
	if err != nil {
		return nil
	}
	if _, err := fh.Write(blob); err != nil {
		fh.Close()
		os.Remove(tmp)
		return nil
	}
	fh.Close()
	if err := os.Rename(tmp, fn); err != nil {
		os.Remove(tmp)
		return nil
	}
	os.Chtimes(fn, srcMtime, srcMtime)
	rfh, err := os.Open(fn)
	if err != nil {
		return nil
	}
	return rfh
}

// Cleanup removes cache entries older than maxAge. The cache is content
// addressed, so deleting anything at any time is safe.
func (r *Resizer) Cleanup(maxAge time.Duration) error {
	if r.cachedir == "" {
		return nil
	}
	entries, err := os.ReadDir(r.cachedir)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(r.cachedir, e.Name()))
		}
	}
	return nil
}

func contentTypeFor(ext string) string {
	switch ext {
	case "tbn", "jpeg":
		return "image/jpg"
	default:
		return "image/" + ext
	}
}

// OpenFile resolves `name` (an absolute filesystem path) to the requested
// variant: the source unchanged if w, h and q are all absent or a non-JPEG
// image is already the right size, otherwise a resized (or, for JPEG,
// re-encoded) copy served from (and written into) the content-addressed
// cache. On any failure it falls back to the
// unmodified source file rather than erroring.
func (r *Resizer) OpenFile(rw http.ResponseWriter, rq *http.Request, name string, imageQuality int) (http.File, error) {
	src, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	fi, err := src.Stat()
	if err != nil {
		src.Close()
		return nil, err
	}
	if fi.IsDir() {
		src.Close()
		return nil, fmt.Errorf("imageresize: %s is a directory", name)
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if !isImg.MatchString(strings.ToLower(name)) {
		return src, nil
	}
	rw.Header().Set("Content-Type", contentTypeFor(ext))

	if rq.Method != http.MethodGet && rq.Method != http.MethodHead {
		return src, nil
	}

	params, _ := url.ParseQuery(rq.URL.RawQuery)
	w := param2uint(params, "w")
	h := param2uint(params, "h")
	q := param2uint(params, "q")
	if imageQuality > 0 && q == 0 {
		q = uint32(imageQuality)
	}
	if w == 0 && h == 0 && q == 0 {
		return src, nil
	}

	mtime := fi.ModTime().Unix()

	// Decode original dimensions.
	cfg, _, err := image.DecodeConfig(src)
	if err != nil {
		src.Seek(0, 0)
		return src, nil
	}
	src.Seek(0, 0)
	ow, oh := cfg.Width, cfg.Height

	tw, th := targetDimensions(ow, oh, int(w), int(h))
	if q == 0 {
		q = defaultJPEGQuality
	}
	if q > 100 {
		q = 100
	}

	key := cacheKey(name, uint32(tw), uint32(th), q, mtime)
	if cf := r.cacheRead(key, ext); cf != nil {
		src.Close()
		return cf, nil
	}

	needResize := tw != ow || th != oh
	if !needResize && ext != "jpg" && ext != "jpeg" && ext != "tbn" {
		// Non-JPEG formats have no quality knob; pass through unchanged.
		src.Seek(0, 0)
		return src, nil
	}

	r.resizeMutexMapLock.Lock()
	m, ok := r.resizeMutexMap[name]
	if !ok {
		m = &sync.Mutex{}
		r.resizeMutexMap[name] = m
	}
	r.resizeMutexMapLock.Unlock()
	m.Lock()
	defer m.Unlock()

	img, _, err := image.Decode(src)
	src.Close()
	if err != nil {
		// Decode failed on this pass (shouldn't usually happen since
		// DecodeConfig succeeded); fall back to reopening the source.
		return os.Open(name)
	}

	if needResize {
		img = imaging.Resize(img, tw, th, imaging.Lanczos)
	}

	var blob []byte
	switch ext {
	case "jpg", "jpeg", "tbn":
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: int(q)}); err != nil {
			return os.Open(name)
		}
		blob = buf.Bytes()
		ext = "jpg"
	case "png", "webp":
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return os.Open(name)
		}
		blob = buf.Bytes()
		if ext == "webp" {
			// webp goes out as png; there is no webp encoder
			ext = "png"
			rw.Header().Set("Content-Type", "image/png")
		}
	default:
		return os.Open(name)
	}

	if cf := r.cacheWrite(key, ext, blob, fi.ModTime()); cf != nil {
		return cf, nil
	}

	// Cache write failed; still serve the resized bytes from memory.
	return newBlobFile(blob, fi), nil
}

// targetDimensions preserves aspect ratio when only one of w/h is given;
// passes through the original size when neither is given.
func targetDimensions(ow, oh, w, h int) (int, int) {
	if w == 0 && h == 0 {
		return ow, oh
	}
	if ow == 0 || oh == 0 {
		return w, h
	}
	ar := float64(ow) / float64(oh)
	if w == 0 {
		w = int(float64(h) * ar)
	}
	if h == 0 {
		h = int(float64(w) / ar)
	}
	return w, h
}
